package models

// QueryType enumerates the supported kinds of context queries
type QueryType string

const (
	QueryTypeCustomerInquiry    QueryType = "customer_inquiry"
	QueryTypeBusinessAnalysis   QueryType = "business_analysis"
	QueryTypeWorkflowAutomation QueryType = "workflow_automation"
)

// AIContextRequest is the already-framed query handed to the context engine
// by the outer API layer
type AIContextRequest struct {
	BusinessID string            `json:"business_id" validate:"required"`
	QueryType  QueryType         `json:"query_type" validate:"required,query_type"`
	Query      string            `json:"query" validate:"required"`
	Context    map[string]string `json:"context,omitempty"`
}
