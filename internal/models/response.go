package models

// ImpactLevel grades the expected impact, priority or effort of a derived item
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// AIContextResponse is the structured multi-part answer returned by the
// context engine. All four list fields are always present (possibly empty),
// never nil.
type AIContextResponse struct {
	ContextualAnswer      string                 `json:"contextual_answer"`
	BusinessInsights      []Insight              `json:"business_insights"`
	RecommendedActions    []Recommendation       `json:"recommended_actions"`
	AutomationSuggestions []AutomationSuggestion `json:"automation_suggestions"`
	RelatedData           []RelatedDataItem      `json:"related_data"`
}

// Insight is one derived observation about the business
type Insight struct {
	Type       string      `json:"type"`
	Insight    string      `json:"insight"`
	Confidence float64     `json:"confidence"`
	Impact     ImpactLevel `json:"impact"`
	Evidence   []string    `json:"evidence"`
}

// Recommendation is one suggested action for the business owner
type Recommendation struct {
	Action         string      `json:"action"`
	Priority       ImpactLevel `json:"priority"`
	Effort         ImpactLevel `json:"effort"`
	ExpectedImpact string      `json:"expected_impact"`
	Deadline       string      `json:"deadline,omitempty"`
	Automatable    bool        `json:"automatable"`
}

// AutomationSuggestion describes a workflow the business could automate
type AutomationSuggestion struct {
	Workflow             string      `json:"workflow"`
	Trigger              string      `json:"trigger"`
	Actions              []string    `json:"actions"`
	EstimatedTimeSaved   float64     `json:"estimated_time_saved"`
	ImplementationEffort ImpactLevel `json:"implementation_effort"`
}

// RelatedDataItem points at data relevant to the query
type RelatedDataItem struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Relevance float64        `json:"relevance"`
}
