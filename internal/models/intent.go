package models

// ActionType is the kind of action a query calls for
type ActionType string

const (
	ActionRespond  ActionType = "respond"
	ActionAnalyze  ActionType = "analyze"
	ActionAutomate ActionType = "automate"
)

// Urgency grades how time-sensitive a query is
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Complexity grades how involved answering a query will be
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// QueryIntent is the classified purpose of an incoming query. It lives only
// for the duration of one ProcessQuery call.
type QueryIntent struct {
	Intent       string     `json:"intent"`
	RequiredData []string   `json:"required_data"`
	ActionType   ActionType `json:"action_type"`
	Urgency      Urgency    `json:"urgency"`
	Complexity   Complexity `json:"complexity"`
}
