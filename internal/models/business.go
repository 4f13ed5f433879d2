package models

import "time"

// RelationshipTier classifies a customer by lifetime value and contact recency
type RelationshipTier string

const (
	TierVIP     RelationshipTier = "vip"
	TierAtRisk  RelationshipTier = "at_risk"
	TierRegular RelationshipTier = "regular"
	TierNew     RelationshipTier = "new"
)

// BusinessProfile holds the persisted identity of a business
type BusinessProfile struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	BusinessType string         `json:"business_type"`
	Industry     string         `json:"industry"`
	Size         string         `json:"size"`
	Location     string         `json:"location"`
	Services     []string       `json:"services"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

// CustomerSummary is a windowed view of one customer, annotated with a
// relationship tier during context assembly
type CustomerSummary struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	LifetimeValue   *float64         `json:"lifetime_value,omitempty"`
	LastContactedAt *time.Time       `json:"last_contacted_at,omitempty"`
	Relationship    RelationshipTier `json:"relationship"`
}

// JobSummary is a windowed view of one calendar/job record
type JobSummary struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id,omitempty"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Value       float64    `json:"value"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CommunicationSummary is a windowed view of one customer communication
type CommunicationSummary struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id,omitempty"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	Subject    string    `json:"subject,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// InvoiceSummary is a windowed view of one invoice record
type InvoiceSummary struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	Amount     float64    `json:"amount"`
	Status     string     `json:"status"`
	IssuedAt   time.Time  `json:"issued_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// Invoice status values as stored
const (
	InvoiceStatusPaid    = "paid"
	InvoiceStatusPending = "pending"
	InvoiceStatusOverdue = "overdue"
)

// Job status values as stored
const (
	JobStatusScheduled = "scheduled"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)
