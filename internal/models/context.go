package models

// BusinessContext is the per-request snapshot of one business's operational,
// financial and customer state. It is assembled fresh for each query and
// never persisted; every numeric field defaults to 0 and every list field to
// empty when the underlying source has no rows.
type BusinessContext struct {
	BusinessID         string             `json:"business_id"`
	BusinessProfile    BusinessProfile    `json:"business_profile"`
	RecentActivity     RecentActivity     `json:"recent_activity"`
	CustomerData       []CustomerSummary  `json:"customer_data"`
	FinancialSnapshot  FinancialSnapshot  `json:"financial_snapshot"`
	OperationalMetrics OperationalMetrics `json:"operational_metrics"`
	IndustryContext    IndustryContext    `json:"industry_context"`
}

// RecentActivity bundles the windowed record lists plus derived trend
// descriptors
type RecentActivity struct {
	RecentJobs           []JobSummary           `json:"recent_jobs"`
	RecentCustomers      []CustomerSummary      `json:"recent_customers"`
	RecentCommunications []CommunicationSummary `json:"recent_communications"`
	RecentFinancials     []InvoiceSummary       `json:"recent_financials"`
	Trends               []string               `json:"trends"`
}

// FinancialSnapshot holds aggregates derived from the invoice window
type FinancialSnapshot struct {
	MonthlyRevenue      float64         `json:"monthly_revenue"`
	MonthlyExpenses     float64         `json:"monthly_expenses"`
	ProfitMargin        float64         `json:"profit_margin"`
	CashFlow            float64         `json:"cash_flow"`
	OutstandingInvoices float64         `json:"outstanding_invoices"`
	AverageJobValue     float64         `json:"average_job_value"`
	TopCustomers        []CustomerValue `json:"top_customers"`
}

// CustomerValue ranks one customer by lifetime value
type CustomerValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// OperationalMetrics holds aggregates derived from the job/calendar window
type OperationalMetrics struct {
	JobsCompleted        int     `json:"jobs_completed"`
	CustomerSatisfaction float64 `json:"customer_satisfaction"`
	ResponseTime         float64 `json:"response_time"`
	BookingRate          float64 `json:"booking_rate"`
	UtilizationRate      float64 `json:"utilization_rate"`
	Efficiency           float64 `json:"efficiency"`
}

// IndustryContext is optional static reference content keyed by business
// type/industry. All fields degrade to empty when no reference entry exists.
type IndustryContext struct {
	IndustryType        string   `json:"industry_type,omitempty"`
	SeasonalPatterns    []string `json:"seasonal_patterns"`
	CompetitiveAnalysis []string `json:"competitive_analysis"`
	MarketTrends        []string `json:"market_trends"`
	BestPractices       []string `json:"best_practices"`
}
