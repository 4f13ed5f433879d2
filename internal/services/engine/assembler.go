package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opsledger/bizcontext/internal/database"
	"github.com/opsledger/bizcontext/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultWindowDays bounds the recency window for context assembly
	DefaultWindowDays = 90
	// DefaultWindowRecords bounds the record count for context assembly
	DefaultWindowRecords = 20
	// revenueWindowDays is the window used for monthly financial aggregates
	revenueWindowDays = 30
	// topCustomerCount bounds the ranked top-customer list
	topCustomerCount = 5
	// trendStableBand is the relative change below which a trend is reported
	// as stable
	trendStableBand = 0.1
)

// IndustryLookup resolves optional static industry reference content
type IndustryLookup interface {
	Context(businessType, industryType string) models.IndustryContext
}

// Assembler builds a BusinessContext snapshot from the data access adapters
// and the relationship classifier. The snapshot is built completely or the
// request fails; it is never partially constructed.
type Assembler struct {
	businesses     database.BusinessReaderInterface
	customers      database.CustomerReaderInterface
	jobs           database.JobReaderInterface
	communications database.CommunicationReaderInterface
	invoices       database.InvoiceReaderInterface
	classifier     *RelationshipClassifier
	industry       IndustryLookup
	windowDays     int
	windowRecords  int
	logger         *zap.Logger
	now            func() time.Time
}

// AssemblerParams bundles the assembler's collaborators
type AssemblerParams struct {
	Businesses     database.BusinessReaderInterface
	Customers      database.CustomerReaderInterface
	Jobs           database.JobReaderInterface
	Communications database.CommunicationReaderInterface
	Invoices       database.InvoiceReaderInterface
	Classifier     *RelationshipClassifier
	// Industry is optional enrichment; nil disables it
	Industry      IndustryLookup
	WindowDays    int
	WindowRecords int
	Logger        *zap.Logger
}

// NewAssembler creates a context assembler
func NewAssembler(p AssemblerParams) *Assembler {
	if p.WindowDays <= 0 {
		p.WindowDays = DefaultWindowDays
	}
	if p.WindowRecords <= 0 {
		p.WindowRecords = DefaultWindowRecords
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Assembler{
		businesses:     p.Businesses,
		customers:      p.Customers,
		jobs:           p.Jobs,
		communications: p.Communications,
		invoices:       p.Invoices,
		classifier:     p.Classifier,
		industry:       p.Industry,
		windowDays:     p.WindowDays,
		windowRecords:  p.WindowRecords,
		logger:         p.Logger,
		now:            time.Now,
	}
}

// Assemble builds the full BusinessContext for a business. It fails with
// ErrBusinessNotFound when no profile matches the ID and with
// *DataSourceError when any underlying fetch fails; fetch errors are
// propagated, never swallowed.
func (a *Assembler) Assemble(ctx context.Context, businessID string) (*models.BusinessContext, error) {
	// Profile first: fail fast before fanning out the windowed reads.
	profile, err := a.businesses.GetProfile(ctx, businessID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
		}
		return nil, &DataSourceError{Source: "business_profile", Err: err}
	}

	window := database.Window{
		Since: a.now().AddDate(0, 0, -a.windowDays),
		Limit: a.windowRecords,
	}

	// The four windowed reads are independent; fetch them concurrently.
	var (
		wg        sync.WaitGroup
		customers []models.CustomerSummary
		jobs      []models.JobSummary
		comms     []models.CommunicationSummary
		invoices  []models.InvoiceSummary

		customerErr, jobErr, commErr, invoiceErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		customers, customerErr = a.customers.ListRecent(ctx, businessID, window)
	}()
	go func() {
		defer wg.Done()
		jobs, jobErr = a.jobs.ListRecent(ctx, businessID, window)
	}()
	go func() {
		defer wg.Done()
		comms, commErr = a.communications.ListRecent(ctx, businessID, window)
	}()
	go func() {
		defer wg.Done()
		invoices, invoiceErr = a.invoices.ListRecent(ctx, businessID, window)
	}()
	wg.Wait()

	if customerErr != nil {
		return nil, &DataSourceError{Source: "customers", Err: customerErr}
	}
	if jobErr != nil {
		return nil, &DataSourceError{Source: "calendar_events", Err: jobErr}
	}
	if commErr != nil {
		return nil, &DataSourceError{Source: "communications", Err: commErr}
	}
	if invoiceErr != nil {
		return nil, &DataSourceError{Source: "invoices", Err: invoiceErr}
	}

	// Attach relationship tiers to every customer summary.
	annotated := make([]models.CustomerSummary, len(customers))
	for i, c := range customers {
		c.Relationship = a.classifier.Classify(c.LifetimeValue, c.LastContactedAt)
		annotated[i] = c
	}

	bctx := &models.BusinessContext{
		BusinessID:      businessID,
		BusinessProfile: *profile,
		RecentActivity: models.RecentActivity{
			RecentJobs:           emptyIfNil(jobs),
			RecentCustomers:      annotated,
			RecentCommunications: emptyIfNil(comms),
			RecentFinancials:     emptyIfNil(invoices),
			Trends:               a.deriveTrends(jobs, invoices, annotated),
		},
		CustomerData:       annotated,
		FinancialSnapshot:  a.deriveFinancialSnapshot(invoices, annotated),
		OperationalMetrics: a.deriveOperationalMetrics(jobs, comms),
	}

	if a.industry != nil {
		bctx.IndustryContext = a.industry.Context(profile.BusinessType, profile.Industry)
	} else {
		bctx.IndustryContext = models.IndustryContext{
			IndustryType:        profile.Industry,
			SeasonalPatterns:    []string{},
			CompetitiveAnalysis: []string{},
			MarketTrends:        []string{},
			BestPractices:       []string{},
		}
	}

	a.logger.Debug("context_assembled",
		zap.String("business_id", businessID),
		zap.Int("customers", len(annotated)),
		zap.Int("jobs", len(jobs)),
		zap.Int("communications", len(comms)),
		zap.Int("invoices", len(invoices)),
	)

	return bctx, nil
}

// deriveFinancialSnapshot aggregates the invoice window into monthly figures.
// There is no expense source, so expenses stay at their zero default and
// profit margin reflects revenue only.
func (a *Assembler) deriveFinancialSnapshot(invoices []models.InvoiceSummary, customers []models.CustomerSummary) models.FinancialSnapshot {
	snapshot := models.FinancialSnapshot{
		TopCustomers: []models.CustomerValue{},
	}

	monthStart := a.now().AddDate(0, 0, -revenueWindowDays)
	var paidCount int
	for _, inv := range invoices {
		if inv.Status == models.InvoiceStatusPaid {
			if !inv.IssuedAt.Before(monthStart) {
				snapshot.MonthlyRevenue += inv.Amount
			}
			snapshot.AverageJobValue += inv.Amount
			paidCount++
		} else {
			snapshot.OutstandingInvoices += inv.Amount
		}
	}
	if paidCount > 0 {
		snapshot.AverageJobValue /= float64(paidCount)
	}

	snapshot.CashFlow = snapshot.MonthlyRevenue - snapshot.MonthlyExpenses
	if snapshot.MonthlyRevenue > 0 {
		snapshot.ProfitMargin = (snapshot.MonthlyRevenue - snapshot.MonthlyExpenses) / snapshot.MonthlyRevenue * 100
	}

	ranked := make([]models.CustomerSummary, 0, len(customers))
	for _, c := range customers {
		if c.LifetimeValue != nil && *c.LifetimeValue > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return *ranked[i].LifetimeValue > *ranked[j].LifetimeValue
	})
	for i, c := range ranked {
		if i >= topCustomerCount {
			break
		}
		snapshot.TopCustomers = append(snapshot.TopCustomers, models.CustomerValue{
			Name:  c.Name,
			Value: *c.LifetimeValue,
		})
	}

	return snapshot
}

// deriveOperationalMetrics aggregates the job and communication windows.
// Ratios are in [0,1]; metrics without a backing source keep their zero
// default.
func (a *Assembler) deriveOperationalMetrics(jobs []models.JobSummary, comms []models.CommunicationSummary) models.OperationalMetrics {
	metrics := models.OperationalMetrics{}

	var completed, cancelled int
	for _, j := range jobs {
		switch j.Status {
		case models.JobStatusCompleted:
			completed++
		case models.JobStatusCancelled:
			cancelled++
		}
	}
	metrics.JobsCompleted = completed

	if len(jobs) > 0 {
		metrics.BookingRate = float64(len(jobs)-cancelled) / float64(len(jobs))
		metrics.Efficiency = float64(completed) / float64(len(jobs))
	}
	if booked := len(jobs) - cancelled; booked > 0 {
		metrics.UtilizationRate = float64(completed) / float64(booked)
	}

	metrics.ResponseTime = averageResponseHours(comms)

	return metrics
}

// averageResponseHours estimates responsiveness as the mean delay between an
// inbound communication and the next outbound one for the same customer.
func averageResponseHours(comms []models.CommunicationSummary) float64 {
	if len(comms) == 0 {
		return 0
	}

	// Windowed reads arrive newest-first; walk oldest-first.
	ordered := make([]models.CommunicationSummary, len(comms))
	copy(ordered, comms)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	var total float64
	var count int
	for i, c := range ordered {
		if c.Direction != "inbound" {
			continue
		}
		for _, reply := range ordered[i+1:] {
			if reply.Direction == "outbound" && reply.CustomerID == c.CustomerID {
				total += reply.OccurredAt.Sub(c.OccurredAt).Hours()
				count++
				break
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// deriveTrends computes deterministic trend descriptors by comparing the
// newer half of the window against the older half.
func (a *Assembler) deriveTrends(jobs []models.JobSummary, invoices []models.InvoiceSummary, customers []models.CustomerSummary) []string {
	trends := []string{}
	midpoint := a.now().AddDate(0, 0, -a.windowDays/2)

	var olderRevenue, newerRevenue float64
	for _, inv := range invoices {
		if inv.Status != models.InvoiceStatusPaid {
			continue
		}
		if inv.IssuedAt.Before(midpoint) {
			olderRevenue += inv.Amount
		} else {
			newerRevenue += inv.Amount
		}
	}
	if olderRevenue > 0 || newerRevenue > 0 {
		trends = append(trends, compareTrend("revenue", olderRevenue, newerRevenue))
	}

	var olderJobs, newerJobs float64
	for _, j := range jobs {
		if j.ScheduledAt.Before(midpoint) {
			olderJobs++
		} else {
			newerJobs++
		}
	}
	if olderJobs > 0 || newerJobs > 0 {
		trends = append(trends, compareTrend("bookings", olderJobs, newerJobs))
	}

	for _, c := range customers {
		if c.Relationship == models.TierAtRisk {
			trends = append(trends, "at_risk_customers_present")
			break
		}
	}

	return trends
}

func compareTrend(name string, older, newer float64) string {
	if older == 0 {
		return name + "_increasing"
	}
	change := (newer - older) / older
	switch {
	case change > trendStableBand:
		return name + "_increasing"
	case change < -trendStableBand:
		return name + "_declining"
	default:
		return name + "_stable"
	}
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
