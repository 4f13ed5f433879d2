package database

import (
	"context"
	"time"

	"github.com/opsledger/bizcontext/internal/models"
)

// Window bounds a recent-records read: rows newer than Since, at most Limit
// of them, newest first.
type Window struct {
	Since time.Time
	Limit int
}

// BusinessReaderInterface defines read-only access to business profiles
type BusinessReaderInterface interface {
	GetProfile(ctx context.Context, businessID string) (*models.BusinessProfile, error)
}

// CustomerReaderInterface defines windowed read-only access to customer records
type CustomerReaderInterface interface {
	ListRecent(ctx context.Context, businessID string, w Window) ([]models.CustomerSummary, error)
}

// JobReaderInterface defines windowed read-only access to calendar/job records
type JobReaderInterface interface {
	ListRecent(ctx context.Context, businessID string, w Window) ([]models.JobSummary, error)
}

// CommunicationReaderInterface defines windowed read-only access to communication records
type CommunicationReaderInterface interface {
	ListRecent(ctx context.Context, businessID string, w Window) ([]models.CommunicationSummary, error)
}

// InvoiceReaderInterface defines windowed read-only access to invoice records
type InvoiceReaderInterface interface {
	ListRecent(ctx context.Context, businessID string, w Window) ([]models.InvoiceSummary, error)
}

// Ensure concrete types implement the interfaces
var (
	_ BusinessReaderInterface      = (*BusinessRepository)(nil)
	_ CustomerReaderInterface      = (*CustomerRepository)(nil)
	_ JobReaderInterface           = (*JobRepository)(nil)
	_ CommunicationReaderInterface = (*CommunicationRepository)(nil)
	_ InvoiceReaderInterface       = (*InvoiceRepository)(nil)
)
