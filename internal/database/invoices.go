package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opsledger/bizcontext/internal/models"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db *DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListRecent retrieves invoice records for a business within the window,
// newest first
func (r *InvoiceRepository) ListRecent(ctx context.Context, businessID string, w Window) ([]models.InvoiceSummary, error) {
	query := `
		SELECT id, COALESCE(customer_id, ''), amount, status, issued_at, paid_at
		FROM invoices
		WHERE business_id = $1 AND issued_at >= $2
		ORDER BY issued_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, businessID, w.Since, w.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	invoices := []models.InvoiceSummary{}
	for rows.Next() {
		var inv models.InvoiceSummary
		var paidAt sql.NullTime

		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.Amount, &inv.Status, &inv.IssuedAt, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if paidAt.Valid {
			t := paidAt.Time
			inv.PaidAt = &t
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	return invoices, nil
}
