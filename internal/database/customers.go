package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opsledger/bizcontext/internal/models"
)

// CustomerRepository handles customer database operations
type CustomerRepository struct {
	db *DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// ListRecent retrieves customers for a business within the window, newest first
func (r *CustomerRepository) ListRecent(ctx context.Context, businessID string, w Window) ([]models.CustomerSummary, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), lifetime_value, last_contacted_at
		FROM customers
		WHERE business_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, businessID, w.Since, w.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	customers := []models.CustomerSummary{}
	for rows.Next() {
		var c models.CustomerSummary
		var lifetimeValue sql.NullFloat64
		var lastContacted sql.NullTime

		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &lifetimeValue, &lastContacted); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		if lifetimeValue.Valid {
			v := lifetimeValue.Float64
			c.LifetimeValue = &v
		}
		if lastContacted.Valid {
			t := lastContacted.Time
			c.LastContactedAt = &t
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, nil
}
