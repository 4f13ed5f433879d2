package database

import (
	"context"
	"fmt"

	"github.com/opsledger/bizcontext/internal/models"
)

// CommunicationRepository handles communication database operations
type CommunicationRepository struct {
	db *DB
}

// NewCommunicationRepository creates a new communication repository
func NewCommunicationRepository(db *DB) *CommunicationRepository {
	return &CommunicationRepository{db: db}
}

// ListRecent retrieves communication records for a business within the
// window, newest first
func (r *CommunicationRepository) ListRecent(ctx context.Context, businessID string, w Window) ([]models.CommunicationSummary, error) {
	query := `
		SELECT id, COALESCE(customer_id, ''), channel, direction, COALESCE(subject, ''), occurred_at
		FROM communications
		WHERE business_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, businessID, w.Since, w.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	comms := []models.CommunicationSummary{}
	for rows.Next() {
		var c models.CommunicationSummary
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Channel, &c.Direction, &c.Subject, &c.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}
		comms = append(comms, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate communications: %w", err)
	}

	return comms, nil
}
