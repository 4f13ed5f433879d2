package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opsledger/bizcontext/internal/models"
)

// JobRepository handles calendar/job database operations
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// ListRecent retrieves calendar/job records for a business within the window,
// newest first
func (r *JobRepository) ListRecent(ctx context.Context, businessID string, w Window) ([]models.JobSummary, error) {
	query := `
		SELECT id, COALESCE(customer_id, ''), title, status, COALESCE(value, 0), scheduled_at, completed_at
		FROM calendar_events
		WHERE business_id = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, businessID, w.Since, w.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []models.JobSummary{}
	for rows.Next() {
		var j models.JobSummary
		var completedAt sql.NullTime

		if err := rows.Scan(&j.ID, &j.CustomerID, &j.Title, &j.Status, &j.Value, &j.ScheduledAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			j.CompletedAt = &t
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}
