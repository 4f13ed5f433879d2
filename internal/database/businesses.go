package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/opsledger/bizcontext/internal/models"
)

// BusinessRepository handles business profile database operations
type BusinessRepository struct {
	db *DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// GetProfile retrieves a business profile by ID. Returns ErrNotFound when the
// ID matches no business.
func (r *BusinessRepository) GetProfile(ctx context.Context, businessID string) (*models.BusinessProfile, error) {
	profile := &models.BusinessProfile{}
	var preferencesJSON []byte

	query := `
		SELECT id, name, business_type, industry, size, location, services, preferences
		FROM businesses
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, businessID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.BusinessType,
		&profile.Industry,
		&profile.Size,
		&profile.Location,
		pq.Array(&profile.Services),
		&preferencesJSON,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business profile: %w", err)
	}

	if len(preferencesJSON) > 0 {
		if err := json.Unmarshal(preferencesJSON, &profile.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}

	if profile.Services == nil {
		profile.Services = []string{}
	}

	return profile, nil
}
