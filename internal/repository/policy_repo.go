package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// PolicyRepo is a SQLite implementation of PolicyRepository
type PolicyRepo struct {
	db *db.DB
}

// NewPolicyRepo creates a new PolicyRepo
func NewPolicyRepo(database *db.DB) *PolicyRepo {
	return &PolicyRepo{db: database}
}

// GetForMatter retrieves the rounding policy override for a matter,
// or nil when the matter uses the firm-wide policy.
func (r *PolicyRepo) GetForMatter(ctx context.Context, matterID int64) (*domain.RoundingPolicy, error) {
	query := "SELECT increment_minutes, method FROM matter_rounding_policies WHERE matter_id = ?"

	policy := &domain.RoundingPolicy{}
	err := r.db.QueryRowContext(ctx, query, matterID).Scan(&policy.IncrementMinutes, &policy.Method)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rounding policy: %w", err)
	}

	return policy, nil
}

// SetForMatter installs or replaces a matter's rounding policy override
func (r *PolicyRepo) SetForMatter(ctx context.Context, matterID int64, policy domain.RoundingPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid rounding policy: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO matter_rounding_policies (matter_id, increment_minutes, method)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, matterID, policy.IncrementMinutes, policy.Method)
	if err != nil {
		return fmt.Errorf("failed to set rounding policy: %w", err)
	}

	return nil
}

// DeleteForMatter removes a matter's rounding policy override
func (r *PolicyRepo) DeleteForMatter(ctx context.Context, matterID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM matter_rounding_policies WHERE matter_id = ?", matterID)
	if err != nil {
		return fmt.Errorf("failed to delete rounding policy: %w", err)
	}
	return nil
}
