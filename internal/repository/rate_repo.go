package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// RateRepo is a SQLite implementation of RateRepository
type RateRepo struct {
	db *db.DB
}

// NewRateRepo creates a new RateRepo
func NewRateRepo(database *db.DB) *RateRepo {
	return &RateRepo{db: database}
}

const rateColumns = `id, name, rate_type, amount, client_id, matter_id,
	practice_area_id, activity_type_id, is_default, created_at, updated_at`

// Create inserts a new rate definition
func (r *RateRepo) Create(ctx context.Context, rate *domain.RateDefinition) error {
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("invalid rate definition: %w", err)
	}

	query := `
		INSERT INTO rate_definitions (
			name, rate_type, amount, client_id, matter_id,
			practice_area_id, activity_type_id, is_default, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rate.Name,
		rate.RateType,
		rate.Amount,
		nullableID(rate.ClientID),
		nullableID(rate.MatterID),
		nullableID(rate.PracticeAreaID),
		nullableID(rate.ActivityTypeID),
		rate.IsDefault,
		rate.CreatedAt.Format(timeLayout),
		rate.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate definition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rate definition ID: %w", err)
	}

	rate.ID = id
	return nil
}

// GetByID retrieves a rate definition by ID, or nil if not found
func (r *RateRepo) GetByID(ctx context.Context, id int64) (*domain.RateDefinition, error) {
	query := "SELECT " + rateColumns + " FROM rate_definitions WHERE id = ?"

	rate, err := scanRate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rate definition: %w", err)
	}

	return rate, nil
}

// List retrieves the whole rate catalog
func (r *RateRepo) List(ctx context.Context) ([]*domain.RateDefinition, error) {
	query := "SELECT " + rateColumns + " FROM rate_definitions ORDER BY is_default DESC, name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate definitions: %w", err)
	}
	defer rows.Close()

	rates := make([]*domain.RateDefinition, 0)
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate definition: %w", err)
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate definitions: %w", err)
	}

	return rates, nil
}

// Update updates an existing rate definition
func (r *RateRepo) Update(ctx context.Context, rate *domain.RateDefinition) error {
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("invalid rate definition: %w", err)
	}

	query := `
		UPDATE rate_definitions
		SET name = ?, rate_type = ?, amount = ?, client_id = ?, matter_id = ?,
		    practice_area_id = ?, activity_type_id = ?, is_default = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rate.Name,
		rate.RateType,
		rate.Amount,
		nullableID(rate.ClientID),
		nullableID(rate.MatterID),
		nullableID(rate.PracticeAreaID),
		nullableID(rate.ActivityTypeID),
		rate.IsDefault,
		formatTime(),
		rate.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rate definition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rate definition not found")
	}

	return nil
}

// Delete removes a rate definition
func (r *RateRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rate_definitions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rate definition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rate definition not found")
	}

	return nil
}

// CountDefaults returns the number of default rate definitions
func (r *RateRepo) CountDefaults(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rate_definitions WHERE is_default = 1").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count default rates: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRate(row rowScanner) (*domain.RateDefinition, error) {
	rate := &domain.RateDefinition{}
	var clientID, matterID, practiceAreaID, activityTypeID sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&rate.ID,
		&rate.Name,
		&rate.RateType,
		&rate.Amount,
		&clientID,
		&matterID,
		&practiceAreaID,
		&activityTypeID,
		&rate.IsDefault,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if clientID.Valid {
		rate.ClientID = &clientID.Int64
	}
	if matterID.Valid {
		rate.MatterID = &matterID.Int64
	}
	if practiceAreaID.Valid {
		rate.PracticeAreaID = &practiceAreaID.Int64
	}
	if activityTypeID.Valid {
		rate.ActivityTypeID = &activityTypeID.Int64
	}

	if rate.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rate.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return rate, nil
}
