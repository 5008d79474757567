package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// MatterRepo is a SQLite implementation of MatterRepository
type MatterRepo struct {
	db *db.DB
}

// NewMatterRepo creates a new MatterRepo
func NewMatterRepo(database *db.DB) *MatterRepo {
	return &MatterRepo{db: database}
}

// Create inserts a new matter
func (r *MatterRepo) Create(ctx context.Context, matter *domain.Matter) error {
	if err := matter.Validate(); err != nil {
		return fmt.Errorf("invalid matter: %w", err)
	}

	query := `
		INSERT INTO matters (client_id, name, number, practice_area_id, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		matter.ClientID,
		matter.Name,
		matter.Number,
		nullableID(matter.PracticeAreaID),
		matter.Status,
		matter.Notes,
		matter.CreatedAt.Format(timeLayout),
		matter.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create matter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get matter ID: %w", err)
	}

	matter.ID = id
	return nil
}

// GetByID retrieves a matter by ID, or nil if not found
func (r *MatterRepo) GetByID(ctx context.Context, id int64) (*domain.Matter, error) {
	query := `
		SELECT id, client_id, name, number, practice_area_id, status, notes, created_at, updated_at
		FROM matters
		WHERE id = ?
	`

	matter := &domain.Matter{}
	var number, notes sql.NullString
	var practiceAreaID sql.NullInt64
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&matter.ID,
		&matter.ClientID,
		&matter.Name,
		&number,
		&practiceAreaID,
		&matter.Status,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get matter: %w", err)
	}

	matter.Number = number.String
	matter.Notes = notes.String
	if practiceAreaID.Valid {
		matter.PracticeAreaID = &practiceAreaID.Int64
	}

	if matter.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if matter.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return matter, nil
}

// List retrieves matters, optionally filtered by client
func (r *MatterRepo) List(ctx context.Context, clientID *int64, includeClosed bool) ([]*domain.Matter, error) {
	query := `
		SELECT id, client_id, name, number, practice_area_id, status, notes, created_at, updated_at
		FROM matters
		WHERE 1 = 1
	`
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " AND client_id = ?"
		args = append(args, *clientID)
	}
	if !includeClosed {
		query += " AND status = 'open'"
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matters: %w", err)
	}
	defer rows.Close()

	matters := make([]*domain.Matter, 0)
	for rows.Next() {
		matter := &domain.Matter{}
		var number, notes sql.NullString
		var practiceAreaID sql.NullInt64
		var createdAt, updatedAt string

		err := rows.Scan(
			&matter.ID,
			&matter.ClientID,
			&matter.Name,
			&number,
			&practiceAreaID,
			&matter.Status,
			&notes,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matter: %w", err)
		}

		matter.Number = number.String
		matter.Notes = notes.String
		if practiceAreaID.Valid {
			matter.PracticeAreaID = &practiceAreaID.Int64
		}

		if matter.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if matter.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		matters = append(matters, matter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matters: %w", err)
	}

	return matters, nil
}

// Update updates an existing matter
func (r *MatterRepo) Update(ctx context.Context, matter *domain.Matter) error {
	if err := matter.Validate(); err != nil {
		return fmt.Errorf("invalid matter: %w", err)
	}

	query := `
		UPDATE matters
		SET client_id = ?, name = ?, number = ?, practice_area_id = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		matter.ClientID,
		matter.Name,
		matter.Number,
		nullableID(matter.PracticeAreaID),
		matter.Status,
		matter.Notes,
		formatTime(),
		matter.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update matter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("matter not found")
	}

	return nil
}

// Close marks a matter as closed
func (r *MatterRepo) Close(ctx context.Context, id int64) error {
	query := "UPDATE matters SET status = 'closed', updated_at = ? WHERE id = ?"

	result, err := r.db.ExecContext(ctx, query, formatTime(), id)
	if err != nil {
		return fmt.Errorf("failed to close matter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("matter not found")
	}

	return nil
}

// ListPracticeAreas retrieves all practice areas
func (r *MatterRepo) ListPracticeAreas(ctx context.Context) ([]*domain.PracticeArea, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM practice_areas ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list practice areas: %w", err)
	}
	defer rows.Close()

	areas := make([]*domain.PracticeArea, 0)
	for rows.Next() {
		area := &domain.PracticeArea{}
		if err := rows.Scan(&area.ID, &area.Name); err != nil {
			return nil, fmt.Errorf("failed to scan practice area: %w", err)
		}
		areas = append(areas, area)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating practice areas: %w", err)
	}

	return areas, nil
}

// CreatePracticeArea inserts a new practice area
func (r *MatterRepo) CreatePracticeArea(ctx context.Context, name string) (*domain.PracticeArea, error) {
	result, err := r.db.ExecContext(ctx, "INSERT INTO practice_areas (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create practice area: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get practice area ID: %w", err)
	}

	return &domain.PracticeArea{ID: id, Name: name}, nil
}

// ListActivityTypes retrieves all activity types
func (r *MatterRepo) ListActivityTypes(ctx context.Context) ([]*domain.ActivityType, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM activity_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list activity types: %w", err)
	}
	defer rows.Close()

	types := make([]*domain.ActivityType, 0)
	for rows.Next() {
		at := &domain.ActivityType{}
		if err := rows.Scan(&at.ID, &at.Name); err != nil {
			return nil, fmt.Errorf("failed to scan activity type: %w", err)
		}
		types = append(types, at)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity types: %w", err)
	}

	return types, nil
}

// CreateActivityType inserts a new activity type
func (r *MatterRepo) CreateActivityType(ctx context.Context, name string) (*domain.ActivityType, error) {
	result, err := r.db.ExecContext(ctx, "INSERT INTO activity_types (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity type ID: %w", err)
	}

	return &domain.ActivityType{ID: id, Name: name}, nil
}
