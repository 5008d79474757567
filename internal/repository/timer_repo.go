package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// TimerRepo is a SQLite implementation of TimerRepository. The timer is a
// singleton row (id = 1) so a crashed session can be recovered on startup,
// rate selector state included.
type TimerRepo struct {
	db *db.DB
}

// NewTimerRepo creates a new TimerRepo
func NewTimerRepo(database *db.DB) *TimerRepo {
	return &TimerRepo{db: database}
}

// Get retrieves the active timer, or nil if no timer is running
func (r *TimerRepo) Get(ctx context.Context) (*domain.ActiveTimer, error) {
	query := `
		SELECT client_id, matter_id, description, practice_area_id, activity_type_id,
		       start_time, paused_at, total_paused_seconds, last_activity_at, idle_since,
		       rate_state, prior_rate_state, rate, pending_rate
		FROM active_timer
		WHERE id = 1
	`

	timer := &domain.ActiveTimer{}
	var description sql.NullString
	var practiceAreaID, activityTypeID sql.NullInt64
	var startTime, lastActivityAt string
	var pausedAt, idleSince sql.NullString

	err := r.db.QueryRowContext(ctx, query).Scan(
		&timer.ClientID,
		&timer.MatterID,
		&description,
		&practiceAreaID,
		&activityTypeID,
		&startTime,
		&pausedAt,
		&timer.TotalPausedSeconds,
		&lastActivityAt,
		&idleSince,
		&timer.Selector.State,
		&timer.Selector.PriorState,
		&timer.Selector.Rate,
		&timer.Selector.PendingRate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}

	timer.Description = description.String
	if practiceAreaID.Valid {
		timer.PracticeAreaID = &practiceAreaID.Int64
	}
	if activityTypeID.Valid {
		timer.ActivityTypeID = &activityTypeID.Int64
	}

	if timer.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if timer.LastActivityAt, err = parseTime(lastActivityAt); err != nil {
		return nil, fmt.Errorf("failed to parse last_activity_at: %w", err)
	}
	if pausedAt.Valid {
		t, err := parseTime(pausedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse paused_at: %w", err)
		}
		timer.PausedAt = &t
	}
	if idleSince.Valid {
		t, err := parseTime(idleSince.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse idle_since: %w", err)
		}
		timer.IdleSince = &t
	}

	timer.Selector.Context = timer.Context()

	return timer, nil
}

// Save persists the active timer, replacing any existing one
func (r *TimerRepo) Save(ctx context.Context, timer *domain.ActiveTimer) error {
	query := `
		INSERT OR REPLACE INTO active_timer (
			id, client_id, matter_id, description, practice_area_id, activity_type_id,
			start_time, paused_at, total_paused_seconds, last_activity_at, idle_since,
			rate_state, prior_rate_state, rate, pending_rate
		)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var pausedAt, idleSince interface{}
	if timer.PausedAt != nil {
		pausedAt = timer.PausedAt.Format(timeLayout)
	}
	if timer.IdleSince != nil {
		idleSince = timer.IdleSince.Format(timeLayout)
	}

	_, err := r.db.ExecContext(ctx, query,
		timer.ClientID,
		timer.MatterID,
		timer.Description,
		nullableID(timer.PracticeAreaID),
		nullableID(timer.ActivityTypeID),
		timer.StartTime.Format(timeLayout),
		pausedAt,
		timer.TotalPausedSeconds,
		timer.LastActivityAt.Format(timeLayout),
		idleSince,
		timer.Selector.State,
		timer.Selector.PriorState,
		timer.Selector.Rate,
		timer.Selector.PendingRate,
	)
	if err != nil {
		return fmt.Errorf("failed to save active timer: %w", err)
	}

	return nil
}

// Delete removes the active timer
func (r *TimerRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM active_timer WHERE id = 1")
	if err != nil {
		return fmt.Errorf("failed to delete active timer: %w", err)
	}
	return nil
}
