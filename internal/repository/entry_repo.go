package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// EntryRepo is a SQLite implementation of TimeEntryRepository
type EntryRepo struct {
	db *db.DB
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(database *db.DB) *EntryRepo {
	return &EntryRepo{db: database}
}

const entryColumns = `id, client_id, matter_id, description, start_time, end_time,
	raw_seconds, billed_minutes, hourly_rate, rate_type, rate_overridden, billable_type,
	practice_area_id, activity_type_id, is_deleted, invoice_id, created_at, updated_at`

// Create inserts a new time entry into the database
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid time entry: %w", err)
	}

	query := `
		INSERT INTO time_entries (
			client_id, matter_id, description, start_time, end_time,
			raw_seconds, billed_minutes, hourly_rate, rate_type, rate_overridden, billable_type,
			practice_area_id, activity_type_id, is_deleted, invoice_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.ClientID,
		entry.MatterID,
		entry.Description,
		entry.StartTime.Format(timeLayout),
		entry.EndTime.Format(timeLayout),
		entry.RawSeconds,
		entry.BilledMinutes,
		entry.HourlyRate,
		entry.RateType,
		entry.RateOverridden,
		entry.BillableType,
		nullableID(entry.PracticeAreaID),
		nullableID(entry.ActivityTypeID),
		entry.IsDeleted,
		nullableID(entry.InvoiceID),
		entry.CreatedAt.Format(timeLayout),
		entry.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get time entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByID retrieves a time entry by ID
func (r *EntryRepo) GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE id = ?"

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}

	return entry, nil
}

// Update updates an existing time entry and creates audit records.
// The entry keeps its id; every changed field gets a history row.
func (r *EntryRepo) Update(ctx context.Context, entry *domain.TimeEntry, reason string) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid time entry: %w", err)
	}

	locked, err := r.IsLocked(ctx, entry.ID)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("cannot update time entry: locked by invoice")
	}

	oldEntry, err := r.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	if oldEntry == nil {
		return fmt.Errorf("time entry not found")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE time_entries
		SET client_id = ?, matter_id = ?, description = ?, start_time = ?, end_time = ?,
		    raw_seconds = ?, billed_minutes = ?, hourly_rate = ?, rate_type = ?,
		    rate_overridden = ?, billable_type = ?, practice_area_id = ?, activity_type_id = ?,
		    updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`

	entry.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, query,
		entry.ClientID,
		entry.MatterID,
		entry.Description,
		entry.StartTime.Format(timeLayout),
		entry.EndTime.Format(timeLayout),
		entry.RawSeconds,
		entry.BilledMinutes,
		entry.HourlyRate,
		entry.RateType,
		entry.RateOverridden,
		entry.BillableType,
		nullableID(entry.PracticeAreaID),
		nullableID(entry.ActivityTypeID),
		entry.UpdatedAt.Format(timeLayout),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("time entry not found or already deleted")
	}

	if err := createAuditRecords(ctx, tx, oldEntry, entry, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SoftDelete marks a time entry as deleted
func (r *EntryRepo) SoftDelete(ctx context.Context, id int64, reason string) error {
	locked, err := r.IsLocked(ctx, id)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("cannot delete time entry: locked by invoice")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE time_entries SET is_deleted = 1, updated_at = ? WHERE id = ?",
		formatTime(), id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("time entry not found")
	}

	historyQuery := `
		INSERT INTO entry_history (entry_id, field_name, old_value, new_value, change_reason, changed_at)
		VALUES (?, 'is_deleted', '0', '1', ?, ?)
	`

	if _, err := tx.ExecContext(ctx, historyQuery, id, reason, formatTime()); err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List retrieves time entries with optional filters
func (r *EntryRepo) List(ctx context.Context, clientID *int64, start, end *time.Time, includeLocked bool) ([]*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE is_deleted = 0"
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " AND client_id = ?"
		args = append(args, *clientID)
	}
	if start != nil {
		query += " AND start_time >= ?"
		args = append(args, start.Format(timeLayout))
	}
	if end != nil {
		query += " AND start_time <= ?"
		args = append(args, end.Format(timeLayout))
	}
	if !includeLocked {
		query += " AND invoice_id IS NULL"
	}
	query += " ORDER BY start_time DESC"

	return r.queryEntries(ctx, query, args...)
}

// GetUnbilledByClient retrieves unbilled time entries for a client within a date range
func (r *EntryRepo) GetUnbilledByClient(ctx context.Context, clientID int64, start, end time.Time) ([]*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + ` FROM time_entries
		WHERE client_id = ?
		  AND invoice_id IS NULL
		  AND is_deleted = 0
		  AND start_time >= ?
		  AND start_time <= ?
		ORDER BY start_time
	`

	return r.queryEntries(ctx, query, clientID, start.Format(timeLayout), end.Format(timeLayout))
}

func (r *EntryRepo) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*domain.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}

	return entries, nil
}

// IsLocked checks if a time entry is locked (attached to an invoice)
func (r *EntryRepo) IsLocked(ctx context.Context, id int64) (bool, error) {
	var invoiceID sql.NullInt64
	query := "SELECT invoice_id FROM time_entries WHERE id = ?"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("time entry not found")
		}
		return false, fmt.Errorf("failed to check lock status: %w", err)
	}

	return invoiceID.Valid, nil
}

// LockForInvoice locks multiple time entries by attaching them to an invoice
func (r *EntryRepo) LockForInvoice(ctx context.Context, entryIDs []int64, invoiceID int64) error {
	if len(entryIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE time_entries
		SET invoice_id = ?, updated_at = ?
		WHERE id = ? AND invoice_id IS NULL AND is_deleted = 0
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	updateTime := formatTime()
	for _, entryID := range entryIDs {
		result, err := stmt.ExecContext(ctx, invoiceID, updateTime, entryID)
		if err != nil {
			return fmt.Errorf("failed to lock entry %d: %w", entryID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for entry %d: %w", entryID, err)
		}
		if rows == 0 {
			return fmt.Errorf("entry %d not found, already locked, or deleted", entryID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Unlock releases a single entry back to the unbilled pool
func (r *EntryRepo) Unlock(ctx context.Context, entryID int64) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE time_entries SET invoice_id = NULL, updated_at = ? WHERE id = ?",
		formatTime(), entryID)
	if err != nil {
		return fmt.Errorf("failed to unlock entry %d: %w", entryID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("time entry not found")
	}

	return nil
}

// UnlockForInvoice releases all entries held by an invoice back to the
// unbilled pool. Used when a draft invoice is deleted.
func (r *EntryRepo) UnlockForInvoice(ctx context.Context, invoiceID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE time_entries SET invoice_id = NULL, updated_at = ? WHERE invoice_id = ?",
		formatTime(), invoiceID)
	if err != nil {
		return fmt.Errorf("failed to unlock entries for invoice %d: %w", invoiceID, err)
	}
	return nil
}

// GetHistory retrieves the audit trail for a time entry
func (r *EntryRepo) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	query := `
		SELECT id, entry_id, field_name, old_value, new_value, change_reason, changed_at
		FROM entry_history
		WHERE entry_id = ?
		ORDER BY changed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", err)
	}
	defer rows.Close()

	history := make([]*domain.EntryHistory, 0)
	for rows.Next() {
		h := &domain.EntryHistory{}
		var changedAt string

		err := rows.Scan(
			&h.ID,
			&h.EntryID,
			&h.FieldName,
			&h.OldValue,
			&h.NewValue,
			&h.ChangeReason,
			&changedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		if h.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, fmt.Errorf("failed to parse changed_at: %w", err)
		}

		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}

// createAuditRecords creates history records for changed fields
func createAuditRecords(ctx context.Context, tx *sql.Tx, old, new *domain.TimeEntry, reason string) error {
	changedAt := formatTime()

	insertHistory := func(fieldName, oldVal, newVal string) error {
		if oldVal == newVal {
			return nil
		}
		query := `
			INSERT INTO entry_history (entry_id, field_name, old_value, new_value, change_reason, changed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query, new.ID, fieldName, oldVal, newVal, reason, changedAt)
		return err
	}

	changes := []struct {
		field    string
		oldValue string
		newValue string
	}{
		{"client_id", strconv.FormatInt(old.ClientID, 10), strconv.FormatInt(new.ClientID, 10)},
		{"matter_id", strconv.FormatInt(old.MatterID, 10), strconv.FormatInt(new.MatterID, 10)},
		{"description", old.Description, new.Description},
		{"start_time", old.StartTime.Format(timeLayout), new.StartTime.Format(timeLayout)},
		{"end_time", old.EndTime.Format(timeLayout), new.EndTime.Format(timeLayout)},
		{"raw_seconds", strconv.FormatInt(old.RawSeconds, 10), strconv.FormatInt(new.RawSeconds, 10)},
		{"billed_minutes", strconv.FormatInt(old.BilledMinutes, 10), strconv.FormatInt(new.BilledMinutes, 10)},
		{"hourly_rate", fmt.Sprintf("%.2f", old.HourlyRate), fmt.Sprintf("%.2f", new.HourlyRate)},
		{"billable_type", string(old.BillableType), string(new.BillableType)},
	}

	for _, c := range changes {
		if err := insertHistory(c.field, c.oldValue, c.newValue); err != nil {
			return fmt.Errorf("failed to audit %s change: %w", c.field, err)
		}
	}

	return nil
}

// scanEntry parses one time entry row
func scanEntry(row rowScanner) (*domain.TimeEntry, error) {
	entry := &domain.TimeEntry{}
	var description sql.NullString
	var practiceAreaID, activityTypeID, invoiceID sql.NullInt64
	var startTime, endTime, createdAt, updatedAt string

	err := row.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.MatterID,
		&description,
		&startTime,
		&endTime,
		&entry.RawSeconds,
		&entry.BilledMinutes,
		&entry.HourlyRate,
		&entry.RateType,
		&entry.RateOverridden,
		&entry.BillableType,
		&practiceAreaID,
		&activityTypeID,
		&entry.IsDeleted,
		&invoiceID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Description = description.String
	if practiceAreaID.Valid {
		entry.PracticeAreaID = &practiceAreaID.Int64
	}
	if activityTypeID.Valid {
		entry.ActivityTypeID = &activityTypeID.Int64
	}
	if invoiceID.Valid {
		entry.InvoiceID = &invoiceID.Int64
	}

	if entry.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if entry.EndTime, err = parseTime(endTime); err != nil {
		return nil, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return entry, nil
}
