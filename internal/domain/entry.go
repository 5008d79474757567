package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BillableType string

const (
	Billable    BillableType = "billable"
	NonBillable BillableType = "non_billable"
	NoCharge    BillableType = "no_charge"
)

var sixty = decimal.NewFromInt(60)

// ValidationError reports every field missing at finalize time so the caller
// can present them all at once. A failed finalize never stops the clock.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// TimeEntry is a finalized unit of work. The rate and rounded duration are
// frozen when the entry is created and never recomputed retroactively.
type TimeEntry struct {
	ID             int64
	ClientID       int64
	MatterID       int64
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	RawSeconds     int64 // measured elapsed time before rounding
	BilledMinutes  int64 // RawSeconds snapped to the rounding policy
	HourlyRate     float64
	RateType       RateType
	RateOverridden bool
	BillableType   BillableType
	PracticeAreaID *int64
	ActivityTypeID *int64
	IsDeleted      bool   // soft delete
	InvoiceID      *int64 // nil = unbilled, non-nil = locked
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BilledHours returns the rounded duration as fractional hours
func (e *TimeEntry) BilledHours() float64 {
	return float64(e.BilledMinutes) / 60
}

// Amount returns the billable value of the entry in currency, rounded to
// cents. Non-billable and no-charge entries contribute zero; a flat rate
// bills its amount once regardless of duration.
func (e *TimeEntry) Amount() decimal.Decimal {
	if e.BillableType != Billable {
		return decimal.Zero
	}
	if e.RateType == RateTypeFlat {
		return decimal.NewFromFloat(e.HourlyRate).Round(2)
	}
	return decimal.NewFromInt(e.BilledMinutes).
		Div(sixty).
		Mul(decimal.NewFromFloat(e.HourlyRate)).
		Round(2)
}

// IsLocked returns true if the entry is attached to an invoice
func (e *TimeEntry) IsLocked() bool {
	return e.InvoiceID != nil
}

// Validate returns an error if the entry is structurally invalid
func (e *TimeEntry) Validate() error {
	if e.ClientID <= 0 {
		return errors.New("client ID is required")
	}
	if e.MatterID <= 0 {
		return errors.New("matter ID is required")
	}
	if e.HourlyRate < 0 {
		return errors.New("rate cannot be negative")
	}
	if e.RawSeconds < 0 {
		return errors.New("raw seconds cannot be negative")
	}
	if e.BilledMinutes < 0 {
		return errors.New("billed minutes cannot be negative")
	}
	if e.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	if !e.EndTime.IsZero() && e.EndTime.Before(e.StartTime) {
		return errors.New("end time must be after start time")
	}
	switch e.BillableType {
	case Billable, NonBillable, NoCharge:
	default:
		return errors.New("billable type must be billable, non_billable, or no_charge")
	}
	return nil
}

// EntryHistory is one field-level revision on a time entry. Edits keep the
// original entry id; the audit trail records what changed and why.
type EntryHistory struct {
	ID           int64
	EntryID      int64
	FieldName    string
	OldValue     string
	NewValue     string
	ChangeReason string
	ChangedAt    time.Time
}
