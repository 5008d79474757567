package domain

import (
	"errors"
	"time"
)

type RateType string

const (
	RateTypeHourly RateType = "hourly"
	RateTypeFlat   RateType = "flat"
)

// ErrNoDefaultRate is returned when the catalog has no unscoped default.
// Rate resolution cannot proceed until an administrator repairs the catalog.
var ErrNoDefaultRate = errors.New("rate catalog has no default rate")

// ErrCannotDeleteDefault rejects deletion of the sole default rate
var ErrCannotDeleteDefault = errors.New("cannot delete the default rate")

// RateDefinition is one layer of the firm's rate catalog. A scope field left
// nil matches any work context; the single fully-unscoped definition with
// IsDefault set is the fallback of last resort.
type RateDefinition struct {
	ID             int64
	Name           string
	RateType       RateType
	Amount         float64 // currency/hour for hourly, currency for flat
	ClientID       *int64
	MatterID       *int64
	PracticeAreaID *int64
	ActivityTypeID *int64
	IsDefault      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRateDefinition creates an unscoped hourly rate definition
func NewRateDefinition(name string, rateType RateType, amount float64) *RateDefinition {
	now := time.Now()
	return &RateDefinition{
		Name:      name,
		RateType:  rateType,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the definition is invalid
func (r *RateDefinition) Validate() error {
	if r.Amount < 0 {
		return errors.New("rate amount cannot be negative")
	}
	if r.RateType != RateTypeHourly && r.RateType != RateTypeFlat {
		return errors.New("rate type must be hourly or flat")
	}
	if r.IsDefault && r.Scoped() {
		return errors.New("the default rate must be fully unscoped")
	}
	return nil
}

// Scoped returns true if any scope field is set
func (r *RateDefinition) Scoped() bool {
	return r.ClientID != nil || r.MatterID != nil || r.PracticeAreaID != nil || r.ActivityTypeID != nil
}

// WorkContext is the query key against the rate catalog. Absent fields mean
// the caller imposes no constraint.
type WorkContext struct {
	ClientID       *int64
	MatterID       *int64
	PracticeAreaID *int64
	ActivityTypeID *int64
}

// Matches reports whether every scope field set on the definition equals the
// corresponding context field. Unset definition fields match anything.
func (r *RateDefinition) Matches(ctx WorkContext) bool {
	if r.ClientID != nil && (ctx.ClientID == nil || *ctx.ClientID != *r.ClientID) {
		return false
	}
	if r.MatterID != nil && (ctx.MatterID == nil || *ctx.MatterID != *r.MatterID) {
		return false
	}
	if r.PracticeAreaID != nil && (ctx.PracticeAreaID == nil || *ctx.PracticeAreaID != *r.PracticeAreaID) {
		return false
	}
	if r.ActivityTypeID != nil && (ctx.ActivityTypeID == nil || *ctx.ActivityTypeID != *r.ActivityTypeID) {
		return false
	}
	return true
}

// Specificity ranks a matching definition by its most specific matched
// scope field: activity type beats practice area beats matter beats client
// beats the unscoped default.
func (r *RateDefinition) Specificity() int {
	switch {
	case r.ActivityTypeID != nil:
		return 4
	case r.PracticeAreaID != nil:
		return 3
	case r.MatterID != nil:
		return 2
	case r.ClientID != nil:
		return 1
	default:
		return 0
	}
}

// Resolution is the outcome of resolving a work context against the catalog.
// AmbiguousWith holds any equal-specificity definitions that lost the
// tie-break; callers should surface these as data-quality warnings.
type Resolution struct {
	Rate          *RateDefinition
	AmbiguousWith []*RateDefinition
}

// ResolveRate picks the single best-matching rate definition for ctx.
// Among all matching definitions the one with the highest specificity wins;
// equal-specificity ties go to the most recently created definition. The
// catalog is never mutated. Returns ErrNoDefaultRate when nothing matches
// and no default exists.
func ResolveRate(defs []*RateDefinition, ctx WorkContext) (*Resolution, error) {
	var best *RateDefinition
	var ties []*RateDefinition

	hasDefault := false
	for _, def := range defs {
		if def.IsDefault {
			hasDefault = true
		}
		if !def.Matches(ctx) {
			continue
		}
		if best == nil {
			best = def
			continue
		}
		switch {
		case def.Specificity() > best.Specificity():
			best = def
			ties = nil
		case def.Specificity() == best.Specificity():
			if def.CreatedAt.After(best.CreatedAt) {
				ties = append(ties, best)
				best = def
			} else {
				ties = append(ties, def)
			}
		}
	}

	// A catalog with no default is an integrity failure even when a scoped
	// definition happens to match.
	if !hasDefault || best == nil {
		return nil, ErrNoDefaultRate
	}

	return &Resolution{Rate: best, AmbiguousWith: ties}, nil
}
