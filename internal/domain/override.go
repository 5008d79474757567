package domain

import "errors"

type OverrideState string

const (
	// OverrideStateResolved tracks the catalog: context changes re-resolve
	OverrideStateResolved OverrideState = "resolved"
	// OverrideStatePending holds a manual edit awaiting confirmation
	OverrideStatePending OverrideState = "pending"
	// OverrideStateOverridden pins the rate until reset
	OverrideStateOverridden OverrideState = "overridden"
)

var (
	ErrNoPendingRate     = errors.New("no rate edit pending confirmation")
	ErrRateNotOverridden = errors.New("rate is not overridden")
)

// RateSelector gates manual rate edits behind a confirmation step and lets a
// pinned rate be reverted to the catalog-resolved value. One selector lives
// per active work session; its fields persist alongside the session so crash
// recovery restores the machine where it left off.
type RateSelector struct {
	State       OverrideState
	PriorState  OverrideState // state a pending edit started from; Cancel returns here
	Rate        float64       // the displayed/effective rate
	PendingRate float64       // only meaningful in pending state
	Context     WorkContext
}

// NewRateSelector starts a selector in the resolved state at the given rate
func NewRateSelector(resolvedRate float64, ctx WorkContext) *RateSelector {
	return &RateSelector{
		State:      OverrideStateResolved,
		PriorState: OverrideStateResolved,
		Rate:       resolvedRate,
		Context:    ctx,
	}
}

// Overridden reports whether the effective rate is pinned
func (s *RateSelector) Overridden() bool {
	return s.State == OverrideStateOverridden
}

// Edit enters a manual rate. A first-time edit over an unset (zero) rate
// takes effect immediately; otherwise the edit waits for confirmation and
// the displayed rate is unchanged until then.
func (s *RateSelector) Edit(newRate float64) {
	if s.State == OverrideStateResolved && s.Rate == 0 {
		s.State = OverrideStateOverridden
		s.Rate = newRate
		return
	}
	if s.State != OverrideStatePending {
		s.PriorState = s.State
	}
	s.State = OverrideStatePending
	s.PendingRate = newRate
}

// Confirm commits a pending edit, pinning the rate
func (s *RateSelector) Confirm() error {
	if s.State != OverrideStatePending {
		return ErrNoPendingRate
	}
	s.State = OverrideStateOverridden
	s.Rate = s.PendingRate
	s.PendingRate = 0
	return nil
}

// Cancel abandons a pending edit. The selector returns to the state the edit
// started from, so editing over a pinned rate and backing out keeps the pin.
func (s *RateSelector) Cancel() error {
	if s.State != OverrideStatePending {
		return ErrNoPendingRate
	}
	s.State = s.PriorState
	if s.State == "" {
		s.State = OverrideStateResolved
	}
	s.PendingRate = 0
	return nil
}

// Reset unpins an overridden rate. The caller must follow up with
// SetResolved once the catalog has been re-consulted for the current
// context.
func (s *RateSelector) Reset() error {
	if s.State != OverrideStateOverridden {
		return ErrRateNotOverridden
	}
	s.State = OverrideStateResolved
	return nil
}

// SetContext records a work-context change. The returned bool tells the
// caller whether the catalog must be re-consulted: true in the resolved
// state, false while pinned (the context is remembered but the displayed
// rate does not move).
func (s *RateSelector) SetContext(ctx WorkContext) bool {
	s.Context = ctx
	return s.State == OverrideStateResolved
}

// SetResolved installs a freshly catalog-resolved rate. Ignored unless the
// selector is tracking the catalog.
func (s *RateSelector) SetResolved(rate float64) {
	if s.State == OverrideStateResolved {
		s.Rate = rate
	}
}
