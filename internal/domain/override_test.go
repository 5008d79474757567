package domain

import "testing"

func TestRateSelectorEditRequiresConfirmation(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})

	s.Edit(400)
	if s.State != OverrideStatePending {
		t.Fatalf("expected pending state, got %s", s.State)
	}
	if s.Rate != 250 {
		t.Fatalf("displayed rate should be unchanged while pending, got %v", s.Rate)
	}

	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != OverrideStateOverridden || s.Rate != 400 {
		t.Fatalf("expected overridden at 400, got %s at %v", s.State, s.Rate)
	}
}

func TestRateSelectorCancelReverts(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})
	s.Edit(999)

	if err := s.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != OverrideStateResolved || s.Rate != 250 {
		t.Fatalf("expected resolved at 250, got %s at %v", s.State, s.Rate)
	}
}

func TestRateSelectorCancelKeepsPinnedRate(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})
	s.Edit(400)
	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Backing out of an edit over a pinned rate must keep the pin, not
	// silently fall back to tracking the catalog.
	s.Edit(999)
	if err := s.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != OverrideStateOverridden || s.Rate != 400 {
		t.Fatalf("expected overridden at 400 after cancel, got %s at %v", s.State, s.Rate)
	}
	s.SetResolved(275) // still pinned, must not move
	if s.Rate != 400 {
		t.Fatalf("pinned rate moved to %v", s.Rate)
	}

	// A second edit from the pinned state can still be confirmed.
	s.Edit(500)
	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != OverrideStateOverridden || s.Rate != 500 {
		t.Fatalf("expected overridden at 500, got %s at %v", s.State, s.Rate)
	}
}

func TestRateSelectorZeroRateFastPath(t *testing.T) {
	// A first-time edit over an unset rate needs no confirmation.
	s := NewRateSelector(0, WorkContext{})
	s.Edit(150)
	if s.State != OverrideStateOverridden || s.Rate != 150 {
		t.Fatalf("expected immediate override at 150, got %s at %v", s.State, s.Rate)
	}
}

func TestRateSelectorResetReturnsToCatalog(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})
	s.Edit(400)
	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != OverrideStateResolved {
		t.Fatalf("expected resolved state, got %s", s.State)
	}
	s.SetResolved(275)
	if s.Rate != 275 {
		t.Fatalf("expected re-resolved rate 275, got %v", s.Rate)
	}
}

func TestRateSelectorContextChanges(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})

	if !s.SetContext(WorkContext{ClientID: ptr(int64(1))}) {
		t.Fatal("resolved selector should request re-resolution on ctx change")
	}
	s.SetResolved(300)
	if s.Rate != 300 {
		t.Fatalf("expected 300, got %v", s.Rate)
	}

	s.Edit(500)
	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pinned: ctx is recorded but the rate must not move.
	newCtx := WorkContext{ClientID: ptr(int64(2))}
	if s.SetContext(newCtx) {
		t.Fatal("overridden selector should not request re-resolution")
	}
	s.SetResolved(275) // must be a no-op while pinned
	if s.Rate != 500 {
		t.Fatalf("overridden rate moved to %v", s.Rate)
	}
	if s.Context.ClientID == nil || *s.Context.ClientID != 2 {
		t.Fatal("context change was not recorded")
	}
}

func TestRateSelectorInvalidTransitions(t *testing.T) {
	s := NewRateSelector(250, WorkContext{})
	if err := s.Confirm(); err == nil {
		t.Fatal("expected error confirming without a pending edit")
	}
	if err := s.Cancel(); err == nil {
		t.Fatal("expected error canceling without a pending edit")
	}
	if err := s.Reset(); err == nil {
		t.Fatal("expected error resetting without an override")
	}
}
