package domain

import (
	"errors"
	"testing"
	"time"
)

func ptr(v int64) *int64 { return &v }

func defaultRate(amount float64) *RateDefinition {
	r := NewRateDefinition("standard", RateTypeHourly, amount)
	r.IsDefault = true
	return r
}

func TestResolveRateSpecificityPrecedence(t *testing.T) {
	clientID, matterID, paID, atID := ptr(int64(1)), ptr(int64(10)), ptr(int64(5)), ptr(int64(7))

	def := defaultRate(250)
	clientScoped := NewRateDefinition("client", RateTypeHourly, 275)
	clientScoped.ClientID = clientID
	matterScoped := NewRateDefinition("matter", RateTypeHourly, 300)
	matterScoped.ClientID = clientID
	matterScoped.MatterID = matterID
	activityScoped := NewRateDefinition("activity", RateTypeHourly, 350)
	activityScoped.ActivityTypeID = atID

	ctx := WorkContext{ClientID: clientID, MatterID: matterID, PracticeAreaID: paID, ActivityTypeID: atID}

	// Insertion order must not matter.
	orders := [][]*RateDefinition{
		{def, clientScoped, matterScoped, activityScoped},
		{activityScoped, matterScoped, clientScoped, def},
		{matterScoped, def, activityScoped, clientScoped},
	}
	for _, catalog := range orders {
		res, err := ResolveRate(catalog, ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Rate != activityScoped {
			t.Fatalf("expected activity-scoped rate, got %q ($%v)", res.Rate.Name, res.Rate.Amount)
		}
		if len(res.AmbiguousWith) != 0 {
			t.Fatalf("expected no ambiguity, got %d", len(res.AmbiguousWith))
		}
	}
}

func TestResolveRatePracticeAreaBeatsDefault(t *testing.T) {
	litigation := ptr(int64(3))

	def := defaultRate(250)
	pa := NewRateDefinition("litigation", RateTypeHourly, 300)
	pa.PracticeAreaID = litigation

	res, err := ResolveRate([]*RateDefinition{def, pa}, WorkContext{PracticeAreaID: litigation})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rate.Amount != 300 {
		t.Fatalf("expected $300/hr litigation rate, got $%v", res.Rate.Amount)
	}
}

func TestResolveRateFallsBackToDefault(t *testing.T) {
	def := defaultRate(250)
	other := NewRateDefinition("client", RateTypeHourly, 400)
	other.ClientID = ptr(int64(99))

	res, err := ResolveRate([]*RateDefinition{def, other}, WorkContext{ClientID: ptr(int64(1))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rate.IsDefault {
		t.Fatalf("expected default rate, got %q", res.Rate.Name)
	}
}

func TestResolveRateNoDefault(t *testing.T) {
	scoped := NewRateDefinition("client", RateTypeHourly, 400)
	scoped.ClientID = ptr(int64(99))

	_, err := ResolveRate([]*RateDefinition{scoped}, WorkContext{ClientID: ptr(int64(1))})
	if !errors.Is(err, ErrNoDefaultRate) {
		t.Fatalf("expected ErrNoDefaultRate, got %v", err)
	}

	_, err = ResolveRate(nil, WorkContext{})
	if !errors.Is(err, ErrNoDefaultRate) {
		t.Fatalf("expected ErrNoDefaultRate for empty catalog, got %v", err)
	}
}

func TestResolveRateTieBreaksOnMostRecent(t *testing.T) {
	matterID := ptr(int64(10))

	def := defaultRate(250)
	older := NewRateDefinition("older", RateTypeHourly, 280)
	older.MatterID = matterID
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewRateDefinition("newer", RateTypeHourly, 320)
	newer.MatterID = matterID

	res, err := ResolveRate([]*RateDefinition{def, older, newer}, WorkContext{MatterID: matterID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rate != newer {
		t.Fatalf("expected most recently created rate to win, got %q", res.Rate.Name)
	}
	if len(res.AmbiguousWith) != 1 || res.AmbiguousWith[0] != older {
		t.Fatalf("expected the older definition flagged as ambiguous")
	}
}

func TestRateDefinitionMatches(t *testing.T) {
	r := NewRateDefinition("scoped", RateTypeHourly, 100)
	r.ClientID = ptr(int64(1))
	r.PracticeAreaID = ptr(int64(2))

	if !r.Matches(WorkContext{ClientID: ptr(int64(1)), PracticeAreaID: ptr(int64(2)), MatterID: ptr(int64(9))}) {
		t.Fatal("expected match when all set fields agree")
	}
	if r.Matches(WorkContext{ClientID: ptr(int64(1))}) {
		t.Fatal("expected no match when ctx lacks a constrained field")
	}
	if r.Matches(WorkContext{ClientID: ptr(int64(2)), PracticeAreaID: ptr(int64(2))}) {
		t.Fatal("expected no match on differing client")
	}
}

func TestRateDefinitionValidate(t *testing.T) {
	r := NewRateDefinition("bad", RateTypeHourly, -1)
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for negative amount")
	}

	d := defaultRate(250)
	d.ClientID = ptr(int64(1))
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for scoped default")
	}
}
