package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
)

type entryFixture struct {
	svc        EntryService
	entryRepo  *mockEntryRepo
	policyRepo *mockPolicyRepo
}

func newEntryFixture(rates ...*domain.RateDefinition) *entryFixture {
	entryRepo := newMockEntryRepo()
	policyRepo := newMockPolicyRepo()
	logger := logging.NewNopLogger()

	return &entryFixture{
		svc: NewEntryService(
			entryRepo,
			newMockMatterRepo(),
			policyRepo,
			NewRateService(newMockRateRepo(rates...), newMockMatterRepo(), logger),
			domain.NewRoundingPolicy(6, domain.RoundNearest),
			logger,
		),
		entryRepo:  entryRepo,
		policyRepo: policyRepo,
	}
}

func TestFinalize_ReportsAllMissingFields(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	timer := &domain.ActiveTimer{StartTime: time.Now()}

	_, err := f.svc.FinalizeFromTimer(ctx, timer, domain.Billable, time.Now())
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Missing) != 3 {
		t.Fatalf("expected client, matter, description all reported, got %v", vErr.Missing)
	}
}

func TestFinalize_UsesMatterPolicyOverride(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	// Matter 1 rounds up to 15-minute increments instead of the firm default
	f.policyRepo.policies[1] = &domain.RoundingPolicy{
		IncrementMinutes: 15,
		Method:           domain.RoundUp,
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	timer := domain.NewActiveTimer(workCtx(), "Client call", 250)
	timer.StartTime = start
	timer.LastActivityAt = start

	// 16 minutes raw: firm policy would say 18, the override says 30
	now := start.Add(16 * time.Minute)
	entry, err := f.svc.FinalizeFromTimer(ctx, timer, domain.Billable, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.BilledMinutes != 30 {
		t.Fatalf("expected 30 minutes under the matter override, got %d", entry.BilledMinutes)
	}
}

func TestCreateManual_ResolvesRateFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry, err := f.svc.CreateManual(ctx, ManualEntryParams{
		ClientID:    1,
		MatterID:    1,
		Description: "Document review",
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.HourlyRate != 250 {
		t.Fatalf("expected catalog rate 250, got %v", entry.HourlyRate)
	}
	if entry.RateOverridden {
		t.Fatalf("catalog-resolved entry must not be marked overridden")
	}
	if entry.BilledMinutes != 90 {
		t.Fatalf("expected 90 minutes, got %d", entry.BilledMinutes)
	}
	if entry.BillableType != domain.Billable {
		t.Fatalf("expected billable by default, got %v", entry.BillableType)
	}
}

func TestCreateManual_RateOverride(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	override := 500.0
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry, err := f.svc.CreateManual(ctx, ManualEntryParams{
		ClientID:     1,
		MatterID:     1,
		Description:  "Expert consult",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		RateOverride: &override,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.HourlyRate != 500 || !entry.RateOverridden {
		t.Fatalf("expected overridden rate 500, got %v (overridden=%v)", entry.HourlyRate, entry.RateOverridden)
	}
}

func TestUpdateEntry_ReRoundsAndAudits(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry, err := f.svc.CreateManual(ctx, ManualEntryParams{
		ClientID:    1,
		MatterID:    1,
		Description: "Research",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	originalID := entry.ID

	entry.EndTime = start.Add(2 * time.Hour)
	if err := f.svc.UpdateEntry(ctx, entry, "forgot to stop the clock"); err != nil {
		t.Fatalf("update: %v", err)
	}

	if entry.ID != originalID {
		t.Fatalf("edit must preserve the entry ID")
	}
	if entry.BilledMinutes != 120 {
		t.Fatalf("expected re-rounded 120 minutes, got %d", entry.BilledMinutes)
	}

	history, err := f.svc.GetHistory(ctx, originalID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) == 0 {
		t.Fatalf("expected an audit record for the edit")
	}
	if history[0].ChangeReason != "forgot to stop the clock" {
		t.Fatalf("expected reason recorded, got %q", history[0].ChangeReason)
	}
}

func TestUpdateEntry_LockedRejected(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(defaultRate(250))

	invID := int64(9)
	locked := &domain.TimeEntry{
		ID: 1, ClientID: 1, MatterID: 1,
		Description:   "Billed work",
		StartTime:     time.Now().Add(-time.Hour),
		EndTime:       time.Now(),
		BilledMinutes: 60,
		BillableType:  domain.Billable,
		InvoiceID:     &invID,
	}
	f.entryRepo.entries[1] = locked

	if err := f.svc.UpdateEntry(ctx, locked, "tweak"); !errors.Is(err, ErrEntryLocked) {
		t.Fatalf("expected ErrEntryLocked, got %v", err)
	}
	if err := f.svc.DeleteEntry(ctx, 1, "cleanup"); !errors.Is(err, ErrEntryLocked) {
		t.Fatalf("expected ErrEntryLocked on delete, got %v", err)
	}
}
