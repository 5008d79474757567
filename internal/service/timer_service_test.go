package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
)

type timerFixture struct {
	svc       TimerService
	timerRepo *mockTimerRepo
	entryRepo *mockEntryRepo
	rateRepo  *mockRateRepo
	clock     *fakeClock
}

func newTimerFixture(rates ...*domain.RateDefinition) *timerFixture {
	timerRepo := &mockTimerRepo{}
	entryRepo := newMockEntryRepo()
	rateRepo := newMockRateRepo(rates...)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	logger := logging.NewNopLogger()

	rateSvc := NewRateService(rateRepo, newMockMatterRepo(), logger)
	entrySvc := NewEntryService(
		entryRepo,
		newMockMatterRepo(),
		newMockPolicyRepo(),
		rateSvc,
		domain.NewRoundingPolicy(6, domain.RoundNearest),
		logger,
	)

	return &timerFixture{
		svc: NewTimerService(
			timerRepo, newMockClientRepo(), newMockMatterRepo(),
			rateSvc, entrySvc, clock, logger,
		),
		timerRepo: timerRepo,
		entryRepo: entryRepo,
		rateRepo:  rateRepo,
		clock:     clock,
	}
}

func workCtx() domain.WorkContext {
	clientID, matterID := int64(1), int64(1)
	return domain.WorkContext{ClientID: &clientID, MatterID: &matterID}
}

// installTimer puts a running timer under the fixture's clock so elapsed
// arithmetic is deterministic
func (f *timerFixture) installTimer(rate float64, description string) *domain.ActiveTimer {
	timer := domain.NewActiveTimer(workCtx(), description, rate)
	timer.StartTime = f.clock.now
	timer.LastActivityAt = f.clock.now
	f.timerRepo.timer = timer
	return timer
}

func TestTimerStart_ResolvesRate(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))

	if err := f.svc.Start(ctx, workCtx(), "Draft motion"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timer := f.timerRepo.timer
	if timer == nil {
		t.Fatalf("expected timer to be saved")
	}
	if timer.Selector.Rate != 250 {
		t.Fatalf("expected resolved rate 250, got %v", timer.Selector.Rate)
	}
	if timer.Selector.State != domain.OverrideStateResolved {
		t.Fatalf("expected resolved state, got %v", timer.Selector.State)
	}
}

func TestTimerStart_AlreadyRunning(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "first")

	err := f.svc.Start(ctx, workCtx(), "second")
	if !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Fatalf("expected ErrTimerAlreadyRunning, got %v", err)
	}
}

func TestTimerStart_NoDefaultStartsUnrated(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture() // empty catalog

	if err := f.svc.Start(ctx, workCtx(), "Research"); err != nil {
		t.Fatalf("expected unrated start, got %v", err)
	}
	if f.timerRepo.timer.Selector.Rate != 0 {
		t.Fatalf("expected zero rate, got %v", f.timerRepo.timer.Selector.Rate)
	}
}

func TestTimerPauseResume_ExcludesPausedTime(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	f.clock.Advance(30 * time.Minute)
	if err := f.svc.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}

	f.clock.Advance(15 * time.Minute)
	if err := f.svc.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	elapsed, err := f.svc.ElapsedDuration(ctx)
	if err != nil {
		t.Fatalf("elapsed: %v", err)
	}
	if elapsed != 40*time.Minute {
		t.Fatalf("expected 40m active, got %v", elapsed)
	}
}

func TestTimerStop_CreatesRoundedEntry(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "Deposition prep")

	// 1h04m12s raw rounds to 66 minutes at a 6-minute nearest increment
	f.clock.Advance(time.Hour + 4*time.Minute + 12*time.Second)

	entry, err := f.svc.Stop(ctx, domain.Billable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatalf("expected an entry")
	}
	if entry.BilledMinutes != 66 {
		t.Fatalf("expected 66 billed minutes, got %d", entry.BilledMinutes)
	}
	if entry.HourlyRate != 250 {
		t.Fatalf("expected frozen rate 250, got %v", entry.HourlyRate)
	}
	if f.timerRepo.timer != nil {
		t.Fatalf("timer should be cleared after stop")
	}
}

func TestTimerStop_MissingDescriptionKeepsTimer(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "")
	f.clock.Advance(time.Hour)

	_, err := f.svc.Stop(ctx, domain.Billable)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Missing) != 1 || vErr.Missing[0] != "description" {
		t.Fatalf("expected missing description, got %v", vErr.Missing)
	}
	if f.timerRepo.timer == nil {
		t.Fatalf("timer must survive a failed finalize")
	}
}

func TestTimerStop_ZeroDurationSilentlyDropped(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "blip")
	f.clock.Advance(90 * time.Second) // rounds to zero at 6-minute nearest

	entry, err := f.svc.Stop(ctx, domain.Billable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected no entry for a zero-rounded session")
	}
	if f.timerRepo.timer != nil {
		t.Fatalf("timer should be cleared")
	}
	if len(f.entryRepo.entries) != 0 {
		t.Fatalf("no entry should be stored")
	}
}

func TestTimerRateOverride_FullCycle(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	// Edit stages without moving the displayed rate
	if err := f.svc.EditRate(ctx, 400); err != nil {
		t.Fatalf("edit: %v", err)
	}
	timer := f.timerRepo.timer
	if timer.Selector.State != domain.OverrideStatePending {
		t.Fatalf("expected pending state, got %v", timer.Selector.State)
	}
	if timer.Selector.Rate != 250 {
		t.Fatalf("displayed rate must not move before confirm, got %v", timer.Selector.Rate)
	}

	if err := f.svc.ConfirmRate(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	timer = f.timerRepo.timer
	if !timer.Selector.Overridden() || timer.Selector.Rate != 400 {
		t.Fatalf("expected pinned rate 400, got %v in %v", timer.Selector.Rate, timer.Selector.State)
	}

	// Reset re-resolves from the catalog
	if err := f.svc.ResetRate(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	timer = f.timerRepo.timer
	if timer.Selector.State != domain.OverrideStateResolved || timer.Selector.Rate != 250 {
		t.Fatalf("expected resolved 250 after reset, got %v in %v", timer.Selector.Rate, timer.Selector.State)
	}
}

func TestTimerRateOverride_CancelReverts(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	if err := f.svc.EditRate(ctx, 400); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := f.svc.CancelRate(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	timer := f.timerRepo.timer
	if timer.Selector.State != domain.OverrideStateResolved || timer.Selector.Rate != 250 {
		t.Fatalf("expected resolved 250 after cancel, got %v in %v", timer.Selector.Rate, timer.Selector.State)
	}
}

func TestTimerRateOverride_EditOverZeroPinsImmediately(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture() // no catalog, unrated timer
	f.installTimer(0, "work")

	if err := f.svc.EditRate(ctx, 175); err != nil {
		t.Fatalf("edit: %v", err)
	}
	timer := f.timerRepo.timer
	if !timer.Selector.Overridden() || timer.Selector.Rate != 175 {
		t.Fatalf("expected immediate pin at 175, got %v in %v", timer.Selector.Rate, timer.Selector.State)
	}
}

func TestUpdateWorkContext_PinnedRateStays(t *testing.T) {
	ctx := context.Background()

	pa := int64(7)
	lit := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	lit.PracticeAreaID = &pa

	f := newTimerFixture(defaultRate(250), lit)
	f.installTimer(250, "work")

	// Pin at 400
	if err := f.svc.EditRate(ctx, 400); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := f.svc.ConfirmRate(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Context change is recorded but the rate does not move
	wctx := workCtx()
	wctx.PracticeAreaID = &pa
	if err := f.svc.UpdateWorkContext(ctx, wctx); err != nil {
		t.Fatalf("update context: %v", err)
	}

	timer := f.timerRepo.timer
	if timer.Selector.Rate != 400 {
		t.Fatalf("pinned rate must not re-resolve, got %v", timer.Selector.Rate)
	}
	if timer.PracticeAreaID == nil || *timer.PracticeAreaID != pa {
		t.Fatalf("context change should be recorded")
	}

	// After reset the new context resolves to the litigation rate
	if err := f.svc.ResetRate(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.timerRepo.timer.Selector.Rate != 300 {
		t.Fatalf("expected litigation rate 300 after reset, got %v", f.timerRepo.timer.Selector.Rate)
	}
}

func TestUpdateWorkContext_ResolvedFollowsCatalog(t *testing.T) {
	ctx := context.Background()

	pa := int64(7)
	lit := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	lit.PracticeAreaID = &pa

	f := newTimerFixture(defaultRate(250), lit)
	f.installTimer(250, "work")

	wctx := workCtx()
	wctx.PracticeAreaID = &pa
	if err := f.svc.UpdateWorkContext(ctx, wctx); err != nil {
		t.Fatalf("update context: %v", err)
	}

	if f.timerRepo.timer.Selector.Rate != 300 {
		t.Fatalf("expected rate to follow catalog to 300, got %v", f.timerRepo.timer.Selector.Rate)
	}
}

func TestCheckIdle_SuspendsAfterThreshold(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	f.clock.Advance(5 * time.Minute)
	suspended, err := f.svc.CheckIdle(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("check idle: %v", err)
	}
	if suspended {
		t.Fatalf("should not suspend before the threshold")
	}

	f.clock.Advance(6 * time.Minute)
	suspended, err = f.svc.CheckIdle(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("check idle: %v", err)
	}
	if !suspended {
		t.Fatalf("expected suspension after 11 idle minutes")
	}
	if f.timerRepo.timer.State() != domain.TimerStateSuspended {
		t.Fatalf("expected suspended state, got %v", f.timerRepo.timer.State())
	}
}

func TestResolveIdle_KeepBillsTheGap(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	// 30m of work, then 15m idle before the check fires
	f.clock.Advance(30 * time.Minute)
	f.timerRepo.timer.MarkActivity(f.clock.now)
	f.clock.Advance(15 * time.Minute)

	if _, err := f.svc.CheckIdle(ctx, 10*time.Minute); err != nil {
		t.Fatalf("check idle: %v", err)
	}

	// 5m pass while the user decides, then they keep the gap
	f.clock.Advance(5 * time.Minute)
	if err := f.svc.ResolveIdle(ctx, true); err != nil {
		t.Fatalf("resolve idle: %v", err)
	}

	elapsed, err := f.svc.ElapsedDuration(ctx)
	if err != nil {
		t.Fatalf("elapsed: %v", err)
	}
	if elapsed != 45*time.Minute {
		t.Fatalf("expected 45m billable (work + kept gap), got %v", elapsed)
	}
}

func TestResolveIdle_DiscardDropsTheGap(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "work")

	f.clock.Advance(30 * time.Minute)
	f.timerRepo.timer.MarkActivity(f.clock.now)
	f.clock.Advance(15 * time.Minute)

	if _, err := f.svc.CheckIdle(ctx, 10*time.Minute); err != nil {
		t.Fatalf("check idle: %v", err)
	}

	f.clock.Advance(5 * time.Minute)
	if err := f.svc.ResolveIdle(ctx, false); err != nil {
		t.Fatalf("resolve idle: %v", err)
	}

	elapsed, err := f.svc.ElapsedDuration(ctx)
	if err != nil {
		t.Fatalf("elapsed: %v", err)
	}
	if elapsed != 30*time.Minute {
		t.Fatalf("expected 30m billable after discard, got %v", elapsed)
	}
}

func TestRecoverFromCrash_ReturnsLeftoverTimer(t *testing.T) {
	ctx := context.Background()
	f := newTimerFixture(defaultRate(250))
	f.installTimer(250, "interrupted work")

	timer, err := f.svc.RecoverFromCrash(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timer == nil {
		t.Fatalf("expected the leftover timer")
	}
}
