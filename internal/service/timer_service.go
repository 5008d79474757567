package service

import (
	"context"
	"errors"
	"time"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
	"github.com/jparks/lexledger/internal/repository"
)

var (
	ErrTimerAlreadyRunning = errors.New("timer is already running")
	ErrTimerNotRunning     = errors.New("timer is not running")
	ErrTimerNotPaused      = errors.New("timer is not paused")
	ErrTimerNotSuspended   = errors.New("timer is not suspended")
	ErrNoActiveTimer       = errors.New("no active timer")
)

// Clock abstracts time.Now so timer arithmetic is testable
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now
func NewRealClock() Clock { return realClock{} }

// TimerService manages the single work session: its clock, its idle
// handling, and the rate selector attached to it
type TimerService interface {
	// GetState returns the current timer state
	GetState(ctx context.Context) (domain.TimerState, error)

	// GetActiveTimer returns the current active timer, or nil if idle
	GetActiveTimer(ctx context.Context) (*domain.ActiveTimer, error)

	// Start creates a new timer for a work context. The rate is resolved
	// from the catalog; when the catalog has no default the timer starts
	// with a zero rate that a manual edit can pin.
	Start(ctx context.Context, wctx domain.WorkContext, description string) error

	// Pause pauses the running timer
	Pause(ctx context.Context) error

	// Resume resumes a paused or suspended timer. Resuming a suspended
	// timer keeps the idle gap.
	Resume(ctx context.Context) error

	// Stop finalizes the session into a time entry. A session that rounds
	// to zero returns (nil, nil) and the timer is cleared either way.
	Stop(ctx context.Context, billableType domain.BillableType) (*domain.TimeEntry, error)

	// Discard drops the session without creating an entry
	Discard(ctx context.Context) error

	// ElapsedDuration returns the active (unpaused) duration so far
	ElapsedDuration(ctx context.Context) (time.Duration, error)

	// UpdateWorkContext changes the session's client/matter/practice
	// area/activity selections. In the resolved state the rate follows the
	// catalog; a pinned rate stays put.
	UpdateWorkContext(ctx context.Context, wctx domain.WorkContext) error

	// UpdateDescription changes the session description
	UpdateDescription(ctx context.Context, description string) error

	// EditRate stages a manual rate. Over an unset rate it takes effect
	// immediately; otherwise ConfirmRate or CancelRate must follow.
	EditRate(ctx context.Context, rate float64) error

	// ConfirmRate commits a staged rate edit
	ConfirmRate(ctx context.Context) error

	// CancelRate abandons a staged rate edit
	CancelRate(ctx context.Context) error

	// ResetRate unpins an overridden rate and re-resolves from the catalog
	ResetRate(ctx context.Context) error

	// MarkActivity resets the idle clock
	MarkActivity(ctx context.Context) error

	// CheckIdle suspends the running timer once the inactivity threshold
	// passes. Returns true if the timer is suspended after the call.
	CheckIdle(ctx context.Context, threshold time.Duration) (bool, error)

	// ResolveIdle applies the keep-or-discard decision for a suspended
	// timer and restarts the clock
	ResolveIdle(ctx context.Context, keep bool) error

	// RecoverFromCrash reports a timer left over from a previous run
	RecoverFromCrash(ctx context.Context) (*domain.ActiveTimer, error)
}

type timerService struct {
	timerRepo    repository.TimerRepository
	clientRepo   repository.ClientRepository
	matterRepo   repository.MatterRepository
	rateService  RateService
	entryService EntryService
	clock        Clock
	logger       logging.Logger
}

// NewTimerService creates a new timer service
func NewTimerService(
	timerRepo repository.TimerRepository,
	clientRepo repository.ClientRepository,
	matterRepo repository.MatterRepository,
	rateService RateService,
	entryService EntryService,
	clock Clock,
	logger logging.Logger,
) TimerService {
	return &timerService{
		timerRepo:    timerRepo,
		clientRepo:   clientRepo,
		matterRepo:   matterRepo,
		rateService:  rateService,
		entryService: entryService,
		clock:        clock,
		logger:       logger,
	}
}

func (s *timerService) GetState(ctx context.Context) (domain.TimerState, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if timer == nil {
		return domain.TimerStateIdle, nil
	}
	return timer.State(), nil
}

func (s *timerService) GetActiveTimer(ctx context.Context) (*domain.ActiveTimer, error) {
	return s.timerRepo.Get(ctx)
}

func (s *timerService) Start(ctx context.Context, wctx domain.WorkContext, description string) error {
	if wctx.ClientID != nil {
		client, err := s.clientRepo.GetByID(ctx, *wctx.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return errors.New("client not found")
		}
	}
	if wctx.MatterID != nil {
		matter, err := s.matterRepo.GetByID(ctx, *wctx.MatterID)
		if err != nil {
			return err
		}
		if matter == nil {
			return errors.New("matter not found")
		}
	}

	existing, err := s.timerRepo.Get(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrTimerAlreadyRunning
	}

	rate := 0.0
	res, err := s.rateService.Resolve(ctx, wctx)
	switch {
	case err == nil:
		rate = res.Rate.Amount
	case errors.Is(err, domain.ErrNoDefaultRate):
		s.logger.Warn("no default rate in catalog; timer starts unrated")
	default:
		return err
	}

	timer := domain.NewActiveTimer(wctx, description, rate)
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Pause(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if timer.State() != domain.TimerStateRunning {
		return ErrTimerNotRunning
	}

	timer.Pause(s.clock.Now())
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Resume(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	switch timer.State() {
	case domain.TimerStatePaused:
		timer.Resume(now)
		timer.MarkActivity(now)
	case domain.TimerStateSuspended:
		timer.ResolveIdle(true, now)
	default:
		return ErrTimerNotPaused
	}

	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Stop(ctx context.Context, billableType domain.BillableType) (*domain.TimeEntry, error) {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.entryService.FinalizeFromTimer(ctx, timer, billableType, s.clock.Now())
	if err != nil {
		// Validation failures leave the timer in place so the user can
		// fill in what's missing without losing the session
		return nil, err
	}

	if err := s.timerRepo.Delete(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *timerService) Discard(ctx context.Context) error {
	if _, err := s.requireTimer(ctx); err != nil {
		return err
	}
	return s.timerRepo.Delete(ctx)
}

func (s *timerService) ElapsedDuration(ctx context.Context) (time.Duration, error) {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return 0, err
	}
	return timer.Elapsed(s.clock.Now()), nil
}

func (s *timerService) UpdateWorkContext(ctx context.Context, wctx domain.WorkContext) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}

	if wctx.ClientID != nil {
		timer.ClientID = *wctx.ClientID
	} else {
		timer.ClientID = 0
	}
	if wctx.MatterID != nil {
		timer.MatterID = *wctx.MatterID
	} else {
		timer.MatterID = 0
	}
	timer.PracticeAreaID = wctx.PracticeAreaID
	timer.ActivityTypeID = wctx.ActivityTypeID

	if timer.Selector.SetContext(wctx) {
		res, err := s.rateService.Resolve(ctx, wctx)
		switch {
		case err == nil:
			timer.Selector.SetResolved(res.Rate.Amount)
		case errors.Is(err, domain.ErrNoDefaultRate):
			timer.Selector.SetResolved(0)
		default:
			return err
		}
	}

	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) UpdateDescription(ctx context.Context, description string) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	timer.Description = description
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) EditRate(ctx context.Context, rate float64) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if rate < 0 {
		return errors.New("rate cannot be negative")
	}

	timer.Selector.Edit(rate)
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) ConfirmRate(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if err := timer.Selector.Confirm(); err != nil {
		return err
	}
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) CancelRate(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if err := timer.Selector.Cancel(); err != nil {
		return err
	}
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) ResetRate(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if err := timer.Selector.Reset(); err != nil {
		return err
	}

	res, err := s.rateService.Resolve(ctx, timer.Context())
	switch {
	case err == nil:
		timer.Selector.SetResolved(res.Rate.Amount)
	case errors.Is(err, domain.ErrNoDefaultRate):
		timer.Selector.SetResolved(0)
	default:
		return err
	}

	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) MarkActivity(ctx context.Context) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	timer.MarkActivity(s.clock.Now())
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) CheckIdle(ctx context.Context, threshold time.Duration) (bool, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return false, err
	}
	if timer == nil {
		return false, nil
	}

	switch timer.State() {
	case domain.TimerStateSuspended:
		return true, nil
	case domain.TimerStateRunning:
	default:
		return false, nil
	}

	now := s.clock.Now()
	if threshold <= 0 || timer.IdleFor(now) < threshold {
		return false, nil
	}

	timer.Suspend(now)
	if err := s.timerRepo.Save(ctx, timer); err != nil {
		return false, err
	}

	s.logger.WithFields(logging.Fields{
		"idle_for": timer.IdleFor(now).String(),
	}).Info("timer suspended by idle check")

	return true, nil
}

func (s *timerService) ResolveIdle(ctx context.Context, keep bool) error {
	timer, err := s.requireTimer(ctx)
	if err != nil {
		return err
	}
	if timer.State() != domain.TimerStateSuspended {
		return ErrTimerNotSuspended
	}

	timer.ResolveIdle(keep, s.clock.Now())
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) RecoverFromCrash(ctx context.Context) (*domain.ActiveTimer, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, nil
	}

	s.logger.WithFields(logging.Fields{
		"started": timer.StartTime.Format(time.RFC3339),
		"state":   string(timer.State()),
	}).Info("recovered timer from previous session")

	return timer, nil
}

func (s *timerService) requireTimer(ctx context.Context) (*domain.ActiveTimer, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, ErrNoActiveTimer
	}
	return timer, nil
}
