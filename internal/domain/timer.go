package domain

import "time"

type TimerState string

const (
	TimerStateIdle      TimerState = "idle"
	TimerStateRunning   TimerState = "running"
	TimerStatePaused    TimerState = "paused"
	TimerStateSuspended TimerState = "suspended" // paused by the idle check, awaiting a decision
)

// ActiveTimer is the single running work session. The work context (client,
// matter, practice area, activity type) can change while the timer runs; the
// embedded RateSelector decides whether those changes move the displayed
// rate. Persisted as a singleton row for crash recovery.
type ActiveTimer struct {
	ClientID           int64
	MatterID           int64
	Description        string
	PracticeAreaID     *int64
	ActivityTypeID     *int64
	StartTime          time.Time
	PausedAt           *time.Time
	TotalPausedSeconds int64
	LastActivityAt     time.Time
	IdleSince          *time.Time // set when the idle check suspended the timer
	Selector           RateSelector
}

// NewActiveTimer creates a new running timer for a work context
func NewActiveTimer(ctx WorkContext, description string, resolvedRate float64) *ActiveTimer {
	now := time.Now()
	t := &ActiveTimer{
		Description:    description,
		PracticeAreaID: ctx.PracticeAreaID,
		ActivityTypeID: ctx.ActivityTypeID,
		StartTime:      now,
		LastActivityAt: now,
		Selector:       *NewRateSelector(resolvedRate, ctx),
	}
	if ctx.ClientID != nil {
		t.ClientID = *ctx.ClientID
	}
	if ctx.MatterID != nil {
		t.MatterID = *ctx.MatterID
	}
	return t
}

// Context rebuilds the work context from the timer's selections
func (t *ActiveTimer) Context() WorkContext {
	ctx := WorkContext{
		PracticeAreaID: t.PracticeAreaID,
		ActivityTypeID: t.ActivityTypeID,
	}
	if t.ClientID > 0 {
		id := t.ClientID
		ctx.ClientID = &id
	}
	if t.MatterID > 0 {
		id := t.MatterID
		ctx.MatterID = &id
	}
	return ctx
}

// State returns the current timer state
func (t *ActiveTimer) State() TimerState {
	if t.IdleSince != nil {
		return TimerStateSuspended
	}
	if t.PausedAt != nil {
		return TimerStatePaused
	}
	return TimerStateRunning
}

// Elapsed returns the active duration (excluding paused time) as of now
func (t *ActiveTimer) Elapsed(now time.Time) time.Duration {
	totalElapsed := now.Sub(t.StartTime)
	pausedDuration := time.Duration(t.TotalPausedSeconds) * time.Second

	if t.PausedAt != nil {
		pausedDuration += now.Sub(*t.PausedAt)
	}

	return totalElapsed - pausedDuration
}

// MarkActivity records user activity, resetting the idle clock
func (t *ActiveTimer) MarkActivity(now time.Time) {
	t.LastActivityAt = now
}

// IdleFor returns how long the session has been without user activity
func (t *ActiveTimer) IdleFor(now time.Time) time.Duration {
	return now.Sub(t.LastActivityAt)
}

// Pause pauses the timer
func (t *ActiveTimer) Pause(now time.Time) {
	if t.PausedAt == nil {
		t.PausedAt = &now
	}
}

// Resume resumes a paused timer
func (t *ActiveTimer) Resume(now time.Time) {
	if t.PausedAt != nil {
		t.TotalPausedSeconds += int64(now.Sub(*t.PausedAt).Seconds())
		t.PausedAt = nil
	}
}

// Suspend is called by the idle check when the inactivity threshold expires.
// The clock stops and IdleSince records where the idle gap began so the
// caller can decide to keep or discard it.
func (t *ActiveTimer) Suspend(now time.Time) {
	if t.IdleSince != nil {
		return
	}
	idleStart := t.LastActivityAt
	t.IdleSince = &idleStart
	t.Pause(now)
}

// ResolveIdle applies the user's idle decision and restarts the clock.
// Keeping the gap bills the interval from the last activity to the suspend
// point; discarding converts it to paused time. The pause accrued while the
// user decided is never billed either way.
func (t *ActiveTimer) ResolveIdle(keep bool, now time.Time) {
	if t.IdleSince == nil {
		return
	}
	if !keep && t.PausedAt != nil {
		// The suspend point is where the pause began; everything from
		// IdleSince to there becomes non-billable.
		t.TotalPausedSeconds += int64(t.PausedAt.Sub(*t.IdleSince).Seconds())
	}
	t.IdleSince = nil
	t.Resume(now)
	t.MarkActivity(now)
}

// ActiveSeconds returns the billable raw seconds accumulated so far,
// treating the idle gap as discarded. Used to decide whether any session
// remains after an idle discard.
func (t *ActiveTimer) ActiveSeconds(now time.Time) int64 {
	elapsed := t.Elapsed(now)
	if t.IdleSince != nil && t.PausedAt != nil {
		elapsed -= t.PausedAt.Sub(*t.IdleSince)
	}
	secs := int64(elapsed.Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
