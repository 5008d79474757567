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
	ErrEntryLocked = errors.New("entry is locked to an invoice")
)

// ManualEntryParams describes a hand-entered unit of work
type ManualEntryParams struct {
	ClientID       int64
	MatterID       int64
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	BillableType   domain.BillableType
	PracticeAreaID *int64
	ActivityTypeID *int64

	// RateOverride, when non-nil, replaces the catalog-resolved hourly rate
	RateOverride *float64
}

// EntryService turns finished work sessions into billable time entries and
// manages them afterwards
type EntryService interface {
	// FinalizeFromTimer builds and stores the entry for a stopped timer.
	// A session whose rounded duration is zero produces no entry and no
	// error. Missing required fields are reported together via
	// domain.ValidationError.
	FinalizeFromTimer(ctx context.Context, timer *domain.ActiveTimer, billableType domain.BillableType, now time.Time) (*domain.TimeEntry, error)

	// CreateManual creates an entry from explicit start and end times,
	// resolving the rate from the catalog unless overridden
	CreateManual(ctx context.Context, params ManualEntryParams) (*domain.TimeEntry, error)

	// GetEntry retrieves an entry by ID
	GetEntry(ctx context.Context, id int64) (*domain.TimeEntry, error)

	// ListEntries lists entries with optional filters
	ListEntries(ctx context.Context, clientID *int64, start, end *time.Time, includeLocked bool) ([]*domain.TimeEntry, error)

	// UpdateEntry edits an entry in place. The entry keeps its ID and every
	// change lands in the audit trail with the given reason.
	UpdateEntry(ctx context.Context, entry *domain.TimeEntry, reason string) error

	// DeleteEntry soft-deletes an entry
	DeleteEntry(ctx context.Context, id int64, reason string) error

	// GetHistory returns the audit trail for an entry
	GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error)
}

type entryService struct {
	entryRepo   repository.TimeEntryRepository
	matterRepo  repository.MatterRepository
	policyRepo  repository.PolicyRepository
	rateService RateService
	firmPolicy  domain.RoundingPolicy
	logger      logging.Logger
}

// NewEntryService creates a new entry service. firmPolicy is the firm-wide
// rounding policy applied when a matter carries no override.
func NewEntryService(
	entryRepo repository.TimeEntryRepository,
	matterRepo repository.MatterRepository,
	policyRepo repository.PolicyRepository,
	rateService RateService,
	firmPolicy domain.RoundingPolicy,
	logger logging.Logger,
) EntryService {
	return &entryService{
		entryRepo:   entryRepo,
		matterRepo:  matterRepo,
		policyRepo:  policyRepo,
		rateService: rateService,
		firmPolicy:  firmPolicy,
		logger:      logger,
	}
}

// policyFor returns the matter's rounding policy override, or the firm policy
func (s *entryService) policyFor(ctx context.Context, matterID int64) (domain.RoundingPolicy, error) {
	policy, err := s.policyRepo.GetForMatter(ctx, matterID)
	if err != nil {
		return domain.RoundingPolicy{}, err
	}
	if policy == nil {
		return s.firmPolicy, nil
	}
	return *policy, nil
}

func (s *entryService) FinalizeFromTimer(ctx context.Context, timer *domain.ActiveTimer, billableType domain.BillableType, now time.Time) (*domain.TimeEntry, error) {
	missing := make([]string, 0)
	if timer.ClientID <= 0 {
		missing = append(missing, "client")
	}
	if timer.MatterID <= 0 {
		missing = append(missing, "matter")
	}
	if timer.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Missing: missing}
	}

	rawSeconds := timer.ActiveSeconds(now)

	policy, err := s.policyFor(ctx, timer.MatterID)
	if err != nil {
		return nil, err
	}

	billedMinutes := policy.RoundSeconds(rawSeconds)
	if billedMinutes == 0 {
		// Nothing billable survived rounding; drop the session quietly
		s.logger.WithFields(logging.Fields{
			"raw_seconds": rawSeconds,
			"policy":      policy.String(),
		}).Debug("session rounded to zero, no entry created")
		return nil, nil
	}

	rateType := domain.RateTypeHourly
	if res, err := s.rateService.Resolve(ctx, timer.Context()); err == nil && !timer.Selector.Overridden() {
		rateType = res.Rate.RateType
	}

	entry := &domain.TimeEntry{
		ClientID:       timer.ClientID,
		MatterID:       timer.MatterID,
		Description:    timer.Description,
		StartTime:      timer.StartTime,
		EndTime:        now,
		RawSeconds:     rawSeconds,
		BilledMinutes:  billedMinutes,
		HourlyRate:     timer.Selector.Rate,
		RateType:       rateType,
		RateOverridden: timer.Selector.Overridden(),
		BillableType:   billableType,
		PracticeAreaID: timer.PracticeAreaID,
		ActivityTypeID: timer.ActivityTypeID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"entry_id":       entry.ID,
		"billed_minutes": entry.BilledMinutes,
		"rate":           entry.HourlyRate,
	}).Info("time entry finalized")

	return entry, nil
}

func (s *entryService) CreateManual(ctx context.Context, params ManualEntryParams) (*domain.TimeEntry, error) {
	missing := make([]string, 0)
	if params.ClientID <= 0 {
		missing = append(missing, "client")
	}
	if params.MatterID <= 0 {
		missing = append(missing, "matter")
	}
	if params.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Missing: missing}
	}

	if params.EndTime.Before(params.StartTime) {
		return nil, errors.New("end time must be after start time")
	}

	matter, err := s.matterRepo.GetByID(ctx, params.MatterID)
	if err != nil {
		return nil, err
	}
	if matter == nil {
		return nil, errors.New("matter not found")
	}

	rawSeconds := int64(params.EndTime.Sub(params.StartTime).Seconds())

	policy, err := s.policyFor(ctx, params.MatterID)
	if err != nil {
		return nil, err
	}

	billedMinutes := policy.RoundSeconds(rawSeconds)
	if billedMinutes == 0 {
		return nil, nil
	}

	rate := 0.0
	rateType := domain.RateTypeHourly
	overridden := false
	if params.RateOverride != nil {
		rate = *params.RateOverride
		overridden = true
	} else {
		wctx := domain.WorkContext{
			PracticeAreaID: params.PracticeAreaID,
			ActivityTypeID: params.ActivityTypeID,
		}
		clientID, matterID := params.ClientID, params.MatterID
		wctx.ClientID = &clientID
		wctx.MatterID = &matterID

		res, err := s.rateService.Resolve(ctx, wctx)
		if err != nil {
			return nil, err
		}
		rate = res.Rate.Amount
		rateType = res.Rate.RateType
	}

	now := time.Now()
	billableType := params.BillableType
	if billableType == "" {
		billableType = domain.Billable
	}

	entry := &domain.TimeEntry{
		ClientID:       params.ClientID,
		MatterID:       params.MatterID,
		Description:    params.Description,
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		RawSeconds:     rawSeconds,
		BilledMinutes:  billedMinutes,
		HourlyRate:     rate,
		RateType:       rateType,
		RateOverridden: overridden,
		BillableType:   billableType,
		PracticeAreaID: params.PracticeAreaID,
		ActivityTypeID: params.ActivityTypeID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *entryService) GetEntry(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	return s.entryRepo.GetByID(ctx, id)
}

func (s *entryService) ListEntries(ctx context.Context, clientID *int64, start, end *time.Time, includeLocked bool) ([]*domain.TimeEntry, error) {
	return s.entryRepo.List(ctx, clientID, start, end, includeLocked)
}

func (s *entryService) UpdateEntry(ctx context.Context, entry *domain.TimeEntry, reason string) error {
	locked, err := s.entryRepo.IsLocked(ctx, entry.ID)
	if err != nil {
		return err
	}
	if locked {
		return ErrEntryLocked
	}

	// Re-round in case the duration changed
	policy, err := s.policyFor(ctx, entry.MatterID)
	if err != nil {
		return err
	}
	entry.RawSeconds = int64(entry.EndTime.Sub(entry.StartTime).Seconds())
	entry.BilledMinutes = policy.RoundSeconds(entry.RawSeconds)

	return s.entryRepo.Update(ctx, entry, reason)
}

func (s *entryService) DeleteEntry(ctx context.Context, id int64, reason string) error {
	locked, err := s.entryRepo.IsLocked(ctx, id)
	if err != nil {
		return err
	}
	if locked {
		return ErrEntryLocked
	}
	return s.entryRepo.SoftDelete(ctx, id, reason)
}

func (s *entryService) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	return s.entryRepo.GetHistory(ctx, entryID)
}
