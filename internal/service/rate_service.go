package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
	"github.com/jparks/lexledger/internal/repository"
)

var (
	ErrRateNotFound      = errors.New("rate definition not found")
	ErrRateScopeMismatch = errors.New("scoped matter does not belong to the scoped client")
)

// RateService maintains the layered rate catalog and answers resolution
// queries against it
type RateService interface {
	// CreateRate adds a definition to the catalog
	CreateRate(ctx context.Context, rate *domain.RateDefinition) error

	// GetRate retrieves one definition
	GetRate(ctx context.Context, id int64) (*domain.RateDefinition, error)

	// ListRates returns the whole catalog
	ListRates(ctx context.Context) ([]*domain.RateDefinition, error)

	// UpdateRate modifies an existing definition
	UpdateRate(ctx context.Context, rate *domain.RateDefinition) error

	// DeleteRate removes a definition. Deleting the sole default is rejected.
	DeleteRate(ctx context.Context, id int64) error

	// DuplicateRate copies a definition under a new name so a similar scope
	// can be set up without retyping everything
	DuplicateRate(ctx context.Context, id int64, newName string) (*domain.RateDefinition, error)

	// Resolve picks the effective rate for a work context
	Resolve(ctx context.Context, wctx domain.WorkContext) (*domain.Resolution, error)
}

type rateService struct {
	rateRepo   repository.RateRepository
	matterRepo repository.MatterRepository
	logger     logging.Logger
}

// NewRateService creates a new rate service
func NewRateService(rateRepo repository.RateRepository, matterRepo repository.MatterRepository, logger logging.Logger) RateService {
	return &rateService{rateRepo: rateRepo, matterRepo: matterRepo, logger: logger}
}

// checkScope rejects a definition whose matter scope contradicts its client
// scope. A matter already names its client, so when both fields are set they
// must agree or the definition could never match any real work context.
func (s *rateService) checkScope(ctx context.Context, rate *domain.RateDefinition) error {
	if rate.MatterID == nil || rate.ClientID == nil {
		return nil
	}
	matter, err := s.matterRepo.GetByID(ctx, *rate.MatterID)
	if err != nil {
		return err
	}
	if matter == nil {
		return fmt.Errorf("matter %d not found", *rate.MatterID)
	}
	if matter.ClientID != *rate.ClientID {
		return ErrRateScopeMismatch
	}
	return nil
}

func (s *rateService) CreateRate(ctx context.Context, rate *domain.RateDefinition) error {
	if err := s.checkScope(ctx, rate); err != nil {
		return err
	}
	if rate.IsDefault {
		count, err := s.rateRepo.CountDefaults(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.New("a default rate already exists")
		}
	}
	return s.rateRepo.Create(ctx, rate)
}

func (s *rateService) GetRate(ctx context.Context, id int64) (*domain.RateDefinition, error) {
	return s.rateRepo.GetByID(ctx, id)
}

func (s *rateService) ListRates(ctx context.Context) ([]*domain.RateDefinition, error) {
	return s.rateRepo.List(ctx)
}

func (s *rateService) UpdateRate(ctx context.Context, rate *domain.RateDefinition) error {
	existing, err := s.rateRepo.GetByID(ctx, rate.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrRateNotFound
	}

	if err := s.checkScope(ctx, rate); err != nil {
		return err
	}

	// Demoting the sole default would leave the catalog unresolvable
	if existing.IsDefault && !rate.IsDefault {
		count, err := s.rateRepo.CountDefaults(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return domain.ErrCannotDeleteDefault
		}
	}

	return s.rateRepo.Update(ctx, rate)
}

func (s *rateService) DeleteRate(ctx context.Context, id int64) error {
	rate, err := s.rateRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rate == nil {
		return ErrRateNotFound
	}

	if rate.IsDefault {
		count, err := s.rateRepo.CountDefaults(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return domain.ErrCannotDeleteDefault
		}
	}

	return s.rateRepo.Delete(ctx, id)
}

func (s *rateService) DuplicateRate(ctx context.Context, id int64, newName string) (*domain.RateDefinition, error) {
	rate, err := s.rateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ErrRateNotFound
	}
	if newName == "" {
		newName = fmt.Sprintf("%s (copy)", rate.Name)
	}

	dup := domain.NewRateDefinition(newName, rate.RateType, rate.Amount)
	dup.ClientID = rate.ClientID
	dup.MatterID = rate.MatterID
	dup.PracticeAreaID = rate.PracticeAreaID
	dup.ActivityTypeID = rate.ActivityTypeID

	if err := s.rateRepo.Create(ctx, dup); err != nil {
		return nil, err
	}

	return dup, nil
}

func (s *rateService) Resolve(ctx context.Context, wctx domain.WorkContext) (*domain.Resolution, error) {
	defs, err := s.rateRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	res, err := domain.ResolveRate(defs, wctx)
	if err != nil {
		return nil, err
	}

	if len(res.AmbiguousWith) > 0 {
		names := make([]string, len(res.AmbiguousWith))
		for i, def := range res.AmbiguousWith {
			names[i] = def.Name
		}
		s.logger.WithFields(logging.Fields{
			"winner":    res.Rate.Name,
			"ambiguous": names,
		}).Warn("rate resolution tie broken by creation time; review catalog scopes")
	}

	return res, nil
}
