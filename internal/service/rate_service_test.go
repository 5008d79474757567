package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
)

func defaultRate(amount float64) *domain.RateDefinition {
	r := domain.NewRateDefinition("Standard", domain.RateTypeHourly, amount)
	r.IsDefault = true
	return r
}

func TestDeleteRate_SoleDefaultRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMockRateRepo(defaultRate(250))
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	err := svc.DeleteRate(ctx, 1)
	if !errors.Is(err, domain.ErrCannotDeleteDefault) {
		t.Fatalf("expected ErrCannotDeleteDefault, got %v", err)
	}
	if len(repo.rates) != 1 {
		t.Fatalf("default rate should not have been deleted")
	}
}

func TestDeleteRate_ScopedRateAllowed(t *testing.T) {
	ctx := context.Background()
	scoped := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	pa := int64(5)
	scoped.PracticeAreaID = &pa

	repo := newMockRateRepo(defaultRate(250), scoped)
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	if err := svc.DeleteRate(ctx, scoped.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.rates) != 1 {
		t.Fatalf("expected scoped rate deleted, %d rates remain", len(repo.rates))
	}
}

func TestUpdateRate_DemotingSoleDefaultRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMockRateRepo(defaultRate(250))
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	demoted := *repo.rates[1]
	demoted.IsDefault = false

	err := svc.UpdateRate(ctx, &demoted)
	if !errors.Is(err, domain.ErrCannotDeleteDefault) {
		t.Fatalf("expected ErrCannotDeleteDefault, got %v", err)
	}
}

func TestCreateRate_SecondDefaultRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMockRateRepo(defaultRate(250))
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	second := defaultRate(300)
	second.ID = 0
	if err := svc.CreateRate(ctx, second); err == nil {
		t.Fatalf("expected error creating a second default rate")
	}
}

func TestCreateRate_MatterMustBelongToScopedClient(t *testing.T) {
	ctx := context.Background()
	repo := newMockRateRepo(defaultRate(250))
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	// Matter 1 belongs to client 1, so scoping to client 99 contradicts it.
	bad := domain.NewRateDefinition("Conflicted", domain.RateTypeHourly, 300)
	matterID, clientID := int64(1), int64(99)
	bad.MatterID = &matterID
	bad.ClientID = &clientID

	err := svc.CreateRate(ctx, bad)
	if !errors.Is(err, ErrRateScopeMismatch) {
		t.Fatalf("expected ErrRateScopeMismatch, got %v", err)
	}
	if len(repo.rates) != 1 {
		t.Fatalf("mismatched definition should not have been stored")
	}

	owner := int64(1)
	good := domain.NewRateDefinition("Matter special", domain.RateTypeHourly, 300)
	good.MatterID = &matterID
	good.ClientID = &owner
	if err := svc.CreateRate(ctx, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateRate_MatterMustBelongToScopedClient(t *testing.T) {
	ctx := context.Background()
	repo := newMockRateRepo(defaultRate(250))
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	edited := *repo.rates[1]
	matterID, clientID := int64(1), int64(99)
	edited.IsDefault = false
	edited.MatterID = &matterID
	edited.ClientID = &clientID

	// Invalid scope must be caught before the default-demotion guard fires
	err := svc.UpdateRate(ctx, &edited)
	if !errors.Is(err, ErrRateScopeMismatch) {
		t.Fatalf("expected ErrRateScopeMismatch, got %v", err)
	}
	if !repo.rates[1].IsDefault {
		t.Fatalf("stored definition should be untouched after a rejected update")
	}
}

func TestResolve_PrefersMostSpecific(t *testing.T) {
	ctx := context.Background()

	lit := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	pa := int64(7)
	lit.PracticeAreaID = &pa

	repo := newMockRateRepo(defaultRate(250), lit)
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	res, err := svc.Resolve(ctx, domain.WorkContext{PracticeAreaID: &pa})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rate.Amount != 300 {
		t.Fatalf("expected litigation rate 300, got %v", res.Rate.Amount)
	}
}

func TestResolve_NoDefaultFails(t *testing.T) {
	ctx := context.Background()

	scoped := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	pa := int64(7)
	scoped.PracticeAreaID = &pa

	repo := newMockRateRepo(scoped)
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	_, err := svc.Resolve(ctx, domain.WorkContext{PracticeAreaID: &pa})
	if !errors.Is(err, domain.ErrNoDefaultRate) {
		t.Fatalf("expected ErrNoDefaultRate, got %v", err)
	}
}

func TestResolve_TieLogsWarning(t *testing.T) {
	ctx := context.Background()
	pa := int64(7)

	older := domain.NewRateDefinition("Litigation A", domain.RateTypeHourly, 300)
	older.PracticeAreaID = &pa
	older.CreatedAt = time.Now().Add(-time.Hour)

	newer := domain.NewRateDefinition("Litigation B", domain.RateTypeHourly, 325)
	newer.PracticeAreaID = &pa
	newer.CreatedAt = time.Now()

	logger, hook := test.NewNullLogger()
	repo := newMockRateRepo(defaultRate(250), older, newer)
	svc := NewRateService(repo, newMockMatterRepo(), logger)

	res, err := svc.Resolve(ctx, domain.WorkContext{PracticeAreaID: &pa})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rate.Name != "Litigation B" {
		t.Fatalf("expected newer definition to win, got %q", res.Rate.Name)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning about the resolution tie")
	}
}

func TestDuplicateRate_CopiesScope(t *testing.T) {
	ctx := context.Background()

	orig := domain.NewRateDefinition("Litigation", domain.RateTypeHourly, 300)
	pa := int64(7)
	orig.PracticeAreaID = &pa

	repo := newMockRateRepo(defaultRate(250), orig)
	svc := NewRateService(repo, newMockMatterRepo(), logging.NewNopLogger())

	dup, err := svc.DuplicateRate(ctx, orig.ID, "Litigation 2027")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup.ID == orig.ID {
		t.Fatalf("duplicate should get a new ID")
	}
	if dup.PracticeAreaID == nil || *dup.PracticeAreaID != pa {
		t.Fatalf("duplicate should keep the scope")
	}
	if dup.IsDefault {
		t.Fatalf("duplicate must never be a default")
	}
}
