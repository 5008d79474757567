package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
)

type invoiceFixture struct {
	svc         InvoiceService
	invoiceRepo *mockInvoiceRepo
	entryRepo   *mockEntryRepo
}

func newInvoiceFixture(entries ...*domain.TimeEntry) *invoiceFixture {
	invoiceRepo := newMockInvoiceRepo()
	entryRepo := newMockEntryRepo(entries...)

	return &invoiceFixture{
		svc:         NewInvoiceService(invoiceRepo, entryRepo, newMockClientRepo(), logging.NewNopLogger()),
		invoiceRepo: invoiceRepo,
		entryRepo:   entryRepo,
	}
}

func billableEntry(id int64, minutes int64, rate float64) *domain.TimeEntry {
	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return &domain.TimeEntry{
		ID:            id,
		ClientID:      1,
		MatterID:      1,
		Description:   "work",
		StartTime:     start,
		EndTime:       start.Add(time.Duration(minutes) * time.Minute),
		RawSeconds:    minutes * 60,
		BilledMinutes: minutes,
		HourlyRate:    rate,
		RateType:      domain.RateTypeHourly,
		BillableType:  domain.Billable,
	}
}

func period() (time.Time, time.Time) {
	return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)
}

func TestCreateDraft_LocksEntriesAndComputesSubtotal(t *testing.T) {
	ctx := context.Background()
	// 270m and 171m at $250/h: 1125.00 + 712.50 = 1837.50
	f := newInvoiceFixture(billableEntry(1, 270, 250), billableEntry(2, 171, 250))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invoice.Status != domain.InvoiceStatusDraft {
		t.Fatalf("expected draft status, got %v", invoice.Status)
	}
	if len(invoice.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(invoice.LineItems))
	}
	if !invoice.Subtotal.Equal(decimal.RequireFromString("1837.50")) {
		t.Fatalf("expected subtotal 1837.50, got %s", invoice.Subtotal)
	}

	for _, id := range []int64{1, 2} {
		locked, _ := f.entryRepo.IsLocked(ctx, id)
		if !locked {
			t.Fatalf("entry %d should be locked to the draft", id)
		}
	}
}

func TestCreateDraft_NoUnbilledEntries(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	start, end := period()

	if _, err := f.svc.CreateDraft(ctx, 1, start, end, "INV"); err == nil {
		t.Fatalf("expected error with no unbilled entries")
	}
}

func TestSetAdjustments_PercentageDiscountAndTax(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 270, 250), billableEntry(2, 171, 250))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 10% discount then 8% tax: 1837.50 - 183.75 = 1653.75, tax 132.30
	if err := f.svc.SetAdjustments(ctx, invoice.ID, 8, 10, domain.DiscountPercentage); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	updated, err := f.svc.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !updated.DiscountValue.Equal(decimal.RequireFromString("183.75")) {
		t.Fatalf("expected discount 183.75, got %s", updated.DiscountValue)
	}
	if !updated.TaxValue.Equal(decimal.RequireFromString("132.30")) {
		t.Fatalf("expected tax 132.30, got %s", updated.TaxValue)
	}
	if !updated.Total.Equal(decimal.RequireFromString("1786.05")) {
		t.Fatalf("expected total 1786.05, got %s", updated.Total)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 60, 100)) // $100 invoice
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Payments against a draft are rejected
	if _, err := f.svc.ApplyPayment(ctx, invoice.ID, 50, time.Now(), "check", "1001"); err == nil {
		t.Fatalf("expected payment against draft to fail")
	}

	due := time.Now().AddDate(0, 0, 30)
	if err := f.svc.MarkSent(ctx, invoice.ID, due); err != nil {
		t.Fatalf("send: %v", err)
	}

	sent, _ := f.svc.GetInvoice(ctx, invoice.ID)
	if !sent.BalanceDue.Equal(sent.Total) {
		t.Fatalf("balance due should open at the total")
	}

	// Partial payment
	updated, err := f.svc.ApplyPayment(ctx, invoice.ID, 40, time.Now(), "check", "1002")
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if updated.Status != domain.InvoiceStatusPartialPayment {
		t.Fatalf("expected partial_payment, got %v", updated.Status)
	}
	if !updated.BalanceDue.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("expected balance 60, got %s", updated.BalanceDue)
	}

	// Overpayment rejected, balance untouched
	if _, err := f.svc.ApplyPayment(ctx, invoice.ID, 75, time.Now(), "check", "1003"); !errors.Is(err, domain.ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}

	// Exact payoff
	updated, err = f.svc.ApplyPayment(ctx, invoice.ID, 60, time.Now(), "wire", "1004")
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if updated.Status != domain.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %v", updated.Status)
	}
	if !updated.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance, got %s", updated.BalanceDue)
	}
}

func TestDeleteDraft_ReleasesEntries(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 60, 100))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.DeleteDraft(ctx, invoice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	locked, _ := f.entryRepo.IsLocked(ctx, 1)
	if locked {
		t.Fatalf("entry should be unlocked after draft deletion")
	}
	if inv, _ := f.svc.GetInvoice(ctx, invoice.ID); inv != nil {
		t.Fatalf("invoice should be gone")
	}
}

func TestDeleteDraft_SentInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 60, 100))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.MarkSent(ctx, invoice.ID, time.Now().AddDate(0, 0, 30)); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := f.svc.DeleteDraft(ctx, invoice.ID); !errors.Is(err, domain.ErrInvoiceNotDeletable) {
		t.Fatalf("expected ErrInvoiceNotDeletable, got %v", err)
	}
}

func TestRemoveEntry_UnlocksAndRecalculates(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 120, 50), billableEntry(2, 60, 75))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.RemoveEntry(ctx, invoice.ID, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	updated, _ := f.svc.GetInvoice(ctx, invoice.ID)
	if len(updated.LineItems) != 1 {
		t.Fatalf("expected 1 line item left, got %d", len(updated.LineItems))
	}
	if !updated.Subtotal.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("expected subtotal 75 after removal, got %s", updated.Subtotal)
	}

	locked, _ := f.entryRepo.IsLocked(ctx, 1)
	if locked {
		t.Fatalf("removed entry should be unlocked")
	}
}

func TestCheckOverdue_FlagsPastDue(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(billableEntry(1, 60, 100))
	start, end := period()

	invoice, err := f.svc.CreateDraft(ctx, 1, start, end, "INV")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.MarkSent(ctx, invoice.ID, time.Now().AddDate(0, 0, -1)); err != nil {
		t.Fatalf("send: %v", err)
	}

	flagged, err := f.svc.CheckOverdue(ctx)
	if err != nil {
		t.Fatalf("check overdue: %v", err)
	}
	if flagged != 1 {
		t.Fatalf("expected 1 flagged invoice, got %d", flagged)
	}

	updated, _ := f.svc.GetInvoice(ctx, invoice.ID)
	if updated.Status != domain.InvoiceStatusOverdue {
		t.Fatalf("expected overdue, got %v", updated.Status)
	}
}
