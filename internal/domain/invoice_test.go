package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotalsPercentageDiscountAndTax(t *testing.T) {
	// 2.5h @ $250, 1.0h @ $250, 3.5h @ $275
	amounts := []decimal.Decimal{money("625.00"), money("250.00"), money("962.50")}

	got := ComputeTotals(amounts, 8, 10, DiscountPercentage)

	if !got.Subtotal.Equal(money("1837.50")) {
		t.Fatalf("subtotal = %s, want 1837.50", got.Subtotal)
	}
	if !got.DiscountValue.Equal(money("183.75")) {
		t.Fatalf("discount = %s, want 183.75", got.DiscountValue)
	}
	if !got.TaxValue.Equal(money("132.30")) {
		t.Fatalf("tax = %s, want 132.30", got.TaxValue)
	}
	if !got.Total.Equal(money("1786.05")) {
		t.Fatalf("total = %s, want 1786.05", got.Total)
	}
}

func TestComputeTotalsIdentity(t *testing.T) {
	cases := []struct {
		amounts  []string
		taxPct   float64
		discount float64
		dType    DiscountType
	}{
		{[]string{"100.00"}, 0, 0, DiscountFixed},
		{[]string{"100.00", "250.25"}, 8.25, 50, DiscountFixed},
		{[]string{"33.33", "66.67"}, 10, 15, DiscountPercentage},
		{[]string{}, 5, 10, DiscountPercentage},
	}
	for _, c := range cases {
		amounts := make([]decimal.Decimal, len(c.amounts))
		for i, a := range c.amounts {
			amounts[i] = money(a)
		}
		got := ComputeTotals(amounts, c.taxPct, c.discount, c.dType)

		want := got.Subtotal.Sub(got.DiscountValue).Add(got.TaxValue)
		if !got.Total.Equal(want) {
			t.Fatalf("total %s != subtotal - discount + tax (%s)", got.Total, want)
		}
		for _, v := range []decimal.Decimal{got.Subtotal, got.DiscountValue, got.TaxValue, got.Total} {
			if v.IsNegative() {
				t.Fatalf("negative figure %s in %+v", v, got)
			}
		}
	}
}

func TestComputeTotalsFixedDiscountClampedToSubtotal(t *testing.T) {
	got := ComputeTotals([]decimal.Decimal{money("100.00")}, 10, 500, DiscountFixed)
	if !got.DiscountValue.Equal(money("100.00")) {
		t.Fatalf("discount = %s, want clamp to 100.00", got.DiscountValue)
	}
	if !got.Total.IsZero() {
		t.Fatalf("total = %s, want 0", got.Total)
	}
}

func TestComputeTotalsPercentageDiscountClampedTo100(t *testing.T) {
	got := ComputeTotals([]decimal.Decimal{money("100.00")}, 0, 150, DiscountPercentage)
	if !got.DiscountValue.Equal(money("100.00")) {
		t.Fatalf("discount = %s, want 100.00", got.DiscountValue)
	}
	if got.Total.IsNegative() {
		t.Fatalf("total went negative: %s", got.Total)
	}
}

func TestEntryAmount(t *testing.T) {
	entry := &TimeEntry{
		BilledMinutes: 150, // 2.5h
		HourlyRate:    250,
		RateType:      RateTypeHourly,
		BillableType:  Billable,
	}
	if !entry.Amount().Equal(money("625.00")) {
		t.Fatalf("amount = %s, want 625.00", entry.Amount())
	}

	entry.BillableType = NonBillable
	if !entry.Amount().IsZero() {
		t.Fatalf("non-billable entry contributed %s", entry.Amount())
	}

	entry.BillableType = NoCharge
	if !entry.Amount().IsZero() {
		t.Fatalf("no-charge entry contributed %s", entry.Amount())
	}
}

func TestEntryAmountFlatRate(t *testing.T) {
	entry := &TimeEntry{
		BilledMinutes: 30,
		HourlyRate:    1500, // flat fee
		RateType:      RateTypeFlat,
		BillableType:  Billable,
	}
	if !entry.Amount().Equal(money("1500.00")) {
		t.Fatalf("flat amount = %s, want 1500.00", entry.Amount())
	}

	// Duration must not change a flat fee.
	entry.BilledMinutes = 600
	if !entry.Amount().Equal(money("1500.00")) {
		t.Fatalf("flat amount moved with duration: %s", entry.Amount())
	}
}

func newSentInvoice(t *testing.T, total string) *Invoice {
	t.Helper()
	inv := NewInvoice("INV-2026-001", 1, time.Now().Add(-24*time.Hour), time.Now())
	inv.LineItems = []*InvoiceLineItem{{EntryID: 1, Amount: money(total)}}
	inv.Recalculate()
	if err := inv.MarkSent(time.Now().AddDate(0, 0, 30)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	return inv
}

func TestApplyPaymentFullThenOverpayment(t *testing.T) {
	inv := newSentInvoice(t, "1786.05")

	p := &Payment{InvoiceID: 1, Amount: money("1786.05"), PaymentDate: time.Now(), Method: "check"}
	if err := inv.ApplyPayment(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.BalanceDue.IsZero() {
		t.Fatalf("balance due = %s, want 0", inv.BalanceDue)
	}
	if inv.Status != InvoiceStatusPaid {
		t.Fatalf("status = %s, want paid", inv.Status)
	}

	second := &Payment{InvoiceID: 1, Amount: money("0.01"), PaymentDate: time.Now(), Method: "check"}
	if err := inv.ApplyPayment(second); !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
}

func TestApplyPaymentPartial(t *testing.T) {
	inv := newSentInvoice(t, "1000.00")

	p := &Payment{InvoiceID: 1, Amount: money("400.00"), PaymentDate: time.Now(), Method: "wire"}
	if err := inv.ApplyPayment(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.BalanceDue.Equal(money("600.00")) {
		t.Fatalf("balance due = %s, want 600.00", inv.BalanceDue)
	}
	if inv.Status != InvoiceStatusPartialPayment {
		t.Fatalf("status = %s, want partial_payment", inv.Status)
	}
}

func TestApplyPaymentRejectedOnDraft(t *testing.T) {
	inv := NewInvoice("INV-2026-002", 1, time.Now().Add(-24*time.Hour), time.Now())
	p := &Payment{InvoiceID: 2, Amount: money("10.00"), PaymentDate: time.Now()}
	if err := inv.ApplyPayment(p); err == nil {
		t.Fatal("expected error applying payment to draft")
	}
}

func TestRecalculateFromLineItems(t *testing.T) {
	inv := NewInvoice("INV-2026-003", 1, time.Now().Add(-24*time.Hour), time.Now())
	inv.TaxRatePercent = 10
	inv.DiscountAmount = 25
	inv.DiscountType = DiscountFixed
	inv.LineItems = []*InvoiceLineItem{
		{EntryID: 1, Minutes: 120, Rate: 100, Amount: money("200.00")},
		{EntryID: 2, Minutes: 60, Rate: 100, Amount: money("100.00")},
	}

	inv.Recalculate()

	if !inv.Subtotal.Equal(money("300.00")) {
		t.Fatalf("subtotal = %s, want 300.00", inv.Subtotal)
	}
	if !inv.DiscountValue.Equal(money("25.00")) {
		t.Fatalf("discount = %s, want 25.00", inv.DiscountValue)
	}
	if !inv.TaxValue.Equal(money("27.50")) {
		t.Fatalf("tax = %s, want 27.50", inv.TaxValue)
	}
	if !inv.Total.Equal(money("302.50")) {
		t.Fatalf("total = %s, want 302.50", inv.Total)
	}
}
