package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft          InvoiceStatus = "draft"
	InvoiceStatusSent           InvoiceStatus = "sent"
	InvoiceStatusPartialPayment InvoiceStatus = "partial_payment"
	InvoiceStatusPaid           InvoiceStatus = "paid"
	InvoiceStatusOverdue        InvoiceStatus = "overdue"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ErrOverpayment rejects a payment exceeding the remaining balance
var ErrOverpayment = errors.New("payment exceeds balance due")

// ErrInvoiceNotDeletable rejects deletion of a non-draft invoice
var ErrInvoiceNotDeletable = errors.New("only draft invoices can be deleted")

var oneHundred = decimal.NewFromInt(100)

// Totals are the derived invoice figures. They are recomputed from line
// items on every read and never trusted independently of their inputs.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountValue decimal.Decimal
	TaxValue      decimal.Decimal
	Total         decimal.Decimal
}

// ComputeTotals aggregates billable line amounts into invoice figures.
// Percentage discounts are clamped to [0,100] and fixed discounts to the
// subtotal, so no figure can go negative. Tax applies to the post-discount
// amount. All arithmetic is decimal, rounded to cents.
func ComputeTotals(lineAmounts []decimal.Decimal, taxRatePercent, discountAmount float64, discountType DiscountType) Totals {
	subtotal := decimal.Zero
	for _, amt := range lineAmounts {
		subtotal = subtotal.Add(amt)
	}

	var discount decimal.Decimal
	if discountType == DiscountPercentage {
		pct := decimal.NewFromFloat(discountAmount)
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		if pct.GreaterThan(oneHundred) {
			pct = oneHundred
		}
		discount = subtotal.Mul(pct).Div(oneHundred).Round(2)
	} else {
		discount = decimal.NewFromFloat(discountAmount).Round(2)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(decimal.NewFromFloat(taxRatePercent)).Div(oneHundred).Round(2)

	return Totals{
		Subtotal:      subtotal,
		DiscountValue: discount,
		TaxValue:      tax,
		Total:         taxable.Add(tax),
	}
}

type Invoice struct {
	ID             int64
	InvoiceNumber  string
	ClientID       int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	TaxRatePercent float64
	DiscountAmount float64
	DiscountType   DiscountType
	Subtotal       decimal.Decimal
	DiscountValue  decimal.Decimal
	TaxValue       decimal.Decimal
	Total          decimal.Decimal
	BalanceDue     decimal.Decimal
	Status         InvoiceStatus
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Related data (populated by repository)
	LineItems []*InvoiceLineItem
	Payments  []*Payment
	Client    *Client
}

// InvoiceLineItem references one time entry with its figures frozen at the
// moment it was added to the invoice.
type InvoiceLineItem struct {
	ID          int64
	InvoiceID   int64
	EntryID     int64
	Date        time.Time
	Description string
	Minutes     int64
	Rate        float64
	Amount      decimal.Decimal
}

// Hours returns the line's duration as fractional hours
func (li *InvoiceLineItem) Hours() float64 {
	return float64(li.Minutes) / 60
}

// Payment is one application of money against an invoice's balance
type Payment struct {
	ID              int64
	InvoiceID       int64
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          string
	ReferenceNumber string
	CreatedAt       time.Time
}

// Validate returns an error if the payment is invalid
func (p *Payment) Validate() error {
	if p.InvoiceID <= 0 {
		return errors.New("invoice ID is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	if p.PaymentDate.IsZero() {
		return errors.New("payment date is required")
	}
	return nil
}

// NewInvoice creates a new draft invoice
func NewInvoice(invoiceNumber string, clientID int64, periodStart, periodEnd time.Time) *Invoice {
	now := time.Now()
	return &Invoice{
		InvoiceNumber: invoiceNumber,
		ClientID:      clientID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		DiscountType:  DiscountFixed,
		Status:        InvoiceStatusDraft,
		Subtotal:      decimal.Zero,
		DiscountValue: decimal.Zero,
		TaxValue:      decimal.Zero,
		Total:         decimal.Zero,
		BalanceDue:    decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
		LineItems:     make([]*InvoiceLineItem, 0),
	}
}

// CanEdit returns true if the invoice can be modified
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// Recalculate recomputes the derived figures from the loaded line items
func (i *Invoice) Recalculate() {
	amounts := make([]decimal.Decimal, len(i.LineItems))
	for idx, item := range i.LineItems {
		amounts[idx] = item.Amount
	}
	t := ComputeTotals(amounts, i.TaxRatePercent, i.DiscountAmount, i.DiscountType)
	i.Subtotal = t.Subtotal
	i.DiscountValue = t.DiscountValue
	i.TaxValue = t.TaxValue
	i.Total = t.Total
	i.UpdatedAt = time.Now()
}

// MarkSent locks the invoice and opens its balance for payment
func (i *Invoice) MarkSent(dueDate time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return errors.New("invoice has already been sent")
	}
	i.Status = InvoiceStatusSent
	i.BalanceDue = i.Total
	i.DueDate = &dueDate
	i.UpdatedAt = time.Now()
	return nil
}

// ApplyPayment reduces the balance due. Applying more than the remaining
// balance is rejected with ErrOverpayment and mutates nothing.
func (i *Invoice) ApplyPayment(p *Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if i.Status == InvoiceStatusDraft {
		return errors.New("cannot apply payment to a draft invoice")
	}
	if p.Amount.GreaterThan(i.BalanceDue) {
		return ErrOverpayment
	}

	i.BalanceDue = i.BalanceDue.Sub(p.Amount)
	switch {
	case i.BalanceDue.IsZero():
		i.Status = InvoiceStatusPaid
	case i.BalanceDue.LessThan(i.Total):
		i.Status = InvoiceStatusPartialPayment
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.InvoiceNumber == "" {
		return errors.New("invoice number is required")
	}
	if i.ClientID <= 0 {
		return errors.New("client ID is required")
	}
	if i.PeriodStart.IsZero() {
		return errors.New("period start is required")
	}
	if i.PeriodEnd.IsZero() {
		return errors.New("period end is required")
	}
	if i.PeriodEnd.Before(i.PeriodStart) {
		return errors.New("period end must be after period start")
	}
	if i.TaxRatePercent < 0 {
		return errors.New("tax rate cannot be negative")
	}
	if i.DiscountAmount < 0 {
		return errors.New("discount cannot be negative")
	}
	if i.DiscountType != DiscountPercentage && i.DiscountType != DiscountFixed {
		return errors.New("discount type must be percentage or fixed")
	}
	return nil
}
