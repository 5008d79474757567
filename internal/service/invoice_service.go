package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
	"github.com/jparks/lexledger/internal/repository"
)

var (
	ErrInvoiceNotEditable = errors.New("invoice cannot be edited after sending")
	ErrEntryAlreadyLocked = errors.New("entry is already locked to an invoice")
	ErrEntryNotFound      = errors.New("time entry not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
)

// InvoiceService manages the invoice lifecycle: drafting from unbilled
// entries, totals, sending, payments, and overdue tracking
type InvoiceService interface {
	// CreateDraft builds a draft invoice from the client's unbilled entries
	// in the period. The entries lock to the invoice immediately.
	CreateDraft(ctx context.Context, clientID int64, periodStart, periodEnd time.Time, prefix string) (*domain.Invoice, error)

	// AddEntries adds more unbilled entries to a draft invoice
	AddEntries(ctx context.Context, invoiceID int64, entryIDs []int64) error

	// RemoveEntry removes an entry from a draft invoice, unlocking it
	RemoveEntry(ctx context.Context, invoiceID int64, entryID int64) error

	// SetAdjustments sets the tax rate and discount, then recalculates
	SetAdjustments(ctx context.Context, invoiceID int64, taxRatePercent, discountAmount float64, discountType domain.DiscountType) error

	// Recalculate recomputes totals from the invoice's line items
	Recalculate(ctx context.Context, invoiceID int64) error

	// MarkSent locks the invoice and opens its balance for payment
	MarkSent(ctx context.Context, invoiceID int64, dueDate time.Time) error

	// ApplyPayment records a payment against a sent invoice
	ApplyPayment(ctx context.Context, invoiceID int64, amount float64, paymentDate time.Time, method, reference string) (*domain.Invoice, error)

	// DeleteDraft deletes a draft invoice and releases its entries.
	// Non-draft invoices are not deletable.
	DeleteDraft(ctx context.Context, invoiceID int64) error

	// CheckOverdue flags sent and partially paid invoices past their due date
	CheckOverdue(ctx context.Context) (int, error)

	// GetInvoice retrieves an invoice with line items and payments
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)

	// ListInvoices lists invoices with optional filters
	ListInvoices(ctx context.Context, clientID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	entryRepo   repository.TimeEntryRepository
	clientRepo  repository.ClientRepository
	logger      logging.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
	clientRepo repository.ClientRepository,
	logger logging.Logger,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		entryRepo:   entryRepo,
		clientRepo:  clientRepo,
		logger:      logger,
	}
}

func (s *invoiceService) CreateDraft(
	ctx context.Context,
	clientID int64,
	periodStart, periodEnd time.Time,
	prefix string,
) (*domain.Invoice, error) {
	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("client not found")
	}

	entries, err := s.entryRepo.GetUnbilledByClient(ctx, clientID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no unbilled entries in period")
	}

	year := periodEnd.Year()
	invoiceNumber, err := s.invoiceRepo.GetNextInvoiceNumber(ctx, prefix, year)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := domain.NewInvoice(invoiceNumber, clientID, periodStart, periodEnd)
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	entryIDs := make([]int64, len(entries))
	for i, entry := range entries {
		entryIDs[i] = entry.ID
	}
	if err := s.entryRepo.LockForInvoice(ctx, entryIDs, invoice.ID); err != nil {
		return nil, fmt.Errorf("failed to lock entries: %w", err)
	}

	for _, entry := range entries {
		item := lineItemFromEntry(invoice.ID, entry)
		if err := s.invoiceRepo.AddLineItem(ctx, invoice.ID, item); err != nil {
			return nil, err
		}
		invoice.LineItems = append(invoice.LineItems, item)
	}

	invoice.Recalculate()
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"invoice":  invoice.InvoiceNumber,
		"entries":  len(entries),
		"subtotal": invoice.Subtotal.StringFixed(2),
	}).Info("draft invoice created")

	return invoice, nil
}

func (s *invoiceService) AddEntries(ctx context.Context, invoiceID int64, entryIDs []int64) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.CanEdit() {
		return ErrInvoiceNotEditable
	}

	for _, entryID := range entryIDs {
		entry, err := s.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: entry %d", ErrEntryNotFound, entryID)
		}
		if entry.IsLocked() {
			return fmt.Errorf("%w: entry %d", ErrEntryAlreadyLocked, entryID)
		}
		if entry.ClientID != invoice.ClientID {
			return fmt.Errorf("entry %d does not belong to invoice client", entryID)
		}
	}

	if err := s.entryRepo.LockForInvoice(ctx, entryIDs, invoiceID); err != nil {
		return err
	}

	for _, entryID := range entryIDs {
		entry, err := s.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := s.invoiceRepo.AddLineItem(ctx, invoiceID, lineItemFromEntry(invoiceID, entry)); err != nil {
			return err
		}
	}

	return s.Recalculate(ctx, invoiceID)
}

func (s *invoiceService) RemoveEntry(ctx context.Context, invoiceID int64, entryID int64) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.CanEdit() {
		return ErrInvoiceNotEditable
	}

	var target *domain.InvoiceLineItem
	for _, li := range invoice.LineItems {
		if li.EntryID == entryID {
			target = li
			break
		}
	}
	if target == nil {
		return errors.New("line item for entry not found on invoice")
	}

	if err := s.invoiceRepo.DeleteLineItem(ctx, invoiceID, target.ID); err != nil {
		return err
	}

	if err := s.entryRepo.Unlock(ctx, entryID); err != nil {
		return err
	}

	return s.Recalculate(ctx, invoiceID)
}

func (s *invoiceService) SetAdjustments(ctx context.Context, invoiceID int64, taxRatePercent, discountAmount float64, discountType domain.DiscountType) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.CanEdit() {
		return ErrInvoiceNotEditable
	}

	invoice.TaxRatePercent = taxRatePercent
	invoice.DiscountAmount = discountAmount
	invoice.DiscountType = discountType
	invoice.Recalculate()

	return s.invoiceRepo.Update(ctx, invoice)
}

func (s *invoiceService) Recalculate(ctx context.Context, invoiceID int64) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	invoice.Recalculate()
	return s.invoiceRepo.Update(ctx, invoice)
}

func (s *invoiceService) MarkSent(ctx context.Context, invoiceID int64, dueDate time.Time) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if len(invoice.LineItems) == 0 {
		return errors.New("cannot send invoice with no line items")
	}

	invoice.Recalculate()
	if err := invoice.MarkSent(dueDate); err != nil {
		return err
	}

	return s.invoiceRepo.Update(ctx, invoice)
}

func (s *invoiceService) ApplyPayment(ctx context.Context, invoiceID int64, amount float64, paymentDate time.Time, method, reference string) (*domain.Invoice, error) {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		InvoiceID:       invoiceID,
		Amount:          decimal.NewFromFloat(amount).Round(2),
		PaymentDate:     paymentDate,
		Method:          method,
		ReferenceNumber: reference,
	}

	if err := invoice.ApplyPayment(payment); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.AddPayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.WithFields(logging.Fields{
		"invoice": invoice.InvoiceNumber,
		"amount":  payment.Amount.StringFixed(2),
		"balance": invoice.BalanceDue.StringFixed(2),
		"status":  string(invoice.Status),
	}).Info("payment applied")

	return invoice, nil
}

func (s *invoiceService) DeleteDraft(ctx context.Context, invoiceID int64) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != domain.InvoiceStatusDraft {
		return domain.ErrInvoiceNotDeletable
	}

	if err := s.entryRepo.UnlockForInvoice(ctx, invoiceID); err != nil {
		return err
	}
	return s.invoiceRepo.Delete(ctx, invoiceID)
}

func (s *invoiceService) CheckOverdue(ctx context.Context) (int, error) {
	flagged := 0
	now := time.Now()

	for _, status := range []domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusPartialPayment} {
		st := status
		invoices, err := s.invoiceRepo.List(ctx, nil, &st)
		if err != nil {
			return flagged, err
		}

		for _, invoice := range invoices {
			if invoice.DueDate != nil && now.After(*invoice.DueDate) {
				invoice.Status = domain.InvoiceStatusOverdue
				invoice.UpdatedAt = now
				if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
					return flagged, err
				}
				flagged++
			}
		}
	}

	return flagged, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) ListInvoices(
	ctx context.Context,
	clientID *int64,
	status *domain.InvoiceStatus,
) ([]*domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, clientID, status)
}

func (s *invoiceService) requireInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

func lineItemFromEntry(invoiceID int64, entry *domain.TimeEntry) *domain.InvoiceLineItem {
	return &domain.InvoiceLineItem{
		InvoiceID:   invoiceID,
		EntryID:     entry.ID,
		Date:        entry.StartTime,
		Description: entry.Description,
		Minutes:     entry.BilledMinutes,
		Rate:        entry.HourlyRate,
		Amount:      entry.Amount(),
	}
}
