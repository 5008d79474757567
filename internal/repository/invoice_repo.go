package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

const invoiceColumns = `id, invoice_number, client_id, period_start, period_end,
	tax_rate_percent, discount_amount, discount_type,
	subtotal, discount_value, tax_value, total, balance_due,
	status, due_date, created_at, updated_at`

// Create inserts a new invoice
func (r *InvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	query := `
		INSERT INTO invoices (
			invoice_number, client_id, period_start, period_end,
			tax_rate_percent, discount_amount, discount_type,
			subtotal, discount_value, tax_value, total, balance_due,
			status, due_date, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var dueDate interface{}
	if invoice.DueDate != nil {
		dueDate = invoice.DueDate.Format(timeLayout)
	}

	result, err := r.db.ExecContext(ctx, query,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.PeriodStart.Format(timeLayout),
		invoice.PeriodEnd.Format(timeLayout),
		invoice.TaxRatePercent,
		invoice.DiscountAmount,
		invoice.DiscountType,
		invoice.Subtotal.String(),
		invoice.DiscountValue.String(),
		invoice.TaxValue.String(),
		invoice.Total.String(),
		invoice.BalanceDue.String(),
		invoice.Status,
		dueDate,
		invoice.CreatedAt.Format(timeLayout),
		invoice.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice ID: %w", err)
	}

	invoice.ID = id
	return nil
}

// GetByID retrieves an invoice with its line items and payments
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.getOne(ctx, "WHERE id = ?", id)
}

// GetByNumber retrieves an invoice by its invoice number
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return r.getOne(ctx, "WHERE invoice_number = ?", number)
}

func (r *InvoiceRepo) getOne(ctx context.Context, where string, arg interface{}) (*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices " + where

	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.LineItems, err = r.GetLineItems(ctx, invoice.ID); err != nil {
		return nil, err
	}
	if invoice.Payments, err = r.GetPayments(ctx, invoice.ID); err != nil {
		return nil, err
	}

	return invoice, nil
}

// List retrieves invoices with optional filters, newest first
func (r *InvoiceRepo) List(ctx context.Context, clientID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE 1 = 1"
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " AND client_id = ?"
		args = append(args, *clientID)
	}
	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// Update persists an invoice's figures and status
func (r *InvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	query := `
		UPDATE invoices
		SET tax_rate_percent = ?, discount_amount = ?, discount_type = ?,
		    subtotal = ?, discount_value = ?, tax_value = ?, total = ?, balance_due = ?,
		    status = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`

	var dueDate interface{}
	if invoice.DueDate != nil {
		dueDate = invoice.DueDate.Format(timeLayout)
	}

	result, err := r.db.ExecContext(ctx, query,
		invoice.TaxRatePercent,
		invoice.DiscountAmount,
		invoice.DiscountType,
		invoice.Subtotal.String(),
		invoice.DiscountValue.String(),
		invoice.TaxValue.String(),
		invoice.Total.String(),
		invoice.BalanceDue.String(),
		invoice.Status,
		dueDate,
		formatTime(),
		invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice not found")
	}

	return nil
}

// Delete removes an invoice and its line items. Callers are expected to
// have verified the invoice is still a draft and to release its entries.
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_line_items WHERE invoice_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddLineItem attaches a line item to an invoice
func (r *InvoiceRepo) AddLineItem(ctx context.Context, invoiceID int64, item *domain.InvoiceLineItem) error {
	query := `
		INSERT INTO invoice_line_items (invoice_id, entry_id, date, description, minutes, rate, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		invoiceID,
		item.EntryID,
		item.Date.Format(timeLayout),
		item.Description,
		item.Minutes,
		item.Rate,
		item.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to add line item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get line item ID: %w", err)
	}

	item.ID = id
	item.InvoiceID = invoiceID
	return nil
}

// DeleteLineItem removes a line item from an invoice
func (r *InvoiceRepo) DeleteLineItem(ctx context.Context, invoiceID int64, lineItemID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM invoice_line_items WHERE id = ? AND invoice_id = ?",
		lineItemID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("line item not found")
	}

	return nil
}

// GetLineItems retrieves the line items for an invoice in date order
func (r *InvoiceRepo) GetLineItems(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLineItem, error) {
	query := `
		SELECT id, invoice_id, entry_id, date, description, minutes, rate, amount
		FROM invoice_line_items
		WHERE invoice_id = ?
		ORDER BY date, id
	`

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.InvoiceLineItem, 0)
	for rows.Next() {
		item := &domain.InvoiceLineItem{}
		var date, amount string

		err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.EntryID,
			&date,
			&item.Description,
			&item.Minutes,
			&item.Rate,
			&amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}

		if item.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("failed to parse line item date: %w", err)
		}
		if item.Amount, err = parseMoney(amount); err != nil {
			return nil, fmt.Errorf("failed to parse line item amount: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line items: %w", err)
	}

	return items, nil
}

// AddPayment records a payment against an invoice
func (r *InvoiceRepo) AddPayment(ctx context.Context, payment *domain.Payment) error {
	if err := payment.Validate(); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}

	query := `
		INSERT INTO payments (invoice_id, amount, payment_date, method, reference_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.InvoiceID,
		payment.Amount.String(),
		payment.PaymentDate.Format(timeLayout),
		payment.Method,
		payment.ReferenceNumber,
		formatTime(),
	)
	if err != nil {
		return fmt.Errorf("failed to add payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get payment ID: %w", err)
	}

	payment.ID = id
	return nil
}

// GetPayments retrieves the payments applied to an invoice, oldest first
func (r *InvoiceRepo) GetPayments(ctx context.Context, invoiceID int64) ([]*domain.Payment, error) {
	query := `
		SELECT id, invoice_id, amount, payment_date, method, reference_number, created_at
		FROM payments
		WHERE invoice_id = ?
		ORDER BY payment_date, id
	`

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p := &domain.Payment{}
		var amount, paymentDate, createdAt string
		var method, reference sql.NullString

		err := rows.Scan(
			&p.ID,
			&p.InvoiceID,
			&amount,
			&paymentDate,
			&method,
			&reference,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		p.Method = method.String
		p.ReferenceNumber = reference.String

		if p.Amount, err = parseMoney(amount); err != nil {
			return nil, fmt.Errorf("failed to parse payment amount: %w", err)
		}
		if p.PaymentDate, err = parseTime(paymentDate); err != nil {
			return nil, fmt.Errorf("failed to parse payment date: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// GetNextInvoiceNumber generates the next sequential invoice number for a year,
// e.g. INV-2026-0042
func (r *InvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)

	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE ?", pattern).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count invoices: %w", err)
	}

	// Walk forward from the count until an unused number is found, in case
	// older invoices in the sequence were deleted.
	for seq := count + 1; ; seq++ {
		candidate := fmt.Sprintf("%s-%d-%04d", prefix, year, seq)

		var exists int
		err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM invoices WHERE invoice_number = ?", candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check invoice number: %w", err)
		}
		if exists == 0 {
			return candidate, nil
		}
	}
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	var periodStart, periodEnd, createdAt, updatedAt string
	var subtotal, discountValue, taxValue, total, balanceDue string
	var dueDate sql.NullString

	err := row.Scan(
		&invoice.ID,
		&invoice.InvoiceNumber,
		&invoice.ClientID,
		&periodStart,
		&periodEnd,
		&invoice.TaxRatePercent,
		&invoice.DiscountAmount,
		&invoice.DiscountType,
		&subtotal,
		&discountValue,
		&taxValue,
		&total,
		&balanceDue,
		&invoice.Status,
		&dueDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if invoice.Subtotal, err = parseMoney(subtotal); err != nil {
		return nil, fmt.Errorf("failed to parse subtotal: %w", err)
	}
	if invoice.DiscountValue, err = parseMoney(discountValue); err != nil {
		return nil, fmt.Errorf("failed to parse discount value: %w", err)
	}
	if invoice.TaxValue, err = parseMoney(taxValue); err != nil {
		return nil, fmt.Errorf("failed to parse tax value: %w", err)
	}
	if invoice.Total, err = parseMoney(total); err != nil {
		return nil, fmt.Errorf("failed to parse total: %w", err)
	}
	if invoice.BalanceDue, err = parseMoney(balanceDue); err != nil {
		return nil, fmt.Errorf("failed to parse balance due: %w", err)
	}

	if invoice.PeriodStart, err = parseTime(periodStart); err != nil {
		return nil, fmt.Errorf("failed to parse period start: %w", err)
	}
	if invoice.PeriodEnd, err = parseTime(periodEnd); err != nil {
		return nil, fmt.Errorf("failed to parse period end: %w", err)
	}
	if dueDate.Valid {
		due, err := parseTime(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse due date: %w", err)
		}
		invoice.DueDate = &due
	}
	if invoice.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if invoice.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return invoice, nil
}
