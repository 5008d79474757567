package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/repository"
)

// WeekSummary provides weekly time tracking analytics
type WeekSummary struct {
	TotalHours    float64
	BillableHours float64
	TotalValue    decimal.Decimal
	ByClient      map[int64]float64 // Billed hours by client ID
	ByDay         map[time.Weekday]float64
}

// ClientSummary provides client-specific time and revenue analytics
type ClientSummary struct {
	ClientID      int64
	TotalHours    float64
	BillableHours float64
	TotalValue    decimal.Decimal
	UnbilledValue decimal.Decimal
	Entries       []*domain.TimeEntry
}

// DailySummary provides daily time tracking analytics
type DailySummary struct {
	Date          time.Time
	TotalHours    float64
	BillableHours float64
	TotalValue    decimal.Decimal
	Entries       []*domain.TimeEntry
}

// ReportService provides aggregations and analytics
type ReportService interface {
	// Time tracking summaries
	GetWeekSummary(ctx context.Context, weekStart time.Time) (*WeekSummary, error)
	GetClientSummary(ctx context.Context, clientID int64, start, end time.Time) (*ClientSummary, error)
	GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error)

	// Financial summaries
	GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) // Open balances on sent invoices
	GetUnbilledTotal(ctx context.Context) (decimal.Decimal, error)    // Time not yet invoiced
	GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error)
}

type reportService struct {
	entryRepo   repository.TimeEntryRepository
	invoiceRepo repository.InvoiceRepository
}

// NewReportService creates a new report service
func NewReportService(
	entryRepo repository.TimeEntryRepository,
	invoiceRepo repository.InvoiceRepository,
) ReportService {
	return &reportService{
		entryRepo:   entryRepo,
		invoiceRepo: invoiceRepo,
	}
}

func (s *reportService) GetWeekSummary(ctx context.Context, weekStart time.Time) (*WeekSummary, error) {
	// Ensure weekStart is actually a Monday (start of week)
	for weekStart.Weekday() != time.Monday {
		weekStart = weekStart.AddDate(0, 0, -1)
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	entries, err := s.entryRepo.List(ctx, nil, &weekStart, &weekEnd, true)
	if err != nil {
		return nil, err
	}

	summary := &WeekSummary{
		TotalValue: decimal.Zero,
		ByClient:   make(map[int64]float64),
		ByDay:      make(map[time.Weekday]float64),
	}

	for _, entry := range entries {
		hours := entry.BilledHours()

		summary.TotalHours += hours
		if entry.BillableType == domain.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue = summary.TotalValue.Add(entry.Amount())

		summary.ByClient[entry.ClientID] += hours
		summary.ByDay[entry.StartTime.Weekday()] += hours
	}

	return summary, nil
}

func (s *reportService) GetClientSummary(
	ctx context.Context,
	clientID int64,
	start, end time.Time,
) (*ClientSummary, error) {
	entries, err := s.entryRepo.List(ctx, &clientID, &start, &end, true)
	if err != nil {
		return nil, err
	}

	summary := &ClientSummary{
		ClientID:      clientID,
		TotalValue:    decimal.Zero,
		UnbilledValue: decimal.Zero,
		Entries:       entries,
	}

	for _, entry := range entries {
		hours := entry.BilledHours()
		value := entry.Amount()

		summary.TotalHours += hours
		if entry.BillableType == domain.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue = summary.TotalValue.Add(value)

		if entry.InvoiceID == nil && entry.BillableType == domain.Billable {
			summary.UnbilledValue = summary.UnbilledValue.Add(value)
		}
	}

	return summary, nil
}

func (s *reportService) GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	entries, err := s.entryRepo.List(ctx, nil, &startOfDay, &endOfDay, true)
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:       date,
		TotalValue: decimal.Zero,
		Entries:    entries,
	}

	for _, entry := range entries {
		hours := entry.BilledHours()

		summary.TotalHours += hours
		if entry.BillableType == domain.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue = summary.TotalValue.Add(entry.Amount())
	}

	return summary, nil
}

func (s *reportService) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, status := range []domain.InvoiceStatus{
		domain.InvoiceStatusSent,
		domain.InvoiceStatusPartialPayment,
		domain.InvoiceStatusOverdue,
	} {
		st := status
		invoices, err := s.invoiceRepo.List(ctx, nil, &st)
		if err != nil {
			return decimal.Zero, err
		}
		for _, invoice := range invoices {
			total = total.Add(invoice.BalanceDue)
		}
	}

	return total, nil
}

func (s *reportService) GetUnbilledTotal(ctx context.Context) (decimal.Decimal, error) {
	entries, err := s.entryRepo.List(ctx, nil, nil, nil, false)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		if entry.InvoiceID == nil && entry.BillableType == domain.Billable {
			total = total.Add(entry.Amount())
		}
	}

	return total, nil
}

func (s *reportService) GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error) {
	paidStatus := domain.InvoiceStatusPaid
	invoices, err := s.invoiceRepo.List(ctx, nil, &paidStatus)
	if err != nil {
		return nil, err
	}

	revenue := make(map[time.Month]decimal.Decimal)
	for m := time.January; m <= time.December; m++ {
		revenue[m] = decimal.Zero
	}

	for _, invoice := range invoices {
		// The last update on a paid invoice is the final payment
		paymentDate := invoice.UpdatedAt
		if paymentDate.Year() == year {
			month := paymentDate.Month()
			revenue[month] = revenue[month].Add(invoice.Total)
		}
	}

	return revenue, nil
}
