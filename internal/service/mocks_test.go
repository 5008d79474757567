package service

import (
	"context"
	"errors"
	"time"

	"github.com/jparks/lexledger/internal/domain"
)

// in-memory mocks shared by the service tests

type mockClientRepo struct {
	clients map[int64]*domain.Client
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{clients: map[int64]*domain.Client{
		1: {ID: 1, Name: "ACME Corp"},
	}}
}

func (m *mockClientRepo) Create(ctx context.Context, client *domain.Client) error { return nil }
func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	return m.clients[id], nil
}
func (m *mockClientRepo) GetByName(ctx context.Context, name string) (*domain.Client, error) {
	return nil, nil
}
func (m *mockClientRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	return nil, nil
}
func (m *mockClientRepo) Update(ctx context.Context, client *domain.Client) error { return nil }
func (m *mockClientRepo) Archive(ctx context.Context, id int64) error             { return nil }
func (m *mockClientRepo) Unarchive(ctx context.Context, id int64) error           { return nil }

type mockMatterRepo struct {
	matters map[int64]*domain.Matter
}

func newMockMatterRepo() *mockMatterRepo {
	return &mockMatterRepo{matters: map[int64]*domain.Matter{
		1: {ID: 1, ClientID: 1, Name: "General", Status: domain.MatterStatusOpen},
	}}
}

func (m *mockMatterRepo) Create(ctx context.Context, matter *domain.Matter) error { return nil }
func (m *mockMatterRepo) GetByID(ctx context.Context, id int64) (*domain.Matter, error) {
	return m.matters[id], nil
}
func (m *mockMatterRepo) List(ctx context.Context, clientID *int64, includeClosed bool) ([]*domain.Matter, error) {
	return nil, nil
}
func (m *mockMatterRepo) Update(ctx context.Context, matter *domain.Matter) error { return nil }
func (m *mockMatterRepo) Close(ctx context.Context, id int64) error               { return nil }
func (m *mockMatterRepo) ListPracticeAreas(ctx context.Context) ([]*domain.PracticeArea, error) {
	return nil, nil
}
func (m *mockMatterRepo) CreatePracticeArea(ctx context.Context, name string) (*domain.PracticeArea, error) {
	return nil, nil
}
func (m *mockMatterRepo) ListActivityTypes(ctx context.Context) ([]*domain.ActivityType, error) {
	return nil, nil
}
func (m *mockMatterRepo) CreateActivityType(ctx context.Context, name string) (*domain.ActivityType, error) {
	return nil, nil
}

type mockRateRepo struct {
	rates  map[int64]*domain.RateDefinition
	nextID int64
}

func newMockRateRepo(rates ...*domain.RateDefinition) *mockRateRepo {
	m := &mockRateRepo{rates: make(map[int64]*domain.RateDefinition), nextID: 1}
	for _, r := range rates {
		if r.ID == 0 {
			r.ID = m.nextID
		}
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
		m.rates[r.ID] = r
	}
	return m
}

func (m *mockRateRepo) Create(ctx context.Context, rate *domain.RateDefinition) error {
	rate.ID = m.nextID
	m.nextID++
	m.rates[rate.ID] = rate
	return nil
}
func (m *mockRateRepo) GetByID(ctx context.Context, id int64) (*domain.RateDefinition, error) {
	return m.rates[id], nil
}
func (m *mockRateRepo) List(ctx context.Context) ([]*domain.RateDefinition, error) {
	out := make([]*domain.RateDefinition, 0, len(m.rates))
	for _, r := range m.rates {
		out = append(out, r)
	}
	return out, nil
}
func (m *mockRateRepo) Update(ctx context.Context, rate *domain.RateDefinition) error {
	m.rates[rate.ID] = rate
	return nil
}
func (m *mockRateRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rates, id)
	return nil
}
func (m *mockRateRepo) CountDefaults(ctx context.Context) (int, error) {
	count := 0
	for _, r := range m.rates {
		if r.IsDefault {
			count++
		}
	}
	return count, nil
}

type mockPolicyRepo struct {
	policies map[int64]*domain.RoundingPolicy
}

func newMockPolicyRepo() *mockPolicyRepo {
	return &mockPolicyRepo{policies: make(map[int64]*domain.RoundingPolicy)}
}

func (m *mockPolicyRepo) GetForMatter(ctx context.Context, matterID int64) (*domain.RoundingPolicy, error) {
	return m.policies[matterID], nil
}
func (m *mockPolicyRepo) SetForMatter(ctx context.Context, matterID int64, policy domain.RoundingPolicy) error {
	m.policies[matterID] = &policy
	return nil
}
func (m *mockPolicyRepo) DeleteForMatter(ctx context.Context, matterID int64) error {
	delete(m.policies, matterID)
	return nil
}

type mockEntryRepo struct {
	entries map[int64]*domain.TimeEntry
	nextID  int64
	history map[int64][]*domain.EntryHistory
}

func newMockEntryRepo(entries ...*domain.TimeEntry) *mockEntryRepo {
	m := &mockEntryRepo{
		entries: make(map[int64]*domain.TimeEntry),
		nextID:  1,
		history: make(map[int64][]*domain.EntryHistory),
	}
	for _, e := range entries {
		if e.ID == 0 {
			e.ID = m.nextID
		}
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	entry.ID = m.nextID
	m.nextID++
	m.entries[entry.ID] = entry
	return nil
}
func (m *mockEntryRepo) GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	return m.entries[id], nil
}
func (m *mockEntryRepo) Update(ctx context.Context, entry *domain.TimeEntry, reason string) error {
	m.entries[entry.ID] = entry
	m.history[entry.ID] = append(m.history[entry.ID], &domain.EntryHistory{
		EntryID:      entry.ID,
		ChangeReason: reason,
		ChangedAt:    time.Now(),
	})
	return nil
}
func (m *mockEntryRepo) SoftDelete(ctx context.Context, id int64, reason string) error {
	if e, ok := m.entries[id]; ok {
		e.IsDeleted = true
	}
	return nil
}
func (m *mockEntryRepo) List(ctx context.Context, clientID *int64, start, end *time.Time, includeLocked bool) ([]*domain.TimeEntry, error) {
	out := make([]*domain.TimeEntry, 0)
	for _, e := range m.entries {
		if e.IsDeleted {
			continue
		}
		if clientID != nil && e.ClientID != *clientID {
			continue
		}
		if !includeLocked && e.InvoiceID != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
func (m *mockEntryRepo) GetUnbilledByClient(ctx context.Context, clientID int64, start, end time.Time) ([]*domain.TimeEntry, error) {
	out := make([]*domain.TimeEntry, 0)
	for _, e := range m.entries {
		if e.ClientID == clientID && e.InvoiceID == nil && !e.IsDeleted {
			out = append(out, e)
		}
	}
	return out, nil
}
func (m *mockEntryRepo) IsLocked(ctx context.Context, id int64) (bool, error) {
	e, ok := m.entries[id]
	if !ok {
		return false, errors.New("time entry not found")
	}
	return e.InvoiceID != nil, nil
}
func (m *mockEntryRepo) LockForInvoice(ctx context.Context, entryIDs []int64, invoiceID int64) error {
	for _, id := range entryIDs {
		e, ok := m.entries[id]
		if !ok || e.InvoiceID != nil {
			return errors.New("entry not found or already locked")
		}
		invID := invoiceID
		e.InvoiceID = &invID
	}
	return nil
}
func (m *mockEntryRepo) Unlock(ctx context.Context, entryID int64) error {
	e, ok := m.entries[entryID]
	if !ok {
		return errors.New("time entry not found")
	}
	e.InvoiceID = nil
	return nil
}
func (m *mockEntryRepo) UnlockForInvoice(ctx context.Context, invoiceID int64) error {
	for _, e := range m.entries {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			e.InvoiceID = nil
		}
	}
	return nil
}
func (m *mockEntryRepo) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	return m.history[entryID], nil
}

type mockInvoiceRepo struct {
	invoices  map[int64]*domain.Invoice
	lineItems map[int64][]*domain.InvoiceLineItem
	payments  map[int64][]*domain.Payment
	nextID    int64
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices:  make(map[int64]*domain.Invoice),
		lineItems: make(map[int64][]*domain.InvoiceLineItem),
		payments:  make(map[int64][]*domain.Payment),
		nextID:    1,
	}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	invoice.ID = m.nextID
	m.nextID++
	m.invoices[invoice.ID] = invoice
	return nil
}
func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	items, _ := m.GetLineItems(ctx, id)
	inv.LineItems = items
	inv.Payments = m.payments[id]
	return inv, nil
}
func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, nil
}
func (m *mockInvoiceRepo) List(ctx context.Context, clientID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0)
	for _, inv := range m.invoices {
		if clientID != nil && inv.ClientID != *clientID {
			continue
		}
		if status != nil && inv.Status != *status {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}
func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	m.invoices[invoice.ID] = invoice
	return nil
}
func (m *mockInvoiceRepo) Delete(ctx context.Context, id int64) error {
	delete(m.invoices, id)
	delete(m.lineItems, id)
	return nil
}
func (m *mockInvoiceRepo) AddLineItem(ctx context.Context, invoiceID int64, item *domain.InvoiceLineItem) error {
	item.ID = int64(len(m.lineItems[invoiceID]) + 1)
	item.InvoiceID = invoiceID
	m.lineItems[invoiceID] = append(m.lineItems[invoiceID], item)
	return nil
}
func (m *mockInvoiceRepo) DeleteLineItem(ctx context.Context, invoiceID int64, lineItemID int64) error {
	items := m.lineItems[invoiceID]
	for i, it := range items {
		if it.ID == lineItemID {
			m.lineItems[invoiceID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return errors.New("line item not found")
}
func (m *mockInvoiceRepo) GetLineItems(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLineItem, error) {
	items := m.lineItems[invoiceID]
	out := make([]*domain.InvoiceLineItem, len(items))
	copy(out, items)
	return out, nil
}
func (m *mockInvoiceRepo) AddPayment(ctx context.Context, payment *domain.Payment) error {
	m.payments[payment.InvoiceID] = append(m.payments[payment.InvoiceID], payment)
	return nil
}
func (m *mockInvoiceRepo) GetPayments(ctx context.Context, invoiceID int64) ([]*domain.Payment, error) {
	return m.payments[invoiceID], nil
}
func (m *mockInvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	return "INV-2026-0001", nil
}

type mockTimerRepo struct {
	timer *domain.ActiveTimer
}

func (m *mockTimerRepo) Get(ctx context.Context) (*domain.ActiveTimer, error) { return m.timer, nil }
func (m *mockTimerRepo) Save(ctx context.Context, timer *domain.ActiveTimer) error {
	m.timer = timer
	return nil
}
func (m *mockTimerRepo) Delete(ctx context.Context) error {
	m.timer = nil
	return nil
}

// fakeClock lets tests move time by hand
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
