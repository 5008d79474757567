package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/domain"
)

// InvoicesModel displays invoices with send and delete actions
type InvoicesModel struct {
	app         *app.App
	invoices    []*domain.Invoice
	clientCache map[int64]*domain.Client
	cursor      int
	loading     bool
	err         error
	statusMsg   string
}

type invoicesDataMsg struct {
	invoices    []*domain.Invoice
	clientCache map[int64]*domain.Client
	err         error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(a *app.App) tea.Model {
	return &InvoicesModel{
		app:         a,
		clientCache: make(map[int64]*domain.Client),
		loading:     true,
	}
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		invoices, err := m.app.InvoiceService.ListInvoices(ctx, nil, nil)
		if err != nil {
			return invoicesDataMsg{err: err}
		}

		cache := make(map[int64]*domain.Client)
		for _, invoice := range invoices {
			if _, ok := cache[invoice.ClientID]; !ok {
				client, err := m.app.ClientRepo.GetByID(ctx, invoice.ClientID)
				if err == nil {
					cache[invoice.ClientID] = client
				}
			}
		}

		return invoicesDataMsg{invoices: invoices, clientCache: cache}
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		m.invoices = msg.invoices
		m.clientCache = msg.clientCache
		if m.cursor >= len(m.invoices) {
			m.cursor = 0
		}
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadInvoices()

	case tea.KeyMsg:
		m.statusMsg = ""
		m.err = nil
		ctx := context.Background()

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.invoices)-1 {
				m.cursor++
			}
		case "s":
			if m.cursor < len(m.invoices) {
				invoice := m.invoices[m.cursor]
				dueDate := time.Now().AddDate(0, 0, m.app.Config.Invoice.DefaultDueDays)
				if err := m.app.InvoiceService.MarkSent(ctx, invoice.ID, dueDate); err != nil {
					m.err = err
					return m, nil
				}
				m.statusMsg = fmt.Sprintf("Invoice %s sent, due %s",
					invoice.InvoiceNumber, dueDate.Format("2006-01-02"))
				return m, m.loadInvoices()
			}
		case "d":
			if m.cursor < len(m.invoices) {
				invoice := m.invoices[m.cursor]
				if err := m.app.InvoiceService.DeleteDraft(ctx, invoice.ID); err != nil {
					m.err = err
					return m, nil
				}
				m.statusMsg = fmt.Sprintf("Draft %s deleted, entries released", invoice.InvoiceNumber)
				return m, m.loadInvoices()
			}
		case "o":
			flagged, err := m.app.InvoiceService.CheckOverdue(ctx)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.statusMsg = fmt.Sprintf("%d invoice(s) flagged overdue", flagged)
			return m, m.loadInvoices()
		}
	}

	return m, nil
}

func (m *InvoicesModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Invoices")

	if m.loading {
		return title + "\n\nLoading invoices..."
	}
	if m.err != nil {
		return title + "\n\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	s := title + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.invoices) == 0 {
		return s + subtitleStyle.Render("  No invoices. Create one with 'lexledger invoices create'.")
	}

	for i, invoice := range m.invoices {
		clientName := fmt.Sprintf("Client #%d", invoice.ClientID)
		if c, ok := m.clientCache[invoice.ClientID]; ok {
			clientName = c.Name
		}

		due := "-"
		if invoice.DueDate != nil {
			due = invoice.DueDate.Format("2006-01-02")
		}

		line := fmt.Sprintf(" %-14s %-20s %12s %12s %-11s %s",
			invoice.InvoiceNumber,
			truncateStr(clientName, 20),
			formatMoney(invoice.Total),
			formatMoney(invoice.BalanceDue),
			due,
			invoiceStatusLabel(invoice.Status),
		)

		if i == m.cursor {
			s += selectedStyle.Render(line) + "\n"
		} else {
			s += line + "\n"
		}
	}

	s += "\nKeys: ↑/↓=move, s=send, d=delete draft, o=flag overdue\n"
	return s
}

func invoiceStatusLabel(status domain.InvoiceStatus) string {
	switch status {
	case domain.InvoiceStatusDraft:
		return subtitleStyle.Render("draft")
	case domain.InvoiceStatusSent:
		return "sent"
	case domain.InvoiceStatusPartialPayment:
		return timerPausedStyle.Render("partial")
	case domain.InvoiceStatusPaid:
		return timerRunningStyle.Render("paid")
	case domain.InvoiceStatusOverdue:
		return timerSuspendedStyle.Render("overdue")
	default:
		return string(status)
	}
}
