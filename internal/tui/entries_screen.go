package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/domain"
)

// EntriesModel displays recent time entries with delete support
type EntriesModel struct {
	app         *app.App
	entries     []*domain.TimeEntry
	clientCache map[int64]*domain.Client
	cursor      int
	loading     bool
	err         error
	statusMsg   string

	// Delete confirmation state
	deleting    bool
	reasonInput textinput.Model
}

type entriesDataMsg struct {
	entries     []*domain.TimeEntry
	clientCache map[int64]*domain.Client
	err         error
}

// NewEntriesModel creates a new entries screen model
func NewEntriesModel(a *app.App) tea.Model {
	return &EntriesModel{
		app:         a,
		clientCache: make(map[int64]*domain.Client),
		loading:     true,
	}
}

// IsCapturingInput returns true when the delete reason form is open
func (m *EntriesModel) IsCapturingInput() bool {
	return m.deleting
}

func (m *EntriesModel) Init() tea.Cmd {
	return m.loadEntries()
}

func (m *EntriesModel) loadEntries() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		end := time.Now()
		start := end.AddDate(0, -1, 0)
		entries, err := m.app.EntryService.ListEntries(ctx, nil, &start, &end, true)
		if err != nil {
			return entriesDataMsg{err: err}
		}

		cache := make(map[int64]*domain.Client)
		for _, entry := range entries {
			if _, ok := cache[entry.ClientID]; !ok {
				client, err := m.app.ClientRepo.GetByID(ctx, entry.ClientID)
				if err == nil {
					cache[entry.ClientID] = client
				}
			}
		}

		return entriesDataMsg{entries: entries, clientCache: cache}
	}
}

func (m *EntriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entriesDataMsg:
		m.loading = false
		m.err = msg.err
		m.entries = msg.entries
		m.clientCache = msg.clientCache
		if m.cursor >= len(m.entries) {
			m.cursor = 0
		}
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadEntries()

	case tea.KeyMsg:
		m.statusMsg = ""

		if m.deleting {
			switch msg.String() {
			case "enter":
				m.deleting = false
				if m.cursor < len(m.entries) {
					entry := m.entries[m.cursor]
					err := m.app.EntryService.DeleteEntry(context.Background(), entry.ID, m.reasonInput.Value())
					if err != nil {
						m.err = err
						return m, nil
					}
					m.statusMsg = fmt.Sprintf("Entry %d deleted", entry.ID)
					return m, m.loadEntries()
				}
				return m, nil
			case "esc":
				m.deleting = false
				return m, nil
			}
			var cmd tea.Cmd
			m.reasonInput, cmd = m.reasonInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "d":
			if m.cursor < len(m.entries) {
				entry := m.entries[m.cursor]
				if entry.IsLocked() {
					m.err = fmt.Errorf("entry %d is locked to an invoice", entry.ID)
					return m, nil
				}
				m.reasonInput = textinput.New()
				m.reasonInput.Placeholder = "Reason for deletion"
				m.reasonInput.Focus()
				m.reasonInput.CharLimit = 120
				m.deleting = true
			}
		}
	}

	return m, nil
}

func (m *EntriesModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Time Entries (Last 30 Days)")

	if m.loading {
		return title + "\n\nLoading entries..."
	}
	if m.err != nil {
		return title + "\n\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	s := title + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.entries) == 0 {
		return s + subtitleStyle.Render("  No entries in the last 30 days")
	}

	for i, entry := range m.entries {
		clientName := fmt.Sprintf("Client #%d", entry.ClientID)
		if c, ok := m.clientCache[entry.ClientID]; ok {
			clientName = c.Name
		}

		status := " "
		if entry.IsLocked() {
			status = "🔒"
		}

		line := fmt.Sprintf(" %-7s %-18s %-28s %5s %10s %s",
			entry.StartTime.Format("Jan 2"),
			truncateStr(clientName, 18),
			truncateStr(entry.Description, 28),
			formatHours(entry.BilledHours()),
			formatMoney(entry.Amount()),
			status,
		)

		if i == m.cursor {
			s += selectedStyle.Render(line) + "\n"
		} else {
			s += line + "\n"
		}
	}

	if m.deleting {
		s += "\nDelete reason: " + m.reasonInput.View() + "\n"
		s += "Keys: enter=delete, esc=cancel\n"
	} else {
		s += "\nKeys: ↑/↓=move, d=delete\n"
	}
	return s
}
