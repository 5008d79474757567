package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/domain"
)

// DashboardModel represents the dashboard home screen
type DashboardModel struct {
	app *app.App

	// Data
	weekTotalHours    float64
	weekBillableHours float64
	weekTotalValue    decimal.Decimal
	todayTotalHours   float64
	outstanding       decimal.Decimal
	unbilled          decimal.Decimal
	activeTimer       *domain.ActiveTimer
	activeClient      *domain.Client
	recentEntries     []*domain.TimeEntry
	clientCache       map[int64]*domain.Client

	loading bool
	err     error
}

type dashboardDataMsg struct {
	weekTotalHours    float64
	weekBillableHours float64
	weekTotalValue    decimal.Decimal
	todayTotalHours   float64
	outstanding       decimal.Decimal
	unbilled          decimal.Decimal
	activeTimer       *domain.ActiveTimer
	activeClient      *domain.Client
	recentEntries     []*domain.TimeEntry
	clientCache       map[int64]*domain.Client
	err               error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(a *app.App) tea.Model {
	return &DashboardModel{
		app:         a,
		loading:     true,
		clientCache: make(map[int64]*domain.Client),
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *DashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		msg := dashboardDataMsg{
			clientCache: make(map[int64]*domain.Client),
		}

		now := time.Now()

		// Week start (Monday)
		weekStart := now
		for weekStart.Weekday() != time.Monday {
			weekStart = weekStart.AddDate(0, 0, -1)
		}
		weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())

		weekSummary, err := m.app.ReportService.GetWeekSummary(ctx, weekStart)
		if err != nil {
			msg.err = fmt.Errorf("week summary: %w", err)
			return msg
		}
		msg.weekTotalHours = weekSummary.TotalHours
		msg.weekBillableHours = weekSummary.BillableHours
		msg.weekTotalValue = weekSummary.TotalValue

		dailySummary, err := m.app.ReportService.GetDailySummary(ctx, now)
		if err != nil {
			msg.err = fmt.Errorf("daily summary: %w", err)
			return msg
		}
		msg.todayTotalHours = dailySummary.TotalHours

		// Financial totals
		msg.outstanding, _ = m.app.ReportService.GetOutstandingTotal(ctx)
		msg.unbilled, _ = m.app.ReportService.GetUnbilledTotal(ctx)

		// Active timer
		activeTimer, err := m.app.TimerService.GetActiveTimer(ctx)
		if err == nil && activeTimer != nil {
			msg.activeTimer = activeTimer
			client, err := m.app.ClientRepo.GetByID(ctx, activeTimer.ClientID)
			if err == nil {
				msg.activeClient = client
				msg.clientCache[client.ID] = client
			}
		}

		// Recent entries (last 7 days)
		sevenDaysAgo := now.AddDate(0, 0, -7)
		entries, err := m.app.EntryRepo.List(ctx, nil, &sevenDaysAgo, &now, true)
		if err == nil {
			msg.recentEntries = entries
			for _, entry := range entries {
				if _, ok := msg.clientCache[entry.ClientID]; !ok {
					client, err := m.app.ClientRepo.GetByID(ctx, entry.ClientID)
					if err == nil {
						msg.clientCache[entry.ClientID] = client
					}
				}
			}
		}

		return msg
	}
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.weekTotalHours = msg.weekTotalHours
		m.weekBillableHours = msg.weekBillableHours
		m.weekTotalValue = msg.weekTotalValue
		m.todayTotalHours = msg.todayTotalHours
		m.outstanding = msg.outstanding
		m.unbilled = msg.unbilled
		m.activeTimer = msg.activeTimer
		m.activeClient = msg.activeClient
		m.recentEntries = msg.recentEntries
		m.clientCache = msg.clientCache
		if m.activeTimer != nil {
			return m, tickTimer()
		}
		return m, nil

	case TimerTickMsg:
		if m.activeTimer != nil {
			t, err := m.app.TimerService.GetActiveTimer(context.Background())
			if err == nil {
				m.activeTimer = t
			}
			return m, tickTimer()
		}
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.loading {
		return "Loading dashboard..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string

	s += fmt.Sprintf(
		"  This Week:  %-12s  Billed:       %s\n  Today:      %-12s  Outstanding:  %s\n  %-24s  Unbilled:     %s\n",
		formatHours(m.weekTotalHours),
		formatMoney(m.weekTotalValue),
		formatHours(m.todayTotalHours),
		formatMoney(m.outstanding),
		"",
		formatMoney(m.unbilled),
	)

	s += "\n"
	if m.activeTimer != nil {
		s += m.renderActiveTimer()
	} else {
		s += subtitleStyle.Render("  No active timer") + "\n"
	}

	s += "\n" + m.renderRecentEntries()

	return s
}

func (m *DashboardModel) renderActiveTimer() string {
	clientName := fmt.Sprintf("Client #%d", m.activeTimer.ClientID)
	if m.activeClient != nil {
		clientName = m.activeClient.Name
	}

	elapsed := m.activeTimer.Elapsed(time.Now())
	h := int(elapsed.Hours())
	min := int(elapsed.Minutes()) % 60
	sec := int(elapsed.Seconds()) % 60
	timeStr := fmt.Sprintf("%02d:%02d:%02d", h, min, sec)

	var stateStyle lipgloss.Style
	switch m.activeTimer.State() {
	case domain.TimerStatePaused:
		stateStyle = timerPausedStyle
	case domain.TimerStateSuspended:
		stateStyle = timerSuspendedStyle
	default:
		stateStyle = timerRunningStyle
	}

	return fmt.Sprintf("  Active Timer\n  %s %s - %s  [%s]\n",
		stateStyle.Render("●"),
		clientName,
		m.activeTimer.Description,
		timerValueStyle.Render(timeStr),
	)
}

func (m *DashboardModel) renderRecentEntries() string {
	header := "  Recent Entries (Last 7 Days)\n"
	if len(m.recentEntries) == 0 {
		return header + subtitleStyle.Render("  No recent entries") + "\n"
	}

	// Sort most recent first
	sorted := make([]*domain.TimeEntry, len(m.recentEntries))
	copy(sorted, m.recentEntries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})

	s := header
	limit := 8
	if len(sorted) < limit {
		limit = len(sorted)
	}

	for i := 0; i < limit; i++ {
		entry := sorted[i]
		clientName := fmt.Sprintf("Client #%d", entry.ClientID)
		if c, ok := m.clientCache[entry.ClientID]; ok {
			clientName = c.Name
		}

		s += fmt.Sprintf("  %-7s %-20s %6s  %s\n",
			entry.StartTime.Format("Jan 2"),
			truncateStr(clientName, 20),
			formatHours(entry.BilledHours()),
			truncateStr(entry.Description, 30),
		)
	}

	return s
}
