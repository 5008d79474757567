package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/domain"
)

// RatesModel displays the rate catalog
type RatesModel struct {
	app     *app.App
	rates   []*domain.RateDefinition
	cursor  int
	loading bool
	err     error
}

type ratesDataMsg struct {
	rates []*domain.RateDefinition
	err   error
}

// NewRatesModel creates a new rates screen model
func NewRatesModel(a *app.App) tea.Model {
	return &RatesModel{app: a, loading: true}
}

func (m *RatesModel) Init() tea.Cmd {
	return m.loadRates()
}

func (m *RatesModel) loadRates() tea.Cmd {
	return func() tea.Msg {
		rates, err := m.app.RateService.ListRates(context.Background())
		return ratesDataMsg{rates: rates, err: err}
	}
}

func (m *RatesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ratesDataMsg:
		m.loading = false
		m.err = msg.err
		m.rates = msg.rates
		if m.cursor >= len(m.rates) {
			m.cursor = 0
		}
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadRates()

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rates)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

func (m *RatesModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Rate Catalog")

	if m.loading {
		return title + "\n\nLoading rates..."
	}
	if m.err != nil {
		return title + "\n\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	s := title + "\n\n"

	if len(m.rates) == 0 {
		return s + subtitleStyle.Render("  Catalog is empty. Add a default rate with the CLI.")
	}

	for i, rate := range m.rates {
		marker := "  "
		if rate.IsDefault {
			marker = timerRunningStyle.Render("★ ")
		}

		line := fmt.Sprintf(" %s%-25s %-7s %12s  %s",
			marker,
			truncateStr(rate.Name, 25),
			rate.RateType,
			formatRate(rate.Amount),
			rateScopeLabel(rate),
		)

		if i == m.cursor {
			s += selectedStyle.Render(line) + "\n"
		} else {
			s += line + "\n"
		}
	}

	s += "\n" + subtitleStyle.Render("  ★ = default fallback. Manage definitions with 'lexledger rates'.") + "\n"
	return s
}

func rateScopeLabel(rate *domain.RateDefinition) string {
	var parts []string
	if rate.ClientID != nil {
		parts = append(parts, fmt.Sprintf("client %d", *rate.ClientID))
	}
	if rate.MatterID != nil {
		parts = append(parts, fmt.Sprintf("matter %d", *rate.MatterID))
	}
	if rate.PracticeAreaID != nil {
		parts = append(parts, fmt.Sprintf("area %d", *rate.PracticeAreaID))
	}
	if rate.ActivityTypeID != nil {
		parts = append(parts, fmt.Sprintf("activity %d", *rate.ActivityTypeID))
	}
	if len(parts) == 0 {
		return "any work"
	}
	return strings.Join(parts, ", ")
}
