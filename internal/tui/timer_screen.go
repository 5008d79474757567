package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/domain"
)

// TimerTickMsg is sent every second when timer is running (screen-local)
type TimerTickMsg struct{}

// tickTimer returns a command that sends TimerTickMsg every second
func tickTimer() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TimerTickMsg{}
	})
}

// timerMode represents the current timer screen mode
type timerMode int

const (
	timerModeView timerMode = iota
	timerModeDescription // entering a description before starting
	timerModeRateEdit    // entering a manual rate
)

// matterChoice pairs a matter with its client for the quick-start list
type matterChoice struct {
	matter *domain.Matter
	client *domain.Client
}

// mattersLoadedMsg is sent when the quick-start list is loaded
type mattersLoadedMsg struct {
	choices []matterChoice
	err     error
}

// timerStoppedMsg is sent when a timer is stopped successfully
type timerStoppedMsg struct {
	entry *domain.TimeEntry
}

// loadMattersCmd loads open matters with their clients
func loadMattersCmd(a *app.App) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		matters, err := a.MatterRepo.List(ctx, nil, false)
		if err != nil {
			return mattersLoadedMsg{err: err}
		}

		choices := make([]matterChoice, 0, len(matters))
		for _, matter := range matters {
			client, err := a.ClientRepo.GetByID(ctx, matter.ClientID)
			if err != nil {
				continue
			}
			choices = append(choices, matterChoice{matter: matter, client: client})
		}
		return mattersLoadedMsg{choices: choices}
	}
}

// TimerModel shows the active session and its controls
type TimerModel struct {
	app       *app.App
	timer     *domain.ActiveTimer
	choices   []matterChoice
	client    *domain.Client // current timer's client
	matter    *domain.Matter // current timer's matter
	err       error
	statusMsg string

	mode      timerMode
	pending   *matterChoice // matter awaiting a description
	descInput textinput.Model
	rateInput textinput.Model
}

// IsCapturingInput returns true when a form is open or a timer is active so
// keys like r (resume) are not intercepted by global screen navigation.
func (m *TimerModel) IsCapturingInput() bool {
	return m.mode != timerModeView || m.timer != nil
}

// NewTimerModel creates a new TimerModel
func NewTimerModel(a *app.App) tea.Model {
	m := &TimerModel{app: a}
	t, err := a.TimerService.GetActiveTimer(context.Background())
	if err != nil {
		m.err = err
	}
	m.timer = t
	return m
}

// Init starts the ticker when there's an active timer and loads matters
func (m *TimerModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, loadMattersCmd(m.app))
	if m.timer != nil {
		cmds = append(cmds, tickTimer())
	}
	return tea.Batch(cmds...)
}

// Update handles key events and ticks
func (m *TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, loadMattersCmd(m.app))
		t, err := m.app.TimerService.GetActiveTimer(context.Background())
		if err != nil {
			m.err = err
		} else {
			m.timer = t
			if t != nil {
				m.loadTimerContext()
				cmds = append(cmds, tickTimer())
			}
		}
		return m, tea.Batch(cmds...)

	case mattersLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.choices = msg.choices
		if m.timer != nil {
			m.loadTimerContext()
		}
		return m, nil

	case timerStoppedMsg:
		m.timer = nil
		m.client = nil
		m.matter = nil
		if msg.entry == nil {
			m.statusMsg = "Session rounded to zero, no entry created"
		} else {
			m.statusMsg = fmt.Sprintf("Entry saved: %.1fh at %s",
				msg.entry.BilledHours(), formatRate(msg.entry.HourlyRate))
		}
		return m, nil

	case TimerTickMsg:
		if m.timer == nil {
			return m, nil
		}
		ctx := context.Background()
		threshold := time.Duration(m.app.IdleThreshold()) * time.Minute
		if _, err := m.app.TimerService.CheckIdle(ctx, threshold); err != nil {
			m.err = err
			return m, nil
		}
		t, err := m.app.TimerService.GetActiveTimer(ctx)
		if err != nil {
			m.err = err
			return m, nil
		}
		if t == nil {
			// Timer was stopped externally (e.g. CLI)
			m.timer = nil
			m.client = nil
			m.matter = nil
			return m, nil
		}
		m.timer = t
		return m, tickTimer()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Let the focused text input absorb non-key messages too
	return m, m.updateInputs(msg)
}

func (m *TimerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.statusMsg = ""

	switch m.mode {
	case timerModeDescription:
		switch msg.String() {
		case "enter":
			choice := m.pending
			desc := m.descInput.Value()
			m.mode = timerModeView
			m.pending = nil
			return m, m.startTimer(choice, desc)
		case "esc":
			m.mode = timerModeView
			m.pending = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.descInput, cmd = m.descInput.Update(msg)
		return m, cmd

	case timerModeRateEdit:
		switch msg.String() {
		case "enter":
			rate, err := strconv.ParseFloat(m.rateInput.Value(), 64)
			if err != nil {
				m.err = fmt.Errorf("invalid rate: %w", err)
				return m, nil
			}
			m.mode = timerModeView
			ctx := context.Background()
			if err := m.app.TimerService.EditRate(ctx, rate); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			if m.timer != nil && m.timer.Selector.State == domain.OverrideStatePending {
				m.statusMsg = "Rate staged. Press c to confirm, v to cancel."
			}
			return m, nil
		case "esc":
			m.mode = timerModeView
			return m, nil
		}
		var cmd tea.Cmd
		m.rateInput, cmd = m.rateInput.Update(msg)
		return m, cmd
	}

	// View mode
	if m.timer == nil {
		switch msg.String() {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(msg.String()[0] - '1')
			if idx >= 0 && idx < len(m.choices) && idx < 9 {
				choice := m.choices[idx]
				m.pending = &choice
				m.descInput = textinput.New()
				m.descInput.Placeholder = "What are you working on?"
				m.descInput.Focus()
				m.descInput.CharLimit = 200
				m.mode = timerModeDescription
			}
		}
		return m, nil
	}

	ctx := context.Background()
	state := m.timer.State()

	if state == domain.TimerStateSuspended {
		switch msg.String() {
		case "k":
			if err := m.app.TimerService.ResolveIdle(ctx, true); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			m.statusMsg = "Idle time kept"
			return m, tickTimer()
		case "g":
			if err := m.app.TimerService.ResolveIdle(ctx, false); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			m.statusMsg = "Idle time discarded"
			return m, tickTimer()
		}
		return m, nil
	}

	switch msg.String() {
	case "p":
		if err := m.app.TimerService.Pause(ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
		return m, nil
	case "r":
		if err := m.app.TimerService.Resume(ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
		return m, tickTimer()
	case "x":
		return m, m.stopTimer()
	case "d":
		if err := m.app.TimerService.Discard(ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.timer = nil
		m.client = nil
		m.matter = nil
		m.statusMsg = "Timer discarded"
		return m, nil
	case "o":
		m.rateInput = textinput.New()
		m.rateInput.Placeholder = "Hourly rate"
		m.rateInput.Focus()
		m.rateInput.CharLimit = 12
		m.mode = timerModeRateEdit
		return m, nil
	case "c":
		if m.timer.Selector.State == domain.OverrideStatePending {
			if err := m.app.TimerService.ConfirmRate(ctx); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			m.statusMsg = "Rate override confirmed"
		}
		return m, nil
	case "v":
		if m.timer.Selector.State == domain.OverrideStatePending {
			if err := m.app.TimerService.CancelRate(ctx); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			m.statusMsg = "Rate edit cancelled"
		}
		return m, nil
	case "u":
		if m.timer.Selector.State == domain.OverrideStateOverridden {
			if err := m.app.TimerService.ResetRate(ctx); err != nil {
				m.err = err
				return m, nil
			}
			m.timer, _ = m.app.TimerService.GetActiveTimer(ctx)
			m.statusMsg = "Rate reset to catalog value"
		}
		return m, nil
	}

	return m, nil
}

func (m *TimerModel) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.mode {
	case timerModeDescription:
		m.descInput, cmd = m.descInput.Update(msg)
	case timerModeRateEdit:
		m.rateInput, cmd = m.rateInput.Update(msg)
	}
	return cmd
}

func (m *TimerModel) startTimer(choice *matterChoice, description string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		clientID := choice.client.ID
		matterID := choice.matter.ID
		wctx := domain.WorkContext{
			ClientID:       &clientID,
			MatterID:       &matterID,
			PracticeAreaID: choice.matter.PracticeAreaID,
		}
		if err := m.app.TimerService.Start(ctx, wctx, description); err != nil {
			return ErrorMsg{Err: err}
		}
		t, err := m.app.TimerService.GetActiveTimer(ctx)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		m.timer = t
		m.client = choice.client
		m.matter = choice.matter
		return TimerTickMsg{}
	}
}

func (m *TimerModel) stopTimer() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		entry, err := m.app.TimerService.Stop(ctx, domain.Billable)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerStoppedMsg{entry: entry}
	}
}

// loadTimerContext loads the client and matter for the active timer
func (m *TimerModel) loadTimerContext() {
	if m.timer == nil {
		m.client = nil
		m.matter = nil
		return
	}
	ctx := context.Background()
	m.client, _ = m.app.ClientRepo.GetByID(ctx, m.timer.ClientID)
	m.matter, _ = m.app.MatterRepo.GetByID(ctx, m.timer.MatterID)
}

// View renders the timer screen
func (m *TimerModel) View() string {
	var b string
	title := lipgloss.NewStyle().Bold(true).Render("Active Timer")

	if m.err != nil {
		return title + "\n\n" +
			lipgloss.NewStyle().Foreground(errorColor).
				Render(fmt.Sprintf("Error: %s", m.err.Error())) +
			"\n\nPress any key to dismiss"
	}

	if m.mode == timerModeDescription {
		b += title + "\n\n"
		b += fmt.Sprintf("Starting timer for %s / %s\n\n", m.pending.client.Name, m.pending.matter.Name)
		b += "Description: " + m.descInput.View() + "\n"
		b += "\nKeys: enter=start, esc=cancel\n"
		return b
	}

	if m.timer == nil {
		// No active timer - show matter selection
		b += title + "\n\n"

		if m.statusMsg != "" {
			b += lipgloss.NewStyle().Foreground(successColor).
				Render("  "+m.statusMsg) + "\n\n"
		}

		b += "No active timer. Select a matter to start:\n\n"

		if m.choices == nil {
			b += "Loading matters...\n"
		} else if len(m.choices) == 0 {
			b += "No open matters. Add a client and matter first.\n"
		} else {
			for i, choice := range m.choices {
				if i >= 9 {
					break
				}
				b += fmt.Sprintf("[%d] %s - %s\n", i+1,
					truncateStr(choice.client.Name, 25),
					truncateStr(choice.matter.Name, 35))
			}
		}
		b += "\nKeys: 1-9=start timer\n"
		return b
	}

	// Active timer view
	elapsed := m.timer.Elapsed(time.Now())
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60
	elapsedStr := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)

	clientName := fmt.Sprintf("Client #%d", m.timer.ClientID)
	if m.client != nil {
		clientName = m.client.Name
	}
	matterName := fmt.Sprintf("Matter #%d", m.timer.MatterID)
	if m.matter != nil {
		matterName = m.matter.Name
	}

	var stateStr string
	switch m.timer.State() {
	case domain.TimerStatePaused:
		stateStr = timerPausedStyle.Render("PAUSED")
	case domain.TimerStateSuspended:
		stateStr = timerSuspendedStyle.Render("SUSPENDED (idle)")
	default:
		stateStr = timerRunningStyle.Render("RUNNING")
	}

	rate := m.timer.Selector.Rate
	valueAccrued := elapsed.Hours() * rate

	b += title + "\n\n"
	if m.statusMsg != "" {
		b += lipgloss.NewStyle().Foreground(successColor).
			Render(m.statusMsg) + "\n\n"
	}
	b += fmt.Sprintf("State: %s\n", stateStr)
	b += fmt.Sprintf("Client: %s\n", clientName)
	b += fmt.Sprintf("Matter: %s\n", matterName)
	if m.timer.Description != "" {
		b += fmt.Sprintf("Description: %s\n", m.timer.Description)
	}
	b += fmt.Sprintf("Started: %s\n", m.timer.StartTime.Format("2006-01-02 15:04:05"))
	b += fmt.Sprintf("Elapsed: %s\n", elapsedStr)

	rateStr := formatRate(rate)
	switch m.timer.Selector.State {
	case domain.OverrideStatePending:
		rateStr += timerPausedStyle.Render(" (pending confirmation)")
	case domain.OverrideStateOverridden:
		rateStr += subtitleStyle.Render(" (overridden)")
	}
	b += fmt.Sprintf("Rate: %s\n", rateStr)
	if rate > 0 {
		b += fmt.Sprintf("Accrued: %s\n", timerValueStyle.Render(fmt.Sprintf("$%.2f", valueAccrued)))
	}

	if m.mode == timerModeRateEdit {
		b += "\nNew rate: " + m.rateInput.View() + "\n"
		b += "Keys: enter=stage, esc=cancel\n"
		return b
	}

	switch m.timer.State() {
	case domain.TimerStateSuspended:
		idleFor := "a while"
		if m.timer.IdleSince != nil && m.timer.PausedAt != nil {
			idleFor = m.timer.PausedAt.Sub(*m.timer.IdleSince).Round(time.Minute).String()
		}
		b += fmt.Sprintf("\nYou were idle for %s. Keep that time on the clock?\n", idleFor)
		b += "Keys: k=keep, g=discard\n"
	default:
		b += "\nKeys: p=pause, r=resume, x=stop, d=discard, o=override rate"
		if m.timer.Selector.State == domain.OverrideStatePending {
			b += ", c=confirm, v=cancel"
		}
		if m.timer.Selector.State == domain.OverrideStateOverridden {
			b += ", u=unpin rate"
		}
		b += "\n"
	}
	return b
}
