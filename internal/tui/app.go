// Package tui provides a read-only terminal view of a running marathon.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"marathon/internal/models"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	doneStyle    = lipgloss.NewStyle().Foreground(successColor)
	failStyle    = lipgloss.NewStyle().Foreground(errorColor)
	runningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(mutedColor)
	eventStyle   = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	helpStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

const maxEventLines = 8

// eventMsg wraps a marathon event for the bubbletea update loop.
type eventMsg models.MarathonEvent

// Model renders the milestone list, a progress bar, and recent events.
// It subscribes read-only: all control goes through the service.
type Model struct {
	events <-chan models.MarathonEvent
	state  func() *models.MarathonState

	spinner  spinner.Model
	progress progress.Model
	recent   []string
	done     bool
}

// New creates a TUI model. state returns the current marathon state and
// is polled on every event; events is the subscribed stream.
func New(state func() *models.MarathonState, events <-chan models.MarathonEvent) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		events:   events,
		state:    state,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the spinner and event subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Update handles key presses, spinner ticks, and marathon events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - 8

	case eventMsg:
		line := string(msg.Type)
		if msg.Message != "" {
			line += ": " + msg.Message
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > maxEventLines {
			m.recent = m.recent[len(m.recent)-maxEventLines:]
		}
		if msg.Type == models.EventCompleted || msg.Type == models.EventFailed {
			m.done = true
		}
		return m, m.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current marathon state.
func (m Model) View() string {
	st := m.state()
	if st == nil {
		return helpStyle.Render("no marathon running") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Marathon: "+st.Plan.Goal) + "\n\n")

	completed := 0
	for i := range st.Plan.Milestones {
		ms := &st.Plan.Milestones[i]
		var line string
		switch ms.Status {
		case models.MilestoneCompleted:
			completed++
			line = doneStyle.Render("✓ " + ms.Title)
		case models.MilestoneFailed:
			line = failStyle.Render("✗ " + ms.Title)
		case models.MilestoneInProgress:
			line = runningStyle.Render(m.spinner.View() + ms.Title)
		case models.MilestoneSkipped:
			line = pendingStyle.Render("- " + ms.Title + " (skipped)")
		default:
			line = pendingStyle.Render("· " + ms.Title)
		}
		b.WriteString("  " + line + "\n")
	}

	total := len(st.Plan.Milestones)
	if total > 0 {
		b.WriteString("\n  " + m.progress.ViewAs(float64(completed)/float64(total)) + "\n")
	}
	b.WriteString(fmt.Sprintf("\n  status: %s\n", st.Status))

	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			b.WriteString("  " + eventStyle.Render(line) + "\n")
		}
	}

	if m.done {
		b.WriteString("\n" + helpStyle.Render("  finished — press q to quit") + "\n")
	} else {
		b.WriteString("\n" + helpStyle.Render("  q: quit (marathon keeps running)") + "\n")
	}
	return b.String()
}
