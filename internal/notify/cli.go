package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"marathon/internal/models"
)

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// CLI renders events as styled lines on a writer.
type CLI struct {
	out io.Writer
}

// NewCLI creates a CLI notification channel.
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Name returns the channel identifier.
func (c *CLI) Name() string {
	return "cli"
}

// Deliver renders one event.
func (c *CLI) Deliver(ev models.MarathonEvent) error {
	style := infoStyle
	switch ev.Type {
	case models.EventMilestoneCompleted, models.EventCompleted, models.EventVerificationCompleted:
		style = okStyle
	case models.EventRecovering, models.EventApprovalNeeded, models.EventPaused:
		style = warnStyle
	case models.EventMilestoneFailed, models.EventFailed:
		style = failStyle
	}

	progress := ""
	if ev.Progress.Total > 0 {
		progress = dimStyle.Render(fmt.Sprintf(" [%d/%d]", ev.Progress.Completed, ev.Progress.Total))
	}

	line := style.Render(string(ev.Type))
	if ev.Message != "" {
		line += " " + ev.Message
	}
	_, err := fmt.Fprintln(c.out, line+progress)
	return err
}
