package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"marathon/internal/models"
	"marathon/internal/notify"
	"marathon/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Plan and execute a marathon for a goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

var resumeCmd = &cobra.Command{
	Use:   "resume [marathon-id]",
	Short: "Resume a paused marathon",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

var (
	goalContext string
	withTUI     bool
)

func init() {
	runCmd.Flags().StringVar(&goalContext, "context", "", "Additional context for planning (constraints, tech stack)")
	runCmd.Flags().BoolVar(&withTUI, "tui", false, "Show live progress in a terminal UI")
	resumeCmd.Flags().BoolVar(&withTUI, "tui", false, "Show live progress in a terminal UI")
}

func runRun(cmd *cobra.Command, args []string) error {
	return execute(func(ctx context.Context, a *app) (*models.MarathonState, error) {
		return a.service.Start(ctx, args[0], goalContext, a.cfg.ThinkingStrategy())
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	return execute(func(ctx context.Context, a *app) (*models.MarathonState, error) {
		return a.service.Resume(ctx, args[0])
	})
}

// execute runs a marathon (fresh or resumed) with signal handling and
// either the CLI notifier or the TUI attached.
func execute(start func(ctx context.Context, a *app) (*models.MarathonState, error)) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// First interrupt requests a pause at the next milestone boundary;
	// a second one cancels outright.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "\npausing at next milestone boundary (interrupt again to force quit)")
		if perr := a.service.Pause(); perr != nil {
			cancel()
			return
		}
		<-sigs
		cancel()
	}()

	if withTUI {
		return executeTUI(ctx, a, start)
	}

	a.dispatcher.Subscribe(notify.NewCLI(os.Stdout))
	st, err := start(ctx, a)
	if err != nil {
		return err
	}
	return report(a, st)
}

func executeTUI(ctx context.Context, a *app, start func(ctx context.Context, a *app) (*models.MarathonState, error)) error {
	stream := notify.NewStream(64)
	a.dispatcher.Subscribe(stream)

	type outcome struct {
		state *models.MarathonState
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		st, err := start(ctx, a)
		done <- outcome{state: st, err: err}
	}()

	prog := tea.NewProgram(tui.New(a.service.Status, stream.Events()))
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	out := <-done
	if out.err != nil {
		return out.err
	}
	return report(a, out.state)
}

// report prints the terminal summary once a marathon stops running.
func report(a *app, st *models.MarathonState) error {
	switch st.Status {
	case models.MarathonPaused:
		fmt.Printf("\nmarathon %s paused; resume with: marathon resume %s\n", st.ID, st.ID)
		return nil
	case models.MarathonCompleted:
		res, err := a.service.Result(st.ID)
		if err != nil {
			return err
		}
		printResult(os.Stdout, st.ID, res)
		return nil
	default:
		return fmt.Errorf("marathon %s ended with status %s: %s", st.ID, st.Status, st.Error)
	}
}
