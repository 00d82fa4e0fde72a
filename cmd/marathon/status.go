package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"marathon/internal/marathon"
	"marathon/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List marathons",
	RunE:  runList,
}

var statusCmd = &cobra.Command{
	Use:   "status [marathon-id]",
	Short: "Show marathon details",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var resultCmd = &cobra.Command{
	Use:   "result [marathon-id]",
	Short: "Show the outcome summary of a marathon",
	Args:  cobra.ExactArgs(1),
	RunE:  runResult,
}

func runList(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	marathons, err := db.ListMarathons()
	if err != nil {
		return err
	}
	if len(marathons) == 0 {
		fmt.Println("No marathons found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tGOAL\tMILESTONES\tSTARTED")
	for i := range marathons {
		st := &marathons[i]
		completed := 0
		for _, m := range st.Plan.Milestones {
			if m.Status == models.MilestoneCompleted {
				completed++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			st.ID, st.Status, truncateGoal(st.Plan.Goal, 48),
			completed, len(st.Plan.Milestones),
			st.StartedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.LoadMarathon(args[0])
	if err != nil {
		return err
	}
	if st == nil {
		return marathon.ErrUnknownMarathon
	}

	fmt.Printf("Marathon: %s\n", st.ID)
	fmt.Printf("Goal:     %s\n", st.Plan.Goal)
	fmt.Printf("Status:   %s\n", st.Status)
	if st.Error != "" {
		fmt.Printf("Error:    %s\n", st.Error)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MILESTONE\tSTATUS\tRETRIES\tTITLE")
	for _, m := range st.Plan.Milestones {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", m.ID, m.Status, m.RetryCount, m.MaxRetries, m.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if n := len(st.Logs); n > 0 {
		fmt.Println("\nRecent log:")
		start := 0
		if n > 10 {
			start = n - 10
		}
		for _, e := range st.Logs[start:] {
			fmt.Printf("  %s [%s] %s\n", e.Time.Local().Format(time.TimeOnly), e.Level, e.Message)
		}
	}

	// The event log is durable, so this works after a restart too.
	events, err := db.RecentEvents(st.ID, 10)
	if err != nil {
		return err
	}
	printEvents(os.Stdout, events)
	return nil
}

func printEvents(w io.Writer, events []models.MarathonEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent events:")
	for _, ev := range events {
		line := fmt.Sprintf("  %s %s", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type)
		if ev.Message != "" {
			line += " " + ev.Message
		}
		if ev.Progress.Total > 0 {
			line += fmt.Sprintf(" [%d/%d]", ev.Progress.Completed, ev.Progress.Total)
		}
		fmt.Fprintln(w, line)
	}
}

func runResult(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.LoadMarathon(args[0])
	if err != nil {
		return err
	}
	if st == nil {
		return marathon.ErrUnknownMarathon
	}
	if !st.Status.IsTerminal() {
		return fmt.Errorf("marathon %s is still %s", st.ID, st.Status)
	}

	printResult(os.Stdout, st.ID, marathon.DeriveResult(st))
	return nil
}

func printResult(w io.Writer, id string, res *models.Result) {
	outcome := "FAILED"
	if res.Success {
		outcome = "SUCCESS"
	}
	fmt.Fprintf(w, "\nMarathon %s: %s\n", id, outcome)
	fmt.Fprintf(w, "Milestones: %d/%d completed\n", res.CompletedMilestones, res.TotalMilestones)
	fmt.Fprintf(w, "Total time: %s\n", res.TotalTime.Round(time.Second))
	if len(res.Artifacts) > 0 {
		fmt.Fprintln(w, "Artifacts:")
		for _, a := range res.Artifacts {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}
}

func truncateGoal(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
