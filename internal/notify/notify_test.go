package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"marathon/internal/models"
)

// recordingChannel captures delivered events.
type recordingChannel struct {
	events []models.MarathonEvent
	err    error
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Deliver(ev models.MarathonEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestDispatchFansOut(t *testing.T) {
	d := NewDispatcher(nil)
	first := &recordingChannel{}
	second := &recordingChannel{}
	d.Subscribe(first)
	d.Subscribe(second)

	d.Dispatch(models.MarathonEvent{Type: models.EventStarted, MarathonID: "mar-1"})

	for _, ch := range []*recordingChannel{first, second} {
		if len(ch.events) != 1 {
			t.Fatalf("Expected 1 delivered event, got %d", len(ch.events))
		}
		if ch.events[0].Timestamp.IsZero() {
			t.Error("Dispatch should stamp a timestamp")
		}
	}
}

func TestDispatchSwallowsDeliveryErrors(t *testing.T) {
	d := NewDispatcher(nil)
	failing := &recordingChannel{err: errors.New("boom")}
	healthy := &recordingChannel{}
	d.Subscribe(failing)
	d.Subscribe(healthy)

	d.Dispatch(models.MarathonEvent{Type: models.EventStarted})

	if len(healthy.events) != 1 {
		t.Error("A failing channel must not block the others")
	}
}

func TestStreamDropsWhenFull(t *testing.T) {
	s := NewStream(2)

	for i := 0; i < 5; i++ {
		if err := s.Deliver(models.MarathonEvent{Type: models.EventThinking}); err != nil {
			t.Fatalf("Deliver must never fail: %v", err)
		}
	}

	// Only the buffered two survive; the rest were dropped.
	count := 0
	for {
		select {
		case <-s.Events():
			count++
		default:
			if count != 2 {
				t.Errorf("Expected 2 buffered events, got %d", count)
			}
			return
		}
	}
}

func TestCLIRendersEvents(t *testing.T) {
	var buf bytes.Buffer
	c := NewCLI(&buf)

	if err := c.Deliver(models.MarathonEvent{
		Type:     models.EventMilestoneCompleted,
		Message:  "Set up project",
		Progress: models.EventProgress{Completed: 1, Total: 3},
	}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Set up project") {
		t.Errorf("Expected the message in output, got %q", out)
	}
	if !strings.Contains(out, "1/3") {
		t.Errorf("Expected progress in output, got %q", out)
	}
}
