// Package notify fans the marathon event stream out to notification
// channels. Delivery failures are logged and swallowed; they must never
// affect executor correctness.
package notify

import (
	"log"
	"sync"
	"time"

	"marathon/internal/models"
	"marathon/internal/store"
)

// Channel receives marathon events. Implementations are read-only
// consumers; control always goes through the service.
type Channel interface {
	// Name returns the channel identifier.
	Name() string

	// Deliver hands one event to the channel.
	Deliver(ev models.MarathonEvent) error
}

// Dispatcher fans events out to subscribed channels and appends them to
// the persistent event log.
type Dispatcher struct {
	mu       sync.Mutex
	channels []Channel
	db       *store.Store
}

// NewDispatcher creates a dispatcher. db may be nil, in which case
// events are not persisted.
func NewDispatcher(db *store.Store) *Dispatcher {
	return &Dispatcher{db: db}
}

// Subscribe adds a channel to the fan-out set.
func (d *Dispatcher) Subscribe(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, ch)
}

// Dispatch stamps, persists, and delivers one event.
func (d *Dispatcher) Dispatch(ev models.MarathonEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if d.db != nil {
		if err := d.db.AppendEvent(ev); err != nil {
			log.Printf("notify: append event: %v", err)
		}
	}

	d.mu.Lock()
	channels := make([]Channel, len(d.channels))
	copy(channels, d.channels)
	d.mu.Unlock()

	for _, ch := range channels {
		if err := ch.Deliver(ev); err != nil {
			log.Printf("notify: deliver to %s: %v", ch.Name(), err)
		}
	}
}

// Stream is a channel-backed subscriber for in-process consumers like
// the TUI. Events are dropped rather than blocking the executor when
// the consumer falls behind.
type Stream struct {
	ch chan models.MarathonEvent
}

// NewStream creates a stream with the given buffer size.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 64
	}
	return &Stream{ch: make(chan models.MarathonEvent, buffer)}
}

// Name returns the channel identifier.
func (s *Stream) Name() string {
	return "stream"
}

// Deliver enqueues the event, dropping it if the buffer is full.
func (s *Stream) Deliver(ev models.MarathonEvent) error {
	select {
	case s.ch <- ev:
	default:
	}
	return nil
}

// Events returns the receive side of the stream.
func (s *Stream) Events() <-chan models.MarathonEvent {
	return s.ch
}
