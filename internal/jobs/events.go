package jobs

import (
	"sync"
	"time"
)

// EventType classifies messages emitted while a job runs.
type EventType string

const (
	// EventProgress carries an authoritative display percentage.
	EventProgress EventType = "progress"
	// EventLog carries advisory engine text; it never moves the percentage.
	EventLog EventType = "log"
	// EventStatus marks a stage transition.
	EventStatus EventType = "status"
	// EventResult signals a completed analysis.
	EventResult EventType = "result"
	// EventError signals a failed job.
	EventError EventType = "error"
)

// Event is a sequenced payload consumed by progress subscribers.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	Type      EventType `json:"type"`
	Status    string    `json:"status,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// EventBus is a bounded in-memory event buffer with incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bus that keeps at most maxEvents recent events.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event, assigning its sequence number and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return event
}

// Since returns events with sequence strictly greater than seq, in order.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
