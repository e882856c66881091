package jobs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSequencesEvents(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{JobID: "j", Type: EventProgress, Percent: 5})
	second := bus.Publish(Event{JobID: "j", Type: EventLog, Detail: "frame=10"})

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.Timestamp.IsZero())
}

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{JobID: "j", Type: EventProgress, Percent: i})
	}

	events := bus.Since(3)
	require.Len(t, events, 2)
	assert.Equal(t, int64(4), events[0].Seq)
	assert.Equal(t, int64(5), events[1].Seq)

	assert.Empty(t, bus.Since(5))
}

func TestEventBusBounded(t *testing.T) {
	bus := NewEventBus(3)
	for i := 1; i <= 10; i++ {
		bus.Publish(Event{JobID: "j", Type: EventLog, Detail: fmt.Sprintf("line %d", i)})
	}

	events := bus.Since(0)
	require.Len(t, events, 3)
	// Oldest events were trimmed; ordering within the kept tail survives.
	assert.Equal(t, int64(8), events[0].Seq)
	assert.Equal(t, int64(10), events[2].Seq)
}
