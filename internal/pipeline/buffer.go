package pipeline

import (
	"errors"
	"sync"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

// ErrBufferFull is the backpressure signal returned to producers when
// admitting another event would exceed the configured budget. Callers
// translate it into a degraded response; the event is not retained.
var ErrBufferFull = errors.New("event buffer full")

// AdmissionPolicy selects the unit the buffer budget is expressed in.
type AdmissionPolicy string

const (
	// PolicyBytes charges each event its estimated memory footprint.
	PolicyBytes AdmissionPolicy = "bytes"
	// PolicyCount charges each event 1.
	PolicyCount AdmissionPolicy = "count"
)

// Buffer is the bounded holding area between HTTP producers and the batch
// scheduler. Submit never blocks: when the budget is exhausted it fails
// immediately with ErrBufferFull. Events leave the buffer only through
// Detach, called by the single scheduler consumer.
type Buffer struct {
	mu        sync.Mutex
	events    []*v1.Event
	occupancy int

	capacity int
	cost     func(*v1.Event) int
	signal   chan struct{}
}

// NewBuffer creates a buffer with the given policy and capacity, where
// capacity is in bytes for PolicyBytes and in events for PolicyCount.
func NewBuffer(policy AdmissionPolicy, capacity int) *Buffer {
	if capacity <= 0 {
		panic("pipeline: buffer capacity must be > 0")
	}

	cost := func(evt *v1.Event) int { return evt.EstimatedSize() }
	if policy == PolicyCount {
		cost = func(*v1.Event) int { return 1 }
	}

	return &Buffer{
		capacity: capacity,
		cost:     cost,
		signal:   make(chan struct{}, 1),
	}
}

// Submit admits the event or rejects it with ErrBufferFull.
// Each event is admitted exactly once or rejected exactly once; FIFO
// order among events from a single producer is preserved.
func (b *Buffer) Submit(evt *v1.Event) error {
	itemCost := b.cost(evt)

	b.mu.Lock()
	if b.occupancy+itemCost > b.capacity {
		b.mu.Unlock()
		eventsRejected.Inc()
		return ErrBufferFull
	}
	b.events = append(b.events, evt)
	b.occupancy += itemCost
	occupancy := b.occupancy
	b.mu.Unlock()

	eventsAdmitted.Inc()
	bufferOccupancy.Set(float64(occupancy))

	// Wake the scheduler. A pending wake-up already covers this event.
	select {
	case b.signal <- struct{}{}:
	default:
	}

	return nil
}

// Detach atomically removes and returns every pending event, resetting
// occupancy to zero. Only the scheduler calls this.
func (b *Buffer) Detach() []*v1.Event {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.occupancy = 0
	b.mu.Unlock()

	bufferOccupancy.Set(0)
	return events
}

// Len returns the number of pending events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Occupancy returns the current budget usage in the policy's unit.
func (b *Buffer) Occupancy() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.occupancy
}

// Signal returns the channel pulsed on every successful Submit.
// The scheduler blocks on it instead of polling.
func (b *Buffer) Signal() <-chan struct{} {
	return b.signal
}
