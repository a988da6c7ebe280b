package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

func testEvent(id string) *v1.Event {
	return &v1.Event{
		ID:          id,
		URL:         "https://example.com/page",
		Name:        "enter",
		Timestamp:   time.Now().UTC(),
		CollectorID: "col-1",
	}
}

func TestBuffer_SubmitAndDetach(t *testing.T) {
	buf := NewBuffer(PolicyCount, 10)

	require.NoError(t, buf.Submit(testEvent("evt-1")))
	require.NoError(t, buf.Submit(testEvent("evt-2")))
	require.NoError(t, buf.Submit(testEvent("evt-3")))
	require.Equal(t, 3, buf.Len())
	require.Equal(t, 3, buf.Occupancy())

	events := buf.Detach()
	require.Len(t, events, 3)
	require.Equal(t, "evt-1", events[0].ID)
	require.Equal(t, "evt-2", events[1].ID)
	require.Equal(t, "evt-3", events[2].ID)

	// Detach fully resets the buffer.
	require.Equal(t, 0, buf.Len())
	require.Equal(t, 0, buf.Occupancy())
	require.Empty(t, buf.Detach())
}

func TestBuffer_CountPolicyBackpressure(t *testing.T) {
	buf := NewBuffer(PolicyCount, 2)

	require.NoError(t, buf.Submit(testEvent("evt-1")))
	require.NoError(t, buf.Submit(testEvent("evt-2")))

	// Third event exceeds the budget and must be rejected immediately.
	err := buf.Submit(testEvent("evt-3"))
	require.ErrorIs(t, err, ErrBufferFull)
	require.Equal(t, 2, buf.Len())

	// The rejected event was not retained; draining frees the budget.
	buf.Detach()
	require.NoError(t, buf.Submit(testEvent("evt-3")))
}

func TestBuffer_BytesPolicyBackpressure(t *testing.T) {
	evt := testEvent("evt-1")
	size := evt.EstimatedSize()

	// Room for exactly two events of this shape.
	buf := NewBuffer(PolicyBytes, 2*size)

	require.NoError(t, buf.Submit(testEvent("evt-1")))
	require.NoError(t, buf.Submit(testEvent("evt-2")))
	require.Equal(t, 2*size, buf.Occupancy())

	err := buf.Submit(testEvent("evt-3"))
	require.ErrorIs(t, err, ErrBufferFull)
}

func TestBuffer_SignalOnSubmit(t *testing.T) {
	buf := NewBuffer(PolicyCount, 10)

	require.NoError(t, buf.Submit(testEvent("evt-1")))

	select {
	case <-buf.Signal():
	default:
		t.Fatal("expected a pending wake-up after Submit")
	}

	// Repeated submits coalesce into a single pending wake-up.
	require.NoError(t, buf.Submit(testEvent("evt-2")))
	require.NoError(t, buf.Submit(testEvent("evt-3")))
	select {
	case <-buf.Signal():
	default:
		t.Fatal("expected a pending wake-up after repeated Submits")
	}
	select {
	case <-buf.Signal():
		t.Fatal("wake-ups must coalesce, got a second one")
	default:
	}
}

func TestBuffer_ConcurrentProducersNoLoss(t *testing.T) {
	const (
		producers = 8
		perWorker = 200
	)

	buf := NewBuffer(PolicyCount, producers*perWorker)

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		p := p
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if err := buf.Submit(testEvent(fmt.Sprintf("p%d-%d", p, i))); err != nil {
					return err
				}
			}
			return nil
		})
	}

	// Drain concurrently with the producers, the way the scheduler does.
	var (
		mu      sync.Mutex
		drained []*v1.Event
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			batch := buf.Detach()
			mu.Lock()
			drained = append(drained, batch...)
			total := len(drained)
			mu.Unlock()
			if total == producers*perWorker {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.NoError(t, g.Wait())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("drain goroutine did not collect all events")
	}

	// Every admitted event came out exactly once.
	seen := make(map[string]bool, len(drained))
	for _, evt := range drained {
		require.False(t, seen[evt.ID], "event %s drained twice", evt.ID)
		seen[evt.ID] = true
	}
	require.Len(t, seen, producers*perWorker)

	// Per-producer FIFO order survives concurrent drains.
	lastIdx := make(map[int]int, producers)
	for p := 0; p < producers; p++ {
		lastIdx[p] = -1
	}
	for _, evt := range drained {
		var p, i int
		_, err := fmt.Sscanf(evt.ID, "p%d-%d", &p, &i)
		require.NoError(t, err)
		require.Greater(t, i, lastIdx[p], "producer %d order violated", p)
		lastIdx[p] = i
	}
}

func TestNewBuffer_PanicsOnBadCapacity(t *testing.T) {
	require.Panics(t, func() { NewBuffer(PolicyCount, 0) })
	require.Panics(t, func() { NewBuffer(PolicyBytes, -1) })
}
