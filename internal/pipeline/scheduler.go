package pipeline

import (
	"context"
	"log/slog"
	"time"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

// Scheduler is the single consumer of the admission buffer. It races two
// conditions and flushes on whichever fires first: the accumulated event
// count reaching batchSize, or the flush window elapsing since the last
// flush. Detached batches are handed to the sink through a bounded ordered
// channel; the scheduler never waits for a storage write.
type Scheduler struct {
	buffer    *Buffer
	batchSize int
	window    time.Duration
	out       chan []*v1.Event
}

// NewScheduler creates a scheduler draining buffer into batches.
// pendingBatches bounds how many detached batches may await the sink; when
// the bound is hit further batches are dropped, never re-queued.
func NewScheduler(buffer *Buffer, batchSize int, window time.Duration, pendingBatches int) *Scheduler {
	if buffer == nil {
		panic("pipeline: buffer must not be nil")
	}
	if batchSize <= 0 {
		panic("pipeline: batch size must be > 0")
	}
	if window <= 0 {
		panic("pipeline: flush window must be > 0")
	}
	if pendingBatches <= 0 {
		pendingBatches = 1
	}

	return &Scheduler{
		buffer:    buffer,
		batchSize: batchSize,
		window:    window,
		out:       make(chan []*v1.Event, pendingBatches),
	}
}

// Batches returns the ordered stream of detached batches. Closed when the
// scheduler stops; the sink drains it to completion.
func (s *Scheduler) Batches() <-chan []*v1.Event {
	return s.out
}

// Start runs the scheduler loop until ctx is cancelled, then performs a
// final best-effort drain and closes the batch channel.
func (s *Scheduler) Start(ctx context.Context) error {
	timer := time.NewTimer(s.window)
	defer timer.Stop()

	slog.Info("[Scheduler] Starting batch scheduler",
		"batch_size", s.batchSize,
		"flush_window", s.window,
		"pending_batches", cap(s.out),
	)

	for {
		select {
		case <-s.buffer.Signal():
			if s.buffer.Len() < s.batchSize {
				continue
			}
			s.dispatch(s.buffer.Detach())
			resetTimer(timer, s.window)

		case <-timer.C:
			// Fires even with nothing pending; an empty detach is a no-op.
			s.dispatch(s.buffer.Detach())
			timer.Reset(s.window)

		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			s.dispatch(s.buffer.Detach())
			close(s.out)
			return nil
		}
	}
}

// dispatch hands a detached batch to the sink without blocking.
// The channel preserves detach order; a full channel means the sink is far
// behind (sustained storage outage) and the batch is dropped to keep
// memory bounded.
func (s *Scheduler) dispatch(batch []*v1.Event) {
	if len(batch) == 0 {
		return
	}

	select {
	case s.out <- batch:
	default:
		slog.Error("[Scheduler] Pending batch queue full, dropping batch",
			"events", len(batch))
		batchesDropped.Inc()
	}
}

// resetTimer restarts a timer whose channel may hold an undelivered tick.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
