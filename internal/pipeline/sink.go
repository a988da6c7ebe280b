package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
	"github.com/pagebeat-io/pagebeat/internal/core/storage"
)

// flushTimeout bounds one batch write including all retries.
const flushTimeout = 30 * time.Second

// Sink consumes detached batches in order and writes each to storage on a
// worker separate from both producers and the scheduler. Failed writes are
// retried a fixed number of times with exponential backoff; after that the
// batch is logged and dropped, never re-queued into the live buffer.
type Sink struct {
	store    storage.EventStore
	batches  <-chan []*v1.Event
	attempts uint
	backoff  time.Duration
}

// NewSink creates a sink draining batches into store.
func NewSink(store storage.EventStore, batches <-chan []*v1.Event, retryAttempts int, retryBackoff time.Duration) *Sink {
	if store == nil {
		panic("pipeline: store must not be nil")
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryBackoff <= 0 {
		retryBackoff = 500 * time.Millisecond
	}

	return &Sink{
		store:    store,
		batches:  batches,
		attempts: uint(retryAttempts),
		backoff:  retryBackoff,
	}
}

// Run processes batches until the channel is closed by the scheduler,
// which makes the final shutdown drain automatic: the scheduler's last
// detach lands here before Run returns.
func (s *Sink) Run(ctx context.Context) error {
	slog.Info("[Sink] Starting persistence sink",
		"retry_attempts", s.attempts,
		"retry_backoff", s.backoff,
	)

	for batch := range s.batches {
		s.flush(batch)
	}

	slog.Info("[Sink] Batch channel closed, sink stopped")
	return nil
}

// flush writes one batch, retrying transient failures with exponential
// backoff. Each batch gets its own timeout context so an in-flight write
// survives process shutdown long enough to drain, but never stalls the
// sink indefinitely.
func (s *Sink) flush(batch []*v1.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	var rows int
	err := retry.Do(
		func() error {
			var insertErr error
			rows, insertErr = s.store.InsertEvents(ctx, batch)
			return insertErr
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			sinkRetries.Inc()
			slog.Warn("[Sink] Batch write failed, retrying",
				"attempt", attempt+1,
				"max_attempts", s.attempts,
				"events", len(batch),
				"error", err,
			)
		}),
	)
	if err != nil {
		slog.Error("[Sink] Batch write failed after retries, dropping batch",
			"events", len(batch),
			"error", err,
		)
		batchesDropped.Inc()
		return
	}

	batchesFlushed.Inc()
	eventsPersisted.Add(float64(rows))
	slog.Info("[Sink] Flushed batch", "events", rows)
}
