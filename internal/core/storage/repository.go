package storage

import (
	"context"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

// EventStore persists batches of events.
type EventStore interface {
	// InsertEvents writes the whole batch in one statement and returns the
	// number of rows written. The batch commits atomically: on error no
	// event from the batch is visible.
	InsertEvents(ctx context.Context, events []*v1.Event) (int, error)
}

// CollectorStore persists browser-session collectors.
type CollectorStore interface {
	InsertCollector(ctx context.Context, collector *v1.Collector) error
}
