package v1

import (
	"fmt"
	"time"
)

// eventBaseSize is the fixed per-event cost charged against a byte-budgeted
// buffer, covering the struct itself plus bookkeeping overhead. The
// variable-length string fields are charged on top of this.
const eventBaseSize = 128

// Event is one tracked interaction awaiting persistence.
// It is assembled once at ingestion time and never mutated afterwards.
type Event struct {
	// ID is a ULID assigned by the ingestion pipeline, not the client.
	ID string `json:"id"`

	// URL is the page the event was recorded on, with query string and
	// trailing slashes already stripped.
	URL string `json:"url"`

	// Referrer is the document referrer as reported by the client.
	// Empty means "none" and is stored as SQL NULL.
	Referrer string `json:"referrer,omitempty"`

	// Name is the event type: "enter", "visit", "leave", "exit" or a
	// custom name fired via stats_collect().
	Name string `json:"name"`

	// Timestamp is the server-side ingestion time (UTC).
	Timestamp time.Time `json:"timestamp"`

	// CollectorID ties the event to the browser session that produced it.
	CollectorID string `json:"collector_id"`
}

// Validate ensures the event carries everything the pipeline needs.
func (e *Event) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("url is required")
	}

	if e.Name == "" {
		return fmt.Errorf("name is required")
	}

	if e.CollectorID == "" {
		return fmt.Errorf("collector_id is required")
	}

	return nil
}

// EstimatedSize returns the approximate memory footprint of the event in
// bytes: a fixed base cost plus the heap cost of each string field.
// Byte-budgeted admission uses this as the cost function.
func (e *Event) EstimatedSize() int {
	return eventBaseSize + len(e.ID) + len(e.URL) + len(e.Referrer) + len(e.Name) + len(e.CollectorID)
}
