package ingestion

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
	httperr "github.com/pagebeat-io/pagebeat/internal/core/errors"
	"github.com/pagebeat-io/pagebeat/internal/pipeline"
)

const (
	msgInvalidRequest = "Missing url or collector_id"
	msgBufferFull     = "Event buffer full, try again later"
)

// collectQuery is the beacon payload. stats.js sends everything as query
// parameters so the request works as a simple cross-origin GET.
type collectQuery struct {
	URL         string `form:"url"`
	Referrer    string `form:"referrer"`
	Name        string `form:"name"`
	CollectorID string `form:"collector_id"`
}

// CollectHandler handles GET /collect. It assigns the event its id and
// timestamp, submits it to the admission buffer, and answers immediately:
// persistence failures past this point are never surfaced to the client.
func (s *Service) CollectHandler(c *gin.Context) {
	var q collectQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   err.Error(),
		})
		return
	}

	evt := &v1.Event{
		ID:          ulid.Make().String(),
		URL:         cleanURL(q.URL),
		Referrer:    q.Referrer,
		Name:        q.Name,
		Timestamp:   time.Now().UTC(),
		CollectorID: q.CollectorID,
	}

	if err := evt.Validate(); err != nil {
		slog.Warn("Rejected collect request",
			"client_ip", c.ClientIP(),
			"url", q.URL,
			"collector_id", q.CollectorID,
			"error", err,
		)
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   msgInvalidRequest,
		})
		return
	}

	if err := s.buffer.Submit(evt); err != nil {
		if errors.Is(err, pipeline.ErrBufferFull) {
			slog.Warn("Event rejected with backpressure",
				"event_id", evt.ID,
				"client_ip", c.ClientIP(),
				"collector_id", evt.CollectorID,
			)
			c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
				ErrorType: httperr.HttpBackpressureError,
				Message:   msgBufferFull,
			})
			return
		}

		slog.Error("Failed to submit event", "event_id", evt.ID, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to record event",
		})
		return
	}

	slog.Debug("Event queued",
		"event_id", evt.ID,
		"url", evt.URL,
		"name", evt.Name,
		"collector_id", evt.CollectorID,
	)
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// cleanURL strips the query string, fragment and trailing slashes so the
// same page always aggregates under one key. Unparsable input keeps the
// raw value minus trailing slashes.
func cleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/")
}
