package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
	"github.com/pagebeat-io/pagebeat/internal/core/storage"
	woothee "github.com/woothee/woothee-go"
)

// Locator resolves a client IP to country and city names.
type Locator interface {
	Locate(ip string) (country, city string)
}

// Service creates collectors: one per browser session, carrying origin,
// geo and user-agent attribution for every event the session fires.
type Service struct {
	store   storage.CollectorStore
	locator Locator
	appURL  string
}

func NewService(store storage.CollectorStore, locator Locator, appURL string) *Service {
	if store == nil {
		panic("session: store must not be nil")
	}
	if locator == nil {
		panic("session: locator must not be nil")
	}
	return &Service{
		store:   store,
		locator: locator,
		appURL:  appURL,
	}
}

// RegisterRoutes registers the collector creation routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/create-collector", s.CreateCollectorHandler)
	r.GET("/stats.js", s.ServeScriptHandler)
}

// createCollector assembles and persists a new collector from request
// attributes. Geo and user-agent attribution are best effort; the
// collector is created even when both are unknown.
func (s *Service) createCollector(ctx context.Context, clientIP, origin, userAgent string) (*v1.Collector, error) {
	country, city := s.locator.Locate(clientIP)

	var os, browser string
	if userAgent != "" {
		if parsed, err := woothee.Parse(userAgent); err == nil {
			os = parsed.Os
			browser = parsed.Name
		} else {
			slog.Debug("Unrecognized user agent", "user_agent", userAgent)
		}
	}

	collector := &v1.Collector{
		ID:        ulid.Make().String(),
		Origin:    origin,
		Country:   country,
		City:      city,
		OS:        os,
		Browser:   browser,
		Timestamp: time.Now().UTC(),
	}

	if err := s.store.InsertCollector(ctx, collector); err != nil {
		return nil, err
	}

	slog.Info("Collector created",
		"collector_id", collector.ID,
		"origin", origin,
		"country", country,
		"city", city,
	)
	return collector, nil
}
