package dashboard

import (
	"context"
	"time"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
	"github.com/shopspring/decimal"
)

// EventCounts is the headline summary block.
type EventCounts struct {
	SessionsLast24h int64 `json:"sessions_in_last_twenty_four_hours"`
	EventsLast24h   int64 `json:"events_in_last_twenty_four_hours"`
	EventsLastHour  int64 `json:"events_in_last_hour"`
	EventsLast5m    int64 `json:"events_in_last_five_minutes"`
}

type URLCount struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

type IntervalCount struct {
	Interval time.Time `json:"interval"`
	Count    int64     `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

// OSBrowserCount is one operating-system and browser pairing with its
// visit count.
type OSBrowserCount struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

// HeatmapCount is one cell of the weekly traffic heatmap: day of week
// (0 = Sunday) crossed with hour of day (0-23).
type HeatmapCount struct {
	Day   int   `json:"day"`
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// NameShare is a NameCount with its share of the total, in percent.
type NameShare struct {
	Name       string          `json:"name"`
	Count      int64           `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// MapPoint is a city with resolved coordinates for the sessions map.
type MapPoint struct {
	City  string  `json:"city"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int64   `json:"count"`
}

// SessionWithEvents pairs a collector with the events it produced.
type SessionWithEvents struct {
	Collector v1.Collector `json:"collector"`
	Events    []*v1.Event  `json:"events"`
}

// Store is the read-only query surface the dashboard serves from.
type Store interface {
	EventCounts(ctx context.Context) (*EventCounts, error)
	TopURLs(ctx context.Context, since time.Time, limit int) ([]URLCount, error)
	HourlyCounts(ctx context.Context, since time.Time) ([]IntervalCount, error)
	MinuteCounts(ctx context.Context, since time.Time) ([]IntervalCount, error)
	WeeklyHeatmap(ctx context.Context, since time.Time) ([]HeatmapCount, error)
	BrowserCounts(ctx context.Context, since time.Time) ([]BrowserCount, error)
	OSBrowserCounts(ctx context.Context, since time.Time, limit int) ([]OSBrowserCount, error)
	ReferrerCounts(ctx context.Context, since time.Time, limit int) ([]ReferrerCount, error)
	EventNameCounts(ctx context.Context, since time.Time) ([]NameCount, error)
	CityCounts(ctx context.Context, since time.Time) ([]CityCount, error)
	RecentSessions(ctx context.Context, limit int) ([]SessionWithEvents, error)
}
