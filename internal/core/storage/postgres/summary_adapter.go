package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
	"github.com/pagebeat-io/pagebeat/internal/dashboard"
)

// SummaryAdapter implements dashboard.Store with plain read-only SQL.
// It shares the write adapter's connection pool.
type SummaryAdapter struct {
	db *sql.DB
}

// NewSummaryAdapter creates a read adapter over an existing connection.
func NewSummaryAdapter(db *sql.DB) *SummaryAdapter {
	return &SummaryAdapter{db: db}
}

const querySummaryCounts = `
	SELECT
		(SELECT COUNT(*) FROM collectors WHERE timestamp >= now() - interval '24 hours'),
		(SELECT COUNT(*) FROM events WHERE timestamp >= now() - interval '24 hours'),
		(SELECT COUNT(*) FROM events WHERE timestamp >= now() - interval '1 hour'),
		(SELECT COUNT(*) FROM events WHERE timestamp >= now() - interval '5 minutes')
`

func (a *SummaryAdapter) EventCounts(ctx context.Context) (*dashboard.EventCounts, error) {
	var counts dashboard.EventCounts
	err := a.db.QueryRowContext(ctx, querySummaryCounts).Scan(
		&counts.SessionsLast24h,
		&counts.EventsLast24h,
		&counts.EventsLastHour,
		&counts.EventsLast5m,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	return &counts, nil
}

const queryTopURLs = `
	SELECT url, COUNT(*) AS count
	FROM events
	WHERE timestamp > $1
	GROUP BY url
	ORDER BY count DESC, url ASC
	LIMIT $2
`

func (a *SummaryAdapter) TopURLs(ctx context.Context, since time.Time, limit int) ([]dashboard.URLCount, error) {
	rows, err := a.db.QueryContext(ctx, queryTopURLs, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top urls: %w", err)
	}
	defer rows.Close()

	var results []dashboard.URLCount
	for rows.Next() {
		var uc dashboard.URLCount
		if err := rows.Scan(&uc.URL, &uc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan url count: %w", err)
		}
		results = append(results, uc)
	}
	return results, rows.Err()
}

const queryHourlyCounts = `
	SELECT date_trunc('hour', timestamp) AS hour, COUNT(*) AS count
	FROM events
	WHERE timestamp > $1
	GROUP BY hour
	ORDER BY hour ASC
`

func (a *SummaryAdapter) HourlyCounts(ctx context.Context, since time.Time) ([]dashboard.IntervalCount, error) {
	rows, err := a.db.QueryContext(ctx, queryHourlyCounts, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.IntervalCount
	for rows.Next() {
		var ic dashboard.IntervalCount
		if err := rows.Scan(&ic.Interval, &ic.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hourly count: %w", err)
		}
		results = append(results, ic)
	}
	return results, rows.Err()
}

const queryMinuteCounts = `
	SELECT date_trunc('minute', timestamp) AS interval, COUNT(*) AS count
	FROM events
	WHERE timestamp > $1
	GROUP BY interval
	ORDER BY interval ASC
`

func (a *SummaryAdapter) MinuteCounts(ctx context.Context, since time.Time) ([]dashboard.IntervalCount, error) {
	rows, err := a.db.QueryContext(ctx, queryMinuteCounts, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query minute counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.IntervalCount
	for rows.Next() {
		var ic dashboard.IntervalCount
		if err := rows.Scan(&ic.Interval, &ic.Count); err != nil {
			return nil, fmt.Errorf("failed to scan minute count: %w", err)
		}
		results = append(results, ic)
	}
	return results, rows.Err()
}

// Day of week follows EXTRACT(DOW): 0 is Sunday, matching what the
// dashboard heatmap renders.
const queryWeeklyHeatmap = `
	SELECT EXTRACT(DOW FROM timestamp)::int AS day,
	       EXTRACT(HOUR FROM timestamp)::int AS hour,
	       COUNT(*) AS count
	FROM events
	WHERE timestamp > $1
	GROUP BY day, hour
	ORDER BY day ASC, hour ASC
`

func (a *SummaryAdapter) WeeklyHeatmap(ctx context.Context, since time.Time) ([]dashboard.HeatmapCount, error) {
	rows, err := a.db.QueryContext(ctx, queryWeeklyHeatmap, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly heatmap: %w", err)
	}
	defer rows.Close()

	var results []dashboard.HeatmapCount
	for rows.Next() {
		var hc dashboard.HeatmapCount
		if err := rows.Scan(&hc.Day, &hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap cell: %w", err)
		}
		results = append(results, hc)
	}
	return results, rows.Err()
}

const queryBrowserCounts = `
	SELECT COALESCE(c.browser, 'Unknown') AS browser, COUNT(*) AS count
	FROM events e
	JOIN collectors c ON c.id = e.collector_id
	WHERE e.timestamp > $1
	GROUP BY browser
	ORDER BY count DESC, browser ASC
`

func (a *SummaryAdapter) BrowserCounts(ctx context.Context, since time.Time) ([]dashboard.BrowserCount, error) {
	rows, err := a.db.QueryContext(ctx, queryBrowserCounts, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query browser counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.BrowserCount
	for rows.Next() {
		var bc dashboard.BrowserCount
		if err := rows.Scan(&bc.Browser, &bc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan browser count: %w", err)
		}
		results = append(results, bc)
	}
	return results, rows.Err()
}

const queryOSBrowserCounts = `
	SELECT os, browser, COUNT(*) AS count
	FROM collectors
	WHERE timestamp > $1 AND os IS NOT NULL AND browser IS NOT NULL
	GROUP BY os, browser
	ORDER BY count DESC, os ASC, browser ASC
	LIMIT $2
`

func (a *SummaryAdapter) OSBrowserCounts(ctx context.Context, since time.Time, limit int) ([]dashboard.OSBrowserCount, error) {
	rows, err := a.db.QueryContext(ctx, queryOSBrowserCounts, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query os/browser counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.OSBrowserCount
	for rows.Next() {
		var oc dashboard.OSBrowserCount
		if err := rows.Scan(&oc.OS, &oc.Browser, &oc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan os/browser count: %w", err)
		}
		results = append(results, oc)
	}
	return results, rows.Err()
}

const queryReferrerCounts = `
	SELECT referrer, COUNT(*) AS count
	FROM events
	WHERE timestamp > $1 AND referrer IS NOT NULL AND referrer <> ''
	GROUP BY referrer
	ORDER BY count DESC, referrer ASC
	LIMIT $2
`

func (a *SummaryAdapter) ReferrerCounts(ctx context.Context, since time.Time, limit int) ([]dashboard.ReferrerCount, error) {
	rows, err := a.db.QueryContext(ctx, queryReferrerCounts, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrer counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.ReferrerCount
	for rows.Next() {
		var rc dashboard.ReferrerCount
		if err := rows.Scan(&rc.Referrer, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan referrer count: %w", err)
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}

const queryEventNameCounts = `
	SELECT name, COUNT(*) AS count
	FROM events
	WHERE timestamp > $1
	GROUP BY name
	ORDER BY count DESC, name ASC
`

func (a *SummaryAdapter) EventNameCounts(ctx context.Context, since time.Time) ([]dashboard.NameCount, error) {
	rows, err := a.db.QueryContext(ctx, queryEventNameCounts, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query event name counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.NameCount
	for rows.Next() {
		var nc dashboard.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event name count: %w", err)
		}
		results = append(results, nc)
	}
	return results, rows.Err()
}

const queryCityCounts = `
	SELECT city, COUNT(*) AS count
	FROM collectors
	WHERE timestamp > $1 AND city <> 'Unknown'
	GROUP BY city
	ORDER BY count DESC, city ASC
`

func (a *SummaryAdapter) CityCounts(ctx context.Context, since time.Time) ([]dashboard.CityCount, error) {
	rows, err := a.db.QueryContext(ctx, queryCityCounts, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query city counts: %w", err)
	}
	defer rows.Close()

	var results []dashboard.CityCount
	for rows.Next() {
		var cc dashboard.CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan city count: %w", err)
		}
		results = append(results, cc)
	}
	return results, rows.Err()
}

const queryRecentCollectors = `
	SELECT id, origin, country, city, os, browser, timestamp
	FROM collectors
	ORDER BY timestamp DESC
	LIMIT $1
`

const queryEventsForCollectors = `
	SELECT id, url, referrer, name, timestamp, collector_id
	FROM events
	WHERE collector_id = ANY($1)
	ORDER BY timestamp ASC
`

// RecentSessions loads the newest collectors and groups their events under
// them, preserving the collectors' recency order.
func (a *SummaryAdapter) RecentSessions(ctx context.Context, limit int) ([]dashboard.SessionWithEvents, error) {
	rows, err := a.db.QueryContext(ctx, queryRecentCollectors, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent collectors: %w", err)
	}
	defer rows.Close()

	var sessions []dashboard.SessionWithEvents
	var ids []string
	for rows.Next() {
		collector, err := scanCollectorRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, dashboard.SessionWithEvents{Collector: *collector})
		ids = append(ids, collector.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collectors: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	eventRows, err := a.db.QueryContext(ctx, queryEventsForCollectors, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer eventRows.Close()

	byCollector := make(map[string][]*v1.Event, len(sessions))
	for eventRows.Next() {
		event, err := scanEventRow(eventRows)
		if err != nil {
			return nil, err
		}
		byCollector[event.CollectorID] = append(byCollector[event.CollectorID], event)
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session events: %w", err)
	}

	for i := range sessions {
		sessions[i].Events = byCollector[sessions[i].Collector.ID]
	}
	return sessions, nil
}
