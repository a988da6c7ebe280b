package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newMockSummaryAdapter(t *testing.T) (*SummaryAdapter, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSummaryAdapter(db), mock
}

func TestSummaryAdapter_EventCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(querySummaryCounts)).
		WillReturnRows(sqlmock.NewRows([]string{"sessions", "events_24h", "events_1h", "events_5m"}).
			AddRow(int64(7), int64(210), int64(16), int64(2)))

	counts, err := adapter.EventCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), counts.SessionsLast24h)
	require.Equal(t, int64(210), counts.EventsLast24h)
	require.Equal(t, int64(16), counts.EventsLastHour)
	require.Equal(t, int64(2), counts.EventsLast5m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_TopURLs(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryTopURLs)).
		WithArgs(since, 25).
		WillReturnRows(sqlmock.NewRows([]string{"url", "count"}).
			AddRow("https://example.com/home", int64(40)).
			AddRow("https://example.com/about", int64(12)))

	urls, err := adapter.TopURLs(context.Background(), since, 25)
	require.NoError(t, err)
	require.Len(t, urls, 2)
	require.Equal(t, "https://example.com/home", urls[0].URL)
	require.Equal(t, int64(40), urls[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_HourlyCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-24 * time.Hour)
	hour := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryHourlyCounts)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "count"}).
			AddRow(hour, int64(33)).
			AddRow(hour.Add(time.Hour), int64(15)))

	hours, err := adapter.HourlyCounts(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, hours, 2)
	require.Equal(t, hour, hours[0].Interval)
	require.Equal(t, int64(33), hours[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_MinuteCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-24 * time.Hour)
	minute := time.Date(2026, 8, 30, 14, 7, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryMinuteCounts)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"interval", "count"}).
			AddRow(minute, int64(3)).
			AddRow(minute.Add(time.Minute), int64(5)))

	minutes, err := adapter.MinuteCounts(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, minutes, 2)
	require.Equal(t, minute, minutes[0].Interval)
	require.Equal(t, int64(3), minutes[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_WeeklyHeatmap(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryWeeklyHeatmap)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "hour", "count"}).
			AddRow(0, 9, int64(4)).
			AddRow(3, 17, int64(22)))

	cells, err := adapter.WeeklyHeatmap(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	require.Equal(t, 0, cells[0].Day)
	require.Equal(t, 9, cells[0].Hour)
	require.Equal(t, int64(4), cells[0].Count)
	require.Equal(t, 3, cells[1].Day)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_OSBrowserCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryOSBrowserCounts)).
		WithArgs(since, 25).
		WillReturnRows(sqlmock.NewRows([]string{"os", "browser", "count"}).
			AddRow("Windows 10", "Firefox", int64(30)).
			AddRow("Mac OSX", "Safari", int64(12)))

	pairs, err := adapter.OSBrowserCounts(context.Background(), since, 25)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	require.Equal(t, "Windows 10", pairs[0].OS)
	require.Equal(t, "Firefox", pairs[0].Browser)
	require.Equal(t, int64(30), pairs[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_BrowserCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryBrowserCounts)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"browser", "count"}).
			AddRow("Firefox", int64(20)).
			AddRow("Unknown", int64(3)))

	browsers, err := adapter.BrowserCounts(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, browsers, 2)
	require.Equal(t, "Firefox", browsers[0].Browser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_CityCounts(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	since := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryCityCounts)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"city", "count"}).
			AddRow("Berlin", int64(9)))

	cities, err := adapter.CityCounts(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.Equal(t, "Berlin", cities[0].City)
	require.Equal(t, int64(9), cities[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_RecentSessions(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(queryRecentCollectors)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "origin", "country", "city", "os", "browser", "timestamp"}).
			AddRow("col-2", "https://b.example.com", "France", "Paris", "Mac OSX", "Safari", ts).
			AddRow("col-1", "https://a.example.com", "Germany", "Berlin", nil, nil, ts.Add(-time.Hour)))

	mock.ExpectQuery(regexp.QuoteMeta(queryEventsForCollectors)).
		WithArgs(pq.Array([]string{"col-2", "col-1"})).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "url", "referrer", "name", "timestamp", "collector_id"}).
			AddRow("evt-1", "https://a.example.com/x", nil, "enter", ts.Add(-time.Hour), "col-1").
			AddRow("evt-2", "https://b.example.com/y", "https://ref.com", "enter", ts, "col-2").
			AddRow("evt-3", "https://b.example.com/z", nil, "visit", ts.Add(time.Minute), "col-2"))

	sessions, err := adapter.RecentSessions(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Collector recency order is preserved, events grouped underneath.
	require.Equal(t, "col-2", sessions[0].Collector.ID)
	require.Equal(t, "Safari", sessions[0].Collector.Browser)
	require.Len(t, sessions[0].Events, 2)
	require.Equal(t, "evt-2", sessions[0].Events[0].ID)
	require.Equal(t, "https://ref.com", sessions[0].Events[0].Referrer)

	require.Equal(t, "col-1", sessions[1].Collector.ID)
	require.Empty(t, sessions[1].Collector.Browser)
	require.Len(t, sessions[1].Events, 1)
	require.Equal(t, "evt-1", sessions[1].Events[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryAdapter_RecentSessionsEmpty(t *testing.T) {
	adapter, mock := newMockSummaryAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryRecentCollectors)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "origin", "country", "city", "os", "browser", "timestamp"}))

	sessions, err := adapter.RecentSessions(context.Background(), 50)
	require.NoError(t, err)
	require.Empty(t, sessions)
	require.NoError(t, mock.ExpectationsWereMet())
}
