package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/pagebeat-io/pagebeat/internal/core/errors"
	"github.com/pagebeat-io/pagebeat/internal/geo"
	"github.com/shopspring/decimal"
)

const (
	topURLLimit       = 25
	topReferrerLimit  = 25
	osBrowserLimit    = 25
	recentSessionsMax = 50
)

// CityResolver maps a city name to coordinates for the sessions map.
type CityResolver interface {
	Resolve(name string) (geo.Coordinates, bool)
}

// Service implements the read-only dashboard API over plain SQL
// aggregates. It never touches the ingestion pipeline's state.
type Service struct {
	store    Store
	resolver CityResolver
	nowFn    func() time.Time
}

// NewService creates a new dashboard service.
func NewService(store Store, resolver CityResolver) *Service {
	if store == nil {
		panic("dashboard: store must not be nil")
	}
	if resolver == nil {
		panic("dashboard: resolver must not be nil")
	}
	return &Service{
		store:    store,
		resolver: resolver,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// RegisterRoutes registers the dashboard query routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/sessions", s.SessionsHandler)
	r.GET("/sessions/map", s.SessionsMapHandler)
	r.GET("/summary", s.SummaryHandler)
	r.GET("/summary/urls", s.URLsHandler)
	r.GET("/summary/hourly", s.HourlyHandler)
	r.GET("/summary/weekly", s.WeeklyHandler)
	r.GET("/summary/fiveminutes", s.FiveMinutesHandler)
	r.GET("/summary/browsers", s.BrowsersHandler)
	r.GET("/summary/osbrowsers", s.OSBrowsersHandler)
	r.GET("/summary/referrers", s.ReferrersHandler)
	r.GET("/summary/percentages", s.PercentagesHandler)
}

func (s *Service) SummaryHandler(c *gin.Context) {
	counts, err := s.store.EventCounts(c.Request.Context())
	if err != nil {
		writeQueryError(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Service) URLsHandler(c *gin.Context) {
	urls, err := s.store.TopURLs(c.Request.Context(), s.nowFn().Add(-24*time.Hour), topURLLimit)
	if err != nil {
		writeQueryError(c, "urls", err)
		return
	}
	c.JSON(http.StatusOK, urls)
}

func (s *Service) HourlyHandler(c *gin.Context) {
	hours, err := s.store.HourlyCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour))
	if err != nil {
		writeQueryError(c, "hourly", err)
		return
	}
	c.JSON(http.StatusOK, hours)
}

// WeeklyHandler serves the traffic heatmap: event counts per day of week
// and hour of day over the last 7 days.
func (s *Service) WeeklyHandler(c *gin.Context) {
	cells, err := s.store.WeeklyHeatmap(c.Request.Context(), s.nowFn().Add(-7*24*time.Hour))
	if err != nil {
		writeQueryError(c, "weekly", err)
		return
	}
	c.JSON(http.StatusOK, cells)
}

// FiveMinutesHandler serves the per-minute event series for the last 24
// hours, feeding the dashboard's short-horizon activity graph.
func (s *Service) FiveMinutesHandler(c *gin.Context) {
	minutes, err := s.store.MinuteCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour))
	if err != nil {
		writeQueryError(c, "five minutes", err)
		return
	}
	c.JSON(http.StatusOK, minutes)
}

func (s *Service) BrowsersHandler(c *gin.Context) {
	browsers, err := s.store.BrowserCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour))
	if err != nil {
		writeQueryError(c, "browsers", err)
		return
	}
	c.JSON(http.StatusOK, browsers)
}

func (s *Service) OSBrowsersHandler(c *gin.Context) {
	pairs, err := s.store.OSBrowserCounts(c.Request.Context(), s.nowFn().Add(-7*24*time.Hour), osBrowserLimit)
	if err != nil {
		writeQueryError(c, "os browsers", err)
		return
	}
	c.JSON(http.StatusOK, pairs)
}

func (s *Service) ReferrersHandler(c *gin.Context) {
	referrers, err := s.store.ReferrerCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour), topReferrerLimit)
	if err != nil {
		writeQueryError(c, "referrers", err)
		return
	}
	c.JSON(http.StatusOK, referrers)
}

// PercentagesHandler reports each event name's share of the last 24 hours
// of traffic, rounded to two decimal places.
func (s *Service) PercentagesHandler(c *gin.Context) {
	counts, err := s.store.EventNameCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour))
	if err != nil {
		writeQueryError(c, "percentages", err)
		return
	}
	c.JSON(http.StatusOK, computeShares(counts))
}

func (s *Service) SessionsHandler(c *gin.Context) {
	sessions, err := s.store.RecentSessions(c.Request.Context(), recentSessionsMax)
	if err != nil {
		writeQueryError(c, "sessions", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// SessionsMapHandler plots session cities. Cities the resolver cannot
// place are left off the map rather than plotted at (0, 0).
func (s *Service) SessionsMapHandler(c *gin.Context) {
	cities, err := s.store.CityCounts(c.Request.Context(), s.nowFn().Add(-24*time.Hour))
	if err != nil {
		writeQueryError(c, "sessions map", err)
		return
	}

	points := make([]MapPoint, 0, len(cities))
	for _, city := range cities {
		coords, ok := s.resolver.Resolve(city.City)
		if !ok {
			continue
		}
		points = append(points, MapPoint{
			City:  city.City,
			Lat:   coords.Lat,
			Lng:   coords.Lng,
			Count: city.Count,
		})
	}

	c.JSON(http.StatusOK, points)
}

// computeShares turns raw name counts into percentage shares.
func computeShares(counts []NameCount) []NameShare {
	var total int64
	for _, nc := range counts {
		total += nc.Count
	}

	shares := make([]NameShare, 0, len(counts))
	if total == 0 {
		return shares
	}

	hundred := decimal.NewFromInt(100)
	totalDec := decimal.NewFromInt(total)
	for _, nc := range counts {
		shares = append(shares, NameShare{
			Name:       nc.Name,
			Count:      nc.Count,
			Percentage: decimal.NewFromInt(nc.Count).Mul(hundred).Div(totalDec).Round(2),
		})
	}

	return shares
}

func writeQueryError(c *gin.Context, query string, err error) {
	slog.Error("Dashboard query failed", "query", query, "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Query failed",
	})
}
