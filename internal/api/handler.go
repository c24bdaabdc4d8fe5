package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"visitor-kiosk-backend/internal/stats"
	"visitor-kiosk-backend/internal/store"
	"visitor-kiosk-backend/internal/visit"
)

// Limits bounds list sizes and upload sizes served by the handlers.
type Limits struct {
	HistoryLimit    int
	MaxHistoryLimit int
	DashboardLimit  int
	StatisticsDays  int
	MaxStatsDays    int
	MaxUploadBytes  int64
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	visits  *visit.Service
	stats   *stats.Aggregator
	store   store.Store
	webpush *webpush.Options
	limits  Limits
}

// NewHandler creates a new API handler. webpushOptions may be nil when push is disabled.
func NewHandler(visits *visit.Service, agg *stats.Aggregator, s store.Store, webpushOptions *webpush.Options, limits Limits) *Handler {
	if limits.HistoryLimit <= 0 {
		limits.HistoryLimit = 200
	}
	if limits.DashboardLimit <= 0 {
		limits.DashboardLimit = 100
	}
	if limits.StatisticsDays <= 0 {
		limits.StatisticsDays = 7
	}
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = 2 << 20
	}
	if limits.MaxHistoryLimit <= 0 {
		limits.MaxHistoryLimit = 1000
	}
	if limits.MaxStatsDays <= 0 {
		limits.MaxStatsDays = 366
	}
	return &Handler{
		visits:  visits,
		stats:   agg,
		store:   s,
		webpush: webpushOptions,
		limits:  limits,
	}
}
