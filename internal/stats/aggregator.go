package stats

import (
	"context"
	"fmt"
	"time"

	"visitor-kiosk-backend/internal/model"
)

// Reader is the read side of the visit store.
type Reader interface {
	CountCheckInsBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountActiveVisits(ctx context.Context) (int64, error)
	ListClosedVisits(ctx context.Context) ([]model.Visit, error)
	ListRecentVisits(ctx context.Context, limit int) ([]model.Visit, error)
	ListVisitsBetween(ctx context.Context, from, to time.Time) ([]model.Visit, error)
}

// Summary is the headline block of the admin dashboard.
type Summary struct {
	VisitorsToday      int64 `json:"visitors_today"`
	ActiveVisitors     int64 `json:"active_visitors"`
	AvgDurationSeconds int64 `json:"avg_duration_seconds"`
}

// Dashboard is the summary plus the most recent visits.
type Dashboard struct {
	Stats    Summary      `json:"stats"`
	Visitors []HistoryRow `json:"visitors"`
}

// Statistics describes check-in activity over a window of whole days.
type Statistics struct {
	Days              int        `json:"days"`
	From              string     `json:"from"`
	To                string     `json:"to"`
	Daily             []DayCount `json:"daily"`
	PeakHour          *int       `json:"peak_hour"`
	BusiestDepartment *string    `json:"busiest_department"`
	UniqueVisitors    int        `json:"unique_visitors"`
	TotalVisits       int        `json:"total_visits"`
	CompletedVisits   int        `json:"completed_visits"`
}

// Aggregator answers dashboard queries. Calendar days are taken in loc.
type Aggregator struct {
	reader Reader
	loc    *time.Location
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator. A nil loc means UTC.
func NewAggregator(r Reader, loc *time.Location, opts ...Option) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	a := &Aggregator{reader: r, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VisitorsToday counts check-ins during the current facility-local day.
func (a *Aggregator) VisitorsToday(ctx context.Context) (int64, error) {
	start, end := DayBounds(a.now(), a.loc)
	n, err := a.reader.CountCheckInsBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("visitors today: %w", err)
	}
	return n, nil
}

// ActiveCount counts visits still checked in.
func (a *Aggregator) ActiveCount(ctx context.Context) (int64, error) {
	n, err := a.reader.CountActiveVisits(ctx)
	if err != nil {
		return 0, fmt.Errorf("active count: %w", err)
	}
	return n, nil
}

// AverageDurationSeconds is the mean length of every closed visit.
func (a *Aggregator) AverageDurationSeconds(ctx context.Context) (int64, error) {
	closed, err := a.reader.ListClosedVisits(ctx)
	if err != nil {
		return 0, fmt.Errorf("average duration: %w", err)
	}
	return AverageDurationSeconds(closed), nil
}

// History returns up to limit visits, newest first.
func (a *Aggregator) History(ctx context.Context, limit int) ([]HistoryRow, error) {
	visits, err := a.reader.ListRecentVisits(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	rows := make([]HistoryRow, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, NewHistoryRow(v))
	}
	return rows, nil
}

// Dashboard combines the summary with the recentLimit latest visits.
func (a *Aggregator) Dashboard(ctx context.Context, recentLimit int) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Stats.VisitorsToday, err = a.VisitorsToday(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Stats.ActiveVisitors, err = a.ActiveCount(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Stats.AvgDurationSeconds, err = a.AverageDurationSeconds(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Visitors, err = a.History(ctx, recentLimit); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Statistics covers the last days calendar days, today included.
func (a *Aggregator) Statistics(ctx context.Context, days int) (Statistics, error) {
	if days <= 0 {
		days = 1
	}
	todayStart, todayEnd := DayBounds(a.now(), a.loc)
	from := todayStart.AddDate(0, 0, -(days - 1))

	// Check-ins stamped after today (clock skew) fall outside every daily bucket.
	visits, err := a.reader.ListVisitsBetween(ctx, from, todayEnd)
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}

	completed := 0
	for _, v := range visits {
		if !v.Active() {
			completed++
		}
	}

	return Statistics{
		Days:              days,
		From:              from.Format(time.DateOnly),
		To:                todayStart.Format(time.DateOnly),
		Daily:             DailyCounts(visits, from, days, a.loc),
		PeakHour:          PeakHour(visits, a.loc),
		BusiestDepartment: BusiestDepartment(visits),
		UniqueVisitors:    UniqueVisitors(visits),
		TotalVisits:       len(visits),
		CompletedVisits:   completed,
	}, nil
}
