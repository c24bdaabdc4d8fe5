// Package stats computes dashboard figures from the visit log. Nothing is
// materialised; every figure is folded from visit rows on request.
package stats

import (
	"math"
	"sort"
	"time"

	"visitor-kiosk-backend/internal/model"
)

// DurationSeconds is the whole seconds from in to out, clamped at zero.
func DurationSeconds(in, out time.Time) int64 {
	d := int64(out.Sub(in) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// AverageDurationSeconds is the rounded mean duration over visits that have a
// check-out time. It is 0 when there are none.
func AverageDurationSeconds(visits []model.Visit) int64 {
	var sum, n int64
	for _, v := range visits {
		if v.CheckOutAt == nil {
			continue
		}
		sum += DurationSeconds(v.CheckInAt, *v.CheckOutAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return int64(math.Round(float64(sum) / float64(n)))
}

// DayBounds returns [start, end) of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DayCount is the number of check-ins on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyCounts buckets check-ins into days consecutive calendar days starting at
// the day containing from. Days without visits are present with a zero count.
func DailyCounts(visits []model.Visit, from time.Time, days int, loc *time.Location) []DayCount {
	if days <= 0 {
		return []DayCount{}
	}
	start, _ := DayBounds(from, loc)
	out := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := range out {
		key := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = DayCount{Date: key}
		index[key] = i
	}
	for _, v := range visits {
		if i, ok := index[v.CheckInAt.In(loc).Format(time.DateOnly)]; ok {
			out[i].Count++
		}
	}
	return out
}

// PeakHour is the local hour of day (0-23) with the most check-ins, the
// earliest hour winning ties. It is nil for an empty set.
func PeakHour(visits []model.Visit, loc *time.Location) *int {
	if len(visits) == 0 {
		return nil
	}
	var counts [24]int
	for _, v := range visits {
		counts[v.CheckInAt.In(loc).Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if counts[h] > counts[best] {
			best = h
		}
	}
	return &best
}

// BusiestDepartment is the host department with the most visits, ties broken
// alphabetically. Visits without a loaded host are ignored.
func BusiestDepartment(visits []model.Visit) *string {
	counts := make(map[string]int)
	for _, v := range visits {
		if v.Host == nil || v.Host.Department == "" {
			continue
		}
		counts[v.Host.Department]++
	}
	if len(counts) == 0 {
		return nil
	}
	depts := make([]string, 0, len(counts))
	for d := range counts {
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool {
		if counts[depts[i]] != counts[depts[j]] {
			return counts[depts[i]] > counts[depts[j]]
		}
		return depts[i] < depts[j]
	})
	return &depts[0]
}

// UniqueVisitors counts distinct visitors.
func UniqueVisitors(visits []model.Visit) int {
	seen := make(map[int64]struct{}, len(visits))
	for _, v := range visits {
		seen[v.VisitorID] = struct{}{}
	}
	return len(seen)
}

// HistoryRow is one visit in the admin history, flattened for display.
type HistoryRow struct {
	VisitID         int64             `json:"visit_id"`
	VisitorName     *string           `json:"visitor_name"`
	Company         *string           `json:"company"`
	HostName        *string           `json:"host_name"`
	Department      *string           `json:"department"`
	Purpose         *string           `json:"purpose"`
	Status          model.VisitStatus `json:"status"`
	CheckInAt       time.Time         `json:"check_in_at"`
	CheckOutAt      *time.Time        `json:"check_out_at"`
	DurationSeconds *int64            `json:"duration_seconds"`
}

// NewHistoryRow flattens a visit. Duration stays nil while the visit is open.
func NewHistoryRow(v model.Visit) HistoryRow {
	row := HistoryRow{
		VisitID:    v.ID,
		Purpose:    v.Purpose,
		Status:     v.Status,
		CheckInAt:  v.CheckInAt,
		CheckOutAt: v.CheckOutAt,
	}
	if v.Visitor != nil {
		row.VisitorName = &v.Visitor.FullName
		row.Company = v.Visitor.Company
	}
	if v.Host != nil {
		row.HostName = &v.Host.FullName
		row.Department = &v.Host.Department
	}
	if !v.Active() && v.CheckOutAt != nil {
		d := DurationSeconds(v.CheckInAt, *v.CheckOutAt)
		row.DurationSeconds = &d
	}
	return row
}
