// Package report computes revenue, expense and ranking figures over a date
// range. Every function here is pure: the same collections and range always
// produce the same result.
package report

import (
	"errors"
	"fmt"
	"time"

	"salon/internal/core"
)

// Period names a preset range relative to "now".
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

var ErrInvalidRange = errors.New("invalid date range")

// Range is an inclusive interval [From, To].
type Range struct {
	From time.Time
	To   time.Time
}

// NewRange expands from and to to whole days in loc.
func NewRange(from, to time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := Range{From: startOfDay(from.In(loc)), To: endOfDay(to.In(loc))}
	if r.To.Before(r.From) {
		return Range{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return r, nil
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Days is the number of calendar days the range touches.
func (r Range) Days() int {
	n := 0
	for d := startOfDay(r.From); !d.After(r.To); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// PeriodRange returns the range of the period containing now, in now's location.
// Weeks start on Monday.
func PeriodRange(p Period, now time.Time) (Range, error) {
	switch p {
	case PeriodDay:
		return Range{From: startOfDay(now), To: endOfDay(now)}, nil
	case PeriodWeek:
		start := startOfWeek(now)
		return Range{From: start, To: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}, nil
	case PeriodMonth:
		start := startOfMonth(now)
		return Range{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
	case PeriodQuarter:
		q := (int(now.Month()) - 1) / 3
		start := time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, now.Location())
		return Range{From: start, To: start.AddDate(0, 3, 0).Add(-time.Nanosecond)}, nil
	case PeriodYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return Range{From: start, To: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	}
	return Range{}, fmt.Errorf("unknown period %q", p)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return startOfDay(t).AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// GranularityFor picks day buckets up to 31 days, ISO weeks up to 90 days,
// calendar months beyond that.
func GranularityFor(r Range) core.Granularity {
	switch days := r.Days(); {
	case days <= 31:
		return core.ByDay
	case days <= 90:
		return core.ByWeek
	default:
		return core.ByMonth
	}
}

// Buckets partitions r into contiguous, non-overlapping slices. The first
// and last bucket are clipped to the range.
func Buckets(r Range) []core.Bucket {
	g := GranularityFor(r)
	var out []core.Bucket
	cursor := r.From
	for !cursor.After(r.To) {
		var natural time.Time
		var label string
		switch g {
		case core.ByDay:
			natural = startOfDay(cursor)
			label = natural.Format("2006-01-02")
		case core.ByWeek:
			natural = startOfWeek(cursor)
			year, week := natural.ISOWeek()
			label = fmt.Sprintf("%04d-W%02d", year, week)
		default:
			natural = startOfMonth(cursor)
			label = natural.Format("2006-01")
		}
		next := advance(natural, g)
		end := next.Add(-time.Nanosecond)
		if end.After(r.To) {
			end = r.To
		}
		out = append(out, core.Bucket{Label: label, Start: cursor, End: end})
		cursor = end.Add(time.Nanosecond)
	}
	return out
}

func advance(t time.Time, g core.Granularity) time.Time {
	switch g {
	case core.ByDay:
		return t.AddDate(0, 0, 1)
	case core.ByWeek:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 1, 0)
	}
}
