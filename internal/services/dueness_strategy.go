// Dueness strategies decide whether a periodic backup is overdue. Each
// frequency has its own checker.

package services

import (
	"fmt"
	"time"
)

// Frequency is how often a backup should be taken.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DuenessChecker reports whether a backup last taken at lastRun is due at
// now. A zero lastRun is always due.
type DuenessChecker interface {
	IsDue(lastRun, now time.Time) bool
}

// DailyChecker is due once the calendar day changes.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastRun, now time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	lastRun = lastRun.In(now.Location())
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker is due 7 days after the last run.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastRun, now time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= 7*24*time.Hour
}

// MonthlyChecker is due once the calendar month changes.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastRun, now time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	lastRun = lastRun.In(now.Location())
	return lastRun.Year() != now.Year() || lastRun.Month() != now.Month()
}

var duenessStrategies = map[Frequency]DuenessChecker{
	FrequencyDaily:   DailyChecker{},
	FrequencyWeekly:  WeeklyChecker{},
	FrequencyMonthly: MonthlyChecker{},
}

// GetDuenessChecker returns the checker for frequency.
func GetDuenessChecker(frequency Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown backup frequency: %s", frequency)
	}
	return checker, nil
}
