package domain

import (
	"errors"
	"math"
	"time"
)

// Period selects a statistics or trends window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	// PeriodDay is accepted by the best-results view only.
	PeriodDay Period = "day"
)

// ErrInvalidPeriod is returned for an unrecognized period value.
var ErrInvalidPeriod = errors.New("invalid period")

// TrendWindow describes a current window plus the equal-length window
// immediately preceding it.
type TrendWindow struct {
	Start     time.Time
	End       time.Time
	PrevStart time.Time
	PrevEnd   time.Time
	Grain     Grain
	Slots     int
}

// NewTrendWindow builds the comparison windows for a period ending today:
// the last 7 days, 12 months, or 5 years, with the previous window butting
// up against the current one.
func NewTrendWindow(period Period, now time.Time) (TrendWindow, error) {
	now = now.UTC()
	end := endOfDay(now)
	switch period {
	case PeriodMonth:
		start := startOfMonth(now.AddDate(0, -11, 0))
		return TrendWindow{
			Start:     start,
			End:       end,
			PrevStart: start.AddDate(0, -12, 0),
			PrevEnd:   endOfDay(start.AddDate(0, 0, -1)),
			Grain:     GrainMonth,
			Slots:     12,
		}, nil
	case PeriodYear:
		start := startOfYear(now.AddDate(-4, 0, 0))
		return TrendWindow{
			Start:     start,
			End:       end,
			PrevStart: start.AddDate(-5, 0, 0),
			PrevEnd:   endOfDay(start.AddDate(0, 0, -1)),
			Grain:     GrainYear,
			Slots:     5,
		}, nil
	case PeriodWeek:
		start := startOfDay(now.AddDate(0, 0, -6))
		return TrendWindow{
			Start:     start,
			End:       end,
			PrevStart: start.AddDate(0, 0, -7),
			PrevEnd:   endOfDay(start.AddDate(0, 0, -1)),
			Grain:     GrainDay,
			Slots:     7,
		}, nil
	default:
		return TrendWindow{}, ErrInvalidPeriod
	}
}

// PercentChange is round(((current-previous)/previous)*100). A zero
// previous with a positive current reads as exactly 100 so the API stays
// numeric; both zero reads as 0.
func PercentChange(current, previous int) int {
	if previous > 0 {
		return int(math.Round(float64(current-previous) / float64(previous) * 100))
	}
	if current > 0 {
		return 100
	}
	return 0
}

// ActiveDayAverage divides a total by the number of days that had activity,
// not by the calendar length of the window.
func ActiveDayAverage(total, activeDays int) int {
	if activeDays == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(activeDays)))
}

func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func startOfYear(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}
