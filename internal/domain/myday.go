package domain

import (
	"fmt"
	"math"
	"time"
)

// HourlyMetrics accumulates per-hour metric totals for a single day.
type HourlyMetrics struct {
	Steps          [24]int
	Calories       [24]int
	DistanceMeters [24]float64
	DurationMin    [24]int
}

// AddRecord distributes one record's metrics across the hours it spanned.
// Sessions shorter than an hour land entirely in their start hour; longer
// sessions are spread at a constant per-minute rate, walking hour
// boundaries. fallbackEnd stands in when the record has no end time,
// typically "now" for a still-open session.
func (h *HourlyMetrics) AddRecord(rec Record, fallbackEnd time.Time) {
	start := rec.StartTime.UTC()
	end := fallbackEnd.UTC()
	if rec.EndTime != nil {
		end = rec.EndTime.UTC()
	}

	totalMinutes := int(end.Sub(start).Minutes())
	if totalMinutes < 60 {
		hour := start.Hour()
		h.Steps[hour] += rec.Steps
		h.Calories[hour] += rec.Calories
		h.DistanceMeters[hour] += rec.DistanceMeters
		h.DurationMin[hour] += rec.DurationMin
		return
	}

	stepsPerMin := float64(rec.Steps) / float64(totalMinutes)
	caloriesPerMin := float64(rec.Calories) / float64(totalMinutes)
	distancePerMin := rec.DistanceMeters / float64(totalMinutes)
	durationPerMin := float64(rec.DurationMin) / float64(totalMinutes)

	cursor := start
	for cursor.Before(end) {
		hour := cursor.Hour()
		untilNextHour := 60 - cursor.Minute()
		remaining := int(end.Sub(cursor).Minutes())
		minutes := untilNextHour
		if remaining < minutes {
			minutes = remaining
		}
		if minutes <= 0 {
			break
		}
		h.Steps[hour] += int(math.Round(stepsPerMin * float64(minutes)))
		h.Calories[hour] += int(math.Round(caloriesPerMin * float64(minutes)))
		h.DistanceMeters[hour] += distancePerMin * float64(minutes)
		h.DurationMin[hour] += int(math.Round(durationPerMin * float64(minutes)))
		cursor = cursor.Add(time.Duration(minutes) * time.Minute)
	}
}

// BestHour returns the hour with the most steps and its count, or (-1, 0)
// when no hour has any. Ties keep the earliest hour.
func (h *HourlyMetrics) BestHour() (int, int) {
	best, bestSteps := -1, 0
	for hour, steps := range h.Steps {
		if steps > bestSteps {
			best, bestSteps = hour, steps
		}
	}
	return best, bestSteps
}

// FormatMinutes renders a minute count as "X hr Y min", dropping the hour
// part when under an hour.
func FormatMinutes(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, mins)
	}
	return fmt.Sprintf("%d min", mins)
}

// FormatKilometers renders a meter total as kilometers with two decimals.
func FormatKilometers(meters float64) string {
	return fmt.Sprintf("%.2f", meters/1000)
}

// FormatStepChange renders a day-over-day step delta. A positive delta
// gains a plus sign; when yesterday had nothing, the whole of today's count
// reads as the gain.
func FormatStepChange(todaySteps, yesterdaySteps int) string {
	if yesterdaySteps == 0 && todaySteps > 0 {
		return fmt.Sprintf("+%d", todaySteps)
	}
	change := todaySteps - yesterdaySteps
	if change > 0 {
		return fmt.Sprintf("+%d", change)
	}
	return fmt.Sprintf("%d", change)
}
