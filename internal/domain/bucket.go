package domain

import (
	"fmt"
	"time"
)

// Grain selects the bucket width for an aggregation window.
type Grain string

const (
	GrainHour  Grain = "hour"
	GrainDay   Grain = "day"
	GrainMonth Grain = "month"
	GrainYear  Grain = "year"
)

// Goal multipliers applied to the daily step goal per grain. Hour buckets
// carry no step goal of their own; only a completed session marks them.
const (
	monthGoalMultiplier = 30
	yearGoalMultiplier  = 365
)

// Bucket accumulates metrics for one fixed time slot.
type Bucket struct {
	Key            string
	Label          string
	Steps          int
	Calories       int
	DistanceMeters float64
	DurationMin    int
	GoalAchieved   bool
}

// Totals sums metrics across a whole window.
type Totals struct {
	Steps          int
	Calories       int
	DistanceMeters float64
	DurationMin    int
}

// AggregateResult is the output of one bucketed aggregation pass.
type AggregateResult struct {
	Buckets []Bucket
	Totals  Totals
	// Best points into Buckets at the slot with the highest step count,
	// or is -1 when every bucket is empty. Ties keep the earliest slot.
	Best int
	// ActiveBuckets counts buckets with a non-zero step total. Averages
	// divide by this, not by the slot count.
	ActiveBuckets int
}

// BestBucket returns the highest-stepped bucket, or nil when none has steps.
func (r AggregateResult) BestBucket() *Bucket {
	if r.Best < 0 || r.Best >= len(r.Buckets) {
		return nil
	}
	return &r.Buckets[r.Best]
}

// Aggregate buckets canonical records into the requested grain over
// [windowStart, windowEnd]. Every slot in the window is materialized up
// front so empty slots render as zeros. A record lands in the bucket its
// StartTime falls into; records are never split across buckets.
func Aggregate(records []Record, windowStart, windowEnd time.Time, grain Grain, dailyStepGoal int) AggregateResult {
	slots := bucketSlots(windowStart, windowEnd, grain)
	index := make(map[string]int, len(slots))
	for i, b := range slots {
		index[b.Key] = i
	}

	result := AggregateResult{Buckets: slots, Best: -1}
	stepGoal := grainStepGoal(grain, dailyStepGoal)

	for _, rec := range records {
		i, ok := index[bucketKey(rec.StartTime, grain)]
		if !ok {
			continue
		}
		b := &result.Buckets[i]
		b.Steps += rec.Steps
		b.Calories += rec.Calories
		b.DistanceMeters += rec.DistanceMeters
		b.DurationMin += rec.DurationMin
		if rec.Completed {
			b.GoalAchieved = true
		}

		result.Totals.Steps += rec.Steps
		result.Totals.Calories += rec.Calories
		result.Totals.DistanceMeters += rec.DistanceMeters
		result.Totals.DurationMin += rec.DurationMin
	}

	for i := range result.Buckets {
		b := &result.Buckets[i]
		if stepGoal > 0 && b.Steps >= stepGoal {
			b.GoalAchieved = true
		}
		if b.Steps > 0 {
			result.ActiveBuckets++
			if result.Best < 0 || b.Steps > result.Buckets[result.Best].Steps {
				result.Best = i
			}
		}
	}

	return result
}

func grainStepGoal(grain Grain, dailyStepGoal int) int {
	switch grain {
	case GrainDay:
		return dailyStepGoal
	case GrainMonth:
		return dailyStepGoal * monthGoalMultiplier
	case GrainYear:
		return dailyStepGoal * yearGoalMultiplier
	default:
		return 0
	}
}

func bucketKey(t time.Time, grain Grain) string {
	t = t.UTC()
	switch grain {
	case GrainHour:
		return fmt.Sprintf("%02d", t.Hour())
	case GrainMonth:
		return t.Format("2006-01")
	case GrainYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func bucketLabel(t time.Time, grain Grain) string {
	switch grain {
	case GrainDay:
		return t.Format("Mon")
	case GrainMonth:
		return t.Format("Jan")
	case GrainYear:
		return t.Format("2006")
	default:
		return t.Format("15:04")
	}
}

// bucketSlots materializes every slot covering [start, end] for the grain.
// Hour grain always yields the full 24 hours regardless of the window.
func bucketSlots(start, end time.Time, grain Grain) []Bucket {
	if grain == GrainHour {
		slots := make([]Bucket, 24)
		for h := 0; h < 24; h++ {
			slots[h] = Bucket{
				Key:   fmt.Sprintf("%02d", h),
				Label: fmt.Sprintf("%02d:00", h),
			}
		}
		return slots
	}

	start = start.UTC()
	end = end.UTC()
	var slots []Bucket
	switch grain {
	case GrainMonth:
		cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cur.After(last) {
			slots = append(slots, Bucket{Key: bucketKey(cur, grain), Label: bucketLabel(cur, grain)})
			cur = cur.AddDate(0, 1, 0)
		}
	case GrainYear:
		for y := start.Year(); y <= end.Year(); y++ {
			cur := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
			slots = append(slots, Bucket{Key: bucketKey(cur, grain), Label: bucketLabel(cur, grain)})
		}
	default:
		cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		for !cur.After(last) {
			slots = append(slots, Bucket{Key: bucketKey(cur, grain), Label: bucketLabel(cur, grain)})
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return slots
}
