// Package domain holds the activity, streak, and challenge business logic.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// RecordKind identifies which session shape a canonical record came from.
// It resolves display labels only and never alters aggregation math.
type RecordKind string

const (
	KindFreeSession RecordKind = "free_session"
	KindWorkout     RecordKind = "workout"
)

// Session status values shared by both session kinds.
const (
	StatusActive     = "active"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusInProgress = "in_progress"
)

// defaultSessionMinutes is assumed when a session has neither a duration nor an end time.
const defaultSessionMinutes = 30

// FreeSessionMetrics carries the string-typed metric triple reported by the
// mobile client for free sessions. Values arrive as text and may be empty.
type FreeSessionMetrics struct {
	Steps    string
	Calories string
	Distance string // kilometers
}

// FreeSession is a free-form walk session. Metrics live in Actual once live
// tracking captured them, otherwise Targets holds what the user planned.
type FreeSession struct {
	ID          string
	UserID      string
	Targets     FreeSessionMetrics
	Actual      FreeSessionMetrics
	StartTime   time.Time
	EndTime     *time.Time
	DurationMin int // 0 means not reported
	Status      string
}

// WorkoutSession is a structured workout with numeric metrics.
type WorkoutSession struct {
	ID             string
	UserID         string
	WorkoutID      string
	TotalSteps     int
	CaloriesBurned int
	TotalDistance  float64 // meters
	DurationSec    int     // 0 means not reported
	StartTime      time.Time
	EndTime        *time.Time
	Status         string
}

// WorkoutCompletion marks a workout the user finished, independent of the
// session row that produced it.
type WorkoutCompletion struct {
	ID          string
	UserID      string
	WorkoutID   string
	CompletedAt time.Time
}

// DailyWorkout is the per-day step target assigned to a user.
type DailyWorkout struct {
	UserID      string
	Date        time.Time
	TargetSteps int
	Completed   bool
}

// Record is the canonical activity record every aggregation path consumes.
type Record struct {
	Kind           RecordKind
	Steps          int
	Calories       int
	DistanceMeters float64
	DurationMin    int
	StartTime      time.Time
	EndTime        *time.Time
	Completed      bool
}

// NormalizeFreeSession converts a free session into a canonical record.
// Actual metrics win over targets; targets stand in for sessions that ended
// before live metrics were captured. Unparseable values degrade to zero.
func NormalizeFreeSession(s FreeSession) Record {
	return Record{
		Kind:           KindFreeSession,
		Steps:          parseIntMetric(s.Actual.Steps, s.Targets.Steps),
		Calories:       parseIntMetric(s.Actual.Calories, s.Targets.Calories),
		DistanceMeters: parseFloatMetric(s.Actual.Distance, s.Targets.Distance) * 1000,
		DurationMin:    sessionDuration(s.DurationMin, s.StartTime, s.EndTime),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Completed:      s.Status == StatusCompleted,
	}
}

// NormalizeWorkoutSession converts a workout session into a canonical record.
// Workout durations arrive in seconds and floor to whole minutes.
func NormalizeWorkoutSession(s WorkoutSession) Record {
	durationMin := 0
	if s.DurationSec > 0 {
		durationMin = s.DurationSec / 60
	} else {
		durationMin = sessionDuration(0, s.StartTime, s.EndTime)
	}
	return Record{
		Kind:           KindWorkout,
		Steps:          s.TotalSteps,
		Calories:       s.CaloriesBurned,
		DistanceMeters: s.TotalDistance,
		DurationMin:    durationMin,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Completed:      s.Status == StatusCompleted,
	}
}

// NormalizeAll flattens both session sets into one record slice.
func NormalizeAll(free []FreeSession, workouts []WorkoutSession) []Record {
	records := make([]Record, 0, len(free)+len(workouts))
	for _, s := range free {
		records = append(records, NormalizeFreeSession(s))
	}
	for _, s := range workouts {
		records = append(records, NormalizeWorkoutSession(s))
	}
	return records
}

func sessionDuration(explicitMin int, start time.Time, end *time.Time) int {
	if explicitMin > 0 {
		return explicitMin
	}
	if end == nil {
		return defaultSessionMinutes
	}
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

func parseIntMetric(actual, target string) int {
	if v, ok := parseInt(actual); ok {
		return v
	}
	if actual == "" {
		if v, ok := parseInt(target); ok {
			return v
		}
	}
	return 0
}

func parseFloatMetric(actual, target string) float64 {
	if v, ok := parseFloat(actual); ok {
		return v
	}
	if actual == "" {
		if v, ok := parseFloat(target); ok {
			return v
		}
	}
	return 0
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

func parseFloat(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
