package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFreeSessionPrefersActualMetrics(t *testing.T) {
	start := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	rec := NormalizeFreeSession(FreeSession{
		Targets:     FreeSessionMetrics{Steps: "5000", Calories: "200", Distance: "4"},
		Actual:      FreeSessionMetrics{Steps: "6200", Calories: "250", Distance: "5.5"},
		StartTime:   start,
		DurationMin: 45,
		Status:      StatusCompleted,
	})

	require.Equal(t, 6200, rec.Steps)
	require.Equal(t, 250, rec.Calories)
	require.InDelta(t, 5500, rec.DistanceMeters, 0.001)
	require.Equal(t, 45, rec.DurationMin)
	require.True(t, rec.Completed)
}

func TestNormalizeFreeSessionFallsBackToTargets(t *testing.T) {
	rec := NormalizeFreeSession(FreeSession{
		Targets:   FreeSessionMetrics{Steps: "5000", Calories: "200", Distance: "4"},
		Actual:    FreeSessionMetrics{},
		StartTime: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		Status:    StatusActive,
	})

	require.Equal(t, 5000, rec.Steps)
	require.Equal(t, 200, rec.Calories)
	require.InDelta(t, 4000, rec.DistanceMeters, 0.001)
	require.False(t, rec.Completed)
}

func TestNormalizeFreeSessionGarbageActualDoesNotFallBack(t *testing.T) {
	rec := NormalizeFreeSession(FreeSession{
		Targets:   FreeSessionMetrics{Steps: "5000", Distance: "4"},
		Actual:    FreeSessionMetrics{Steps: "abc", Distance: "n/a"},
		StartTime: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
	})

	require.Equal(t, 0, rec.Steps)
	require.Zero(t, rec.DistanceMeters)
}

func TestNormalizeFreeSessionDurationFromEndTime(t *testing.T) {
	start := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Minute)
	rec := NormalizeFreeSession(FreeSession{StartTime: start, EndTime: &end})
	require.Equal(t, 72, rec.DurationMin)
}

func TestNormalizeFreeSessionDurationDefault(t *testing.T) {
	rec := NormalizeFreeSession(FreeSession{StartTime: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)})
	require.Equal(t, defaultSessionMinutes, rec.DurationMin)
}

func TestNormalizeWorkoutSessionFloorsSecondsToMinutes(t *testing.T) {
	rec := NormalizeWorkoutSession(WorkoutSession{
		TotalSteps:     4200,
		CaloriesBurned: 310,
		TotalDistance:  3100,
		DurationSec:    1799,
		StartTime:      time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC),
		Status:         StatusCompleted,
	})

	require.Equal(t, 29, rec.DurationMin)
	require.Equal(t, 4200, rec.Steps)
	require.InDelta(t, 3100, rec.DistanceMeters, 0.001)
	require.True(t, rec.Completed)
}

func TestNormalizeWorkoutSessionDurationFallback(t *testing.T) {
	start := time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC)
	end := start.Add(40 * time.Minute)
	rec := NormalizeWorkoutSession(WorkoutSession{StartTime: start, EndTime: &end})
	require.Equal(t, 40, rec.DurationMin)

	rec = NormalizeWorkoutSession(WorkoutSession{StartTime: start})
	require.Equal(t, defaultSessionMinutes, rec.DurationMin)
}

func TestParseIntAcceptsDecimalText(t *testing.T) {
	v, ok := parseInt("1234.7")
	require.True(t, ok)
	require.Equal(t, 1234, v)
}
