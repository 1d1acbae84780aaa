package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHourlyMetricsShortSessionStaysInStartHour(t *testing.T) {
	start := time.Date(2026, 8, 26, 10, 15, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	var h HourlyMetrics
	h.AddRecord(Record{Steps: 2000, Calories: 90, DurationMin: 30, StartTime: start, EndTime: &end}, end)

	require.Equal(t, 2000, h.Steps[10])
	require.Zero(t, h.Steps[11])
	require.Equal(t, 90, h.Calories[10])
}

func TestHourlyMetricsLongSessionSpreadsAcrossHours(t *testing.T) {
	start := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	var h HourlyMetrics
	h.AddRecord(Record{Steps: 1200, StartTime: start, EndTime: &end}, end)

	require.Equal(t, 300, h.Steps[10]) // 30 min at 10 steps/min
	require.Equal(t, 600, h.Steps[11])
	require.Equal(t, 300, h.Steps[12])
}

func TestHourlyMetricsOpenSessionUsesFallbackEnd(t *testing.T) {
	start := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	now := start.Add(20 * time.Minute)

	var h HourlyMetrics
	h.AddRecord(Record{Steps: 800, StartTime: start}, now)

	require.Equal(t, 800, h.Steps[9])
}

func TestBestHour(t *testing.T) {
	var h HourlyMetrics
	require.Equal(t, -1, firstOf(h.BestHour()))

	h.Steps[8] = 500
	h.Steps[14] = 500
	h.Steps[17] = 300

	hour, steps := h.BestHour()
	require.Equal(t, 8, hour)
	require.Equal(t, 500, steps)
}

func firstOf(a, _ int) int { return a }

func TestFormatMinutes(t *testing.T) {
	require.Equal(t, "45 min", FormatMinutes(45))
	require.Equal(t, "1 hr 5 min", FormatMinutes(65))
	require.Equal(t, "2 hr 0 min", FormatMinutes(120))
	require.Equal(t, "0 min", FormatMinutes(0))
}

func TestFormatKilometers(t *testing.T) {
	require.Equal(t, "3.50", FormatKilometers(3500))
	require.Equal(t, "0.00", FormatKilometers(0))
}

func TestFormatStepChange(t *testing.T) {
	require.Equal(t, "+2000", FormatStepChange(2000, 0))
	require.Equal(t, "+500", FormatStepChange(2500, 2000))
	require.Equal(t, "-500", FormatStepChange(1500, 2000))
	require.Equal(t, "0", FormatStepChange(2000, 2000))
	require.Equal(t, "0", FormatStepChange(0, 0))
}
