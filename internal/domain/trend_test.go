package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTrendWindowWeek(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)
	window, err := NewTrendWindow(PeriodWeek, now)
	require.NoError(t, err)

	require.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC), window.PrevStart)
	require.Equal(t, 19, window.PrevEnd.Day())
	require.Equal(t, GrainDay, window.Grain)
	require.Equal(t, 7, window.Slots)
}

func TestNewTrendWindowMonth(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)
	window, err := NewTrendWindow(PeriodMonth, now)
	require.NoError(t, err)

	require.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), window.PrevStart)
	require.Equal(t, GrainMonth, window.Grain)
	require.Equal(t, 12, window.Slots)
}

func TestNewTrendWindowYear(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)
	window, err := NewTrendWindow(PeriodYear, now)
	require.NoError(t, err)

	require.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), window.PrevStart)
	require.Equal(t, 5, window.Slots)
}

func TestNewTrendWindowRejectsDay(t *testing.T) {
	_, err := NewTrendWindow(PeriodDay, time.Now())
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPercentChange(t *testing.T) {
	require.Equal(t, 50, PercentChange(150, 100))
	require.Equal(t, -25, PercentChange(75, 100))
	require.Equal(t, 0, PercentChange(100, 100))
	require.Equal(t, 100, PercentChange(500, 0))
	require.Equal(t, 0, PercentChange(0, 0))
	require.Equal(t, 33, PercentChange(400, 300))
}

func TestActiveDayAverage(t *testing.T) {
	require.Equal(t, 5000, ActiveDayAverage(10000, 2))
	require.Equal(t, 0, ActiveDayAverage(10000, 0))
	require.Equal(t, 3333, ActiveDayAverage(10000, 3))
}
