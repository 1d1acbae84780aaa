package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Wednesday; the ISO week runs Aug 24 through Aug 30.
var streakToday = time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

func goalOn(days ...string) func(string) bool {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return func(day string) bool { return set[day] }
}

func TestComputeStreakConsecutiveDays(t *testing.T) {
	result := ComputeStreak(goalOn("2026-08-26", "2026-08-25", "2026-08-24"), streakToday, true, 30)

	require.Equal(t, 3, result.Current)
	require.Equal(t, 3, result.Max)
	require.Empty(t, result.RestDays)
}

func TestComputeStreakDoesNotPadTail(t *testing.T) {
	// Active for three days, then nothing: the free rest days behind the
	// run must not inflate it.
	result := ComputeStreak(goalOn("2026-08-26", "2026-08-25", "2026-08-24"), streakToday, true, 30)

	require.Equal(t, 3, result.Current)
	require.Empty(t, result.RestDays)
	for _, used := range result.RestUsedByWeek {
		require.Zero(t, used)
	}
}

func TestComputeStreakRestDayBridgesGap(t *testing.T) {
	result := ComputeStreak(goalOn("2026-08-26", "2026-08-24", "2026-08-23"), streakToday, true, 30)

	require.Equal(t, 4, result.Current)
	require.True(t, result.RestDays["2026-08-25"])
	require.Len(t, result.RestDays, 1)
}

func TestComputeStreakWeeklyRestBudget(t *testing.T) {
	// Two missed days inside one ISO week still bridge; a third would break.
	result := ComputeStreak(goalOn("2026-08-26", "2026-08-23"), streakToday, true, 30)

	require.Equal(t, 4, result.Current)
	require.True(t, result.RestDays["2026-08-25"])
	require.True(t, result.RestDays["2026-08-24"])
	require.Equal(t, 2, result.RestUsedByWeek["2026-35"])
}

func TestComputeStreakTodayCanBeRestDay(t *testing.T) {
	result := ComputeStreak(goalOn("2026-08-25"), streakToday, true, 30)

	require.Equal(t, 2, result.Current)
	require.True(t, result.RestDays["2026-08-26"])
}

func TestComputeStreakNoActivity(t *testing.T) {
	result := ComputeStreak(goalOn(), streakToday, true, 30)

	require.Zero(t, result.Current)
	require.Zero(t, result.Max)
	require.Empty(t, result.RestDays)
}

func TestComputeStreakStrictCurrentZeroWhenTodayMissed(t *testing.T) {
	result := ComputeStreak(goalOn("2026-08-25", "2026-08-24", "2026-08-23"), streakToday, false, 30)

	require.Zero(t, result.Current)
	require.Equal(t, 3, result.Max)
}

func TestComputeStreakStrictCountsFromToday(t *testing.T) {
	result := ComputeStreak(goalOn("2026-08-26", "2026-08-25"), streakToday, false, 30)

	require.Equal(t, 2, result.Current)
	require.Equal(t, 2, result.Max)
}

func TestBuildAwardsProgress(t *testing.T) {
	awards := BuildAwards(StepMilestones, 7)

	require.Len(t, awards, 7)
	require.True(t, awards[0].Unlocked)  // 1 day
	require.True(t, awards[2].Unlocked)  // 7 days
	require.False(t, awards[3].Unlocked) // 10 days
	require.True(t, awards[3].Locked)
	require.Equal(t, 100, awards[2].Progress)
	require.Equal(t, 70, awards[3].Progress)
	require.Equal(t, 50, awards[4].Progress) // 7 of 14
}

func TestStreakAwardMilestonesLadder(t *testing.T) {
	require.Len(t, StreakAwardMilestones, 12)
	require.Equal(t, 1, StreakAwardMilestones[0].Days)
	require.Equal(t, 365, StreakAwardMilestones[11].Days)
}

func TestWeekKeyUsesISOWeeks(t *testing.T) {
	// Sunday belongs to the week before Monday.
	require.Equal(t, "2026-34", WeekKey(time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, "2026-35", WeekKey(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)))
}
