package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dayRecord(day time.Time, steps int) Record {
	return Record{Steps: steps, StartTime: day.Add(10 * time.Hour)}
}

func TestAggregateDayGrainMaterializesEverySlot(t *testing.T) {
	start := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	records := []Record{
		dayRecord(start, 4000),
		dayRecord(end, 12000),
	}

	agg := Aggregate(records, start, end, GrainDay, 10000)

	require.Len(t, agg.Buckets, 7)
	require.Equal(t, "2026-08-20", agg.Buckets[0].Key)
	require.Equal(t, "Thu", agg.Buckets[0].Label)
	require.Equal(t, 4000, agg.Buckets[0].Steps)
	require.Equal(t, 12000, agg.Buckets[6].Steps)
	require.Equal(t, 16000, agg.Totals.Steps)
	require.Equal(t, 2, agg.ActiveBuckets)
}

func TestAggregateAppliesGrainScaledStepGoal(t *testing.T) {
	start := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	agg := Aggregate([]Record{dayRecord(end, 10000)}, start, end, GrainDay, 10000)
	require.True(t, agg.Buckets[6].GoalAchieved)
	require.False(t, agg.Buckets[0].GoalAchieved)

	monthStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	monthly := Aggregate([]Record{dayRecord(monthStart, 299999), dayRecord(end, 300000)},
		monthStart, end, GrainMonth, 10000)
	require.Len(t, monthly.Buckets, 2)
	require.False(t, monthly.Buckets[0].GoalAchieved)
	require.True(t, monthly.Buckets[1].GoalAchieved)
}

func TestAggregateCompletedSessionMarksGoal(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	rec := dayRecord(day, 100)
	rec.Completed = true

	agg := Aggregate([]Record{rec}, day, day, GrainDay, 10000)
	require.True(t, agg.Buckets[0].GoalAchieved)
}

func TestAggregateBestBucketTiesKeepEarliest(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	records := []Record{
		dayRecord(start, 5000),
		dayRecord(start.AddDate(0, 0, 1), 5000),
		dayRecord(end, 4000),
	}

	agg := Aggregate(records, start, end, GrainDay, 10000)
	best := agg.BestBucket()
	require.NotNil(t, best)
	require.Equal(t, "2026-08-24", best.Key)
	require.Equal(t, 5000, best.Steps)
}

func TestAggregateEmptyWindowHasNoBestBucket(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	agg := Aggregate(nil, day, day, GrainDay, 10000)
	require.Nil(t, agg.BestBucket())
	require.Equal(t, 0, agg.ActiveBuckets)
}

func TestAggregateHourGrainYieldsFullDay(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	rec := Record{Steps: 50000, StartTime: day.Add(9 * time.Hour)}

	agg := Aggregate([]Record{rec}, day, day, GrainHour, 10000)

	require.Len(t, agg.Buckets, 24)
	require.Equal(t, "09", agg.Buckets[9].Key)
	require.Equal(t, "09:00", agg.Buckets[9].Label)
	require.Equal(t, 50000, agg.Buckets[9].Steps)
	// Hour buckets never carry a step goal of their own.
	require.False(t, agg.Buckets[9].GoalAchieved)
}

func TestAggregateRecordOutsideWindowIsIgnored(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	agg := Aggregate([]Record{dayRecord(start.AddDate(0, 0, -1), 9000)}, start, end, GrainDay, 10000)
	require.Equal(t, 0, agg.Totals.Steps)
}
