package domain

import (
	"context"
	"fmt"
	"time"
)

// InsightService computes the read-only statistics and insight views.
type InsightService struct {
	sessions SessionRepository
	stepGoal int
	now      func() time.Time
}

// NewInsightService constructs an InsightService with the given daily step goal.
func NewInsightService(sessions SessionRepository, dailyStepGoal int) *InsightService {
	return &InsightService{
		sessions: sessions,
		stepGoal: dailyStepGoal,
		now:      time.Now,
	}
}

// MetricSummary is a total plus its per-active-period average.
type MetricSummary struct {
	Total   int
	Average int
}

// DistanceSummary renders distance in kilometers with two decimals.
type DistanceSummary struct {
	TotalKm   string
	AverageKm string
}

// TimeSummary renders durations as "X hr Y min".
type TimeSummary struct {
	Total   string
	Average string
}

// HourSteps names the best hour of a day.
type HourSteps struct {
	Hour  string
	Steps int
}

// ChartPoint is one slot of a statistics or trends chart.
type ChartPoint struct {
	Label          string
	Steps          int
	Calories       int
	DistanceMeters float64
	DurationMin    int
	GoalAchieved   bool
}

// HourPoint is one slot of an hourly chart.
type HourPoint struct {
	Hour       string
	Steps      int
	Calories   int
	DistanceKm string
	TimeMin    int
}

// Statistics is the activity statistics view for a period.
type Statistics struct {
	Period              Period
	AvgSteps            int
	Workouts            int
	BestDay             int
	GoalAchievedCount   string
	GoalAchievedPercent string
	PercentChange       int
	Steps               MetricSummary
	Calories            MetricSummary
	Distance            DistanceSummary
	Time                TimeSummary
	BestHour            *HourSteps
	HourlyInsight       string
	StepGoal            int
	Chart               []ChartPoint
}

// activeHoursPerDay is assumed when averaging steps over a day's waking hours.
const activeHoursPerDay = 16

// Statistics aggregates the user's history into the period's chart plus
// summary metrics. The month and year windows start at the user's first
// activity, clipped to 12 months and 5 years; a user with no history still
// gets fully zero-filled buckets.
func (s *InsightService) Statistics(ctx context.Context, userID string, period Period) (*Statistics, error) {
	now := s.now().UTC()
	grain, windowStart, slots, err := s.statisticsWindow(ctx, userID, period, now)
	if err != nil {
		return nil, err
	}
	windowEnd := endOfDay(now)

	records, err := s.loadRecords(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	completions, err := s.sessions.ListCompletions(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	agg := Aggregate(records, windowStart, now, grain, s.stepGoal)
	markCompletionBuckets(&agg, completions, grain)

	goalsAchieved := 0
	for _, b := range agg.Buckets {
		if b.GoalAchieved {
			goalsAchieved++
		}
	}

	active := agg.ActiveBuckets
	avgSteps := ActiveDayAverage(agg.Totals.Steps, active)
	avgCalories := ActiveDayAverage(agg.Totals.Calories, active)
	avgDistance := 0.0
	avgTime := 0
	if active > 0 {
		avgDistance = agg.Totals.DistanceMeters / float64(active)
		avgTime = ActiveDayAverage(agg.Totals.DurationMin, active)
	}

	// Chart-tail comparison: the latest slot against the one before it.
	percentChange := 0
	if n := len(agg.Buckets); n > 1 {
		percentChange = PercentChange(agg.Buckets[n-1].Steps, agg.Buckets[n-2].Steps)
	}

	bestSteps := 0
	if best := agg.BestBucket(); best != nil {
		bestSteps = best.Steps
	}

	var bestHour *HourSteps
	hourlyInsight := ""
	if grain == GrainDay {
		hourly := s.todayHourly(records, now)
		if hour, steps := hourly.BestHour(); hour >= 0 {
			bestHour = &HourSteps{Hour: fmt.Sprintf("%d:00", hour), Steps: steps}
		}
		avgPerHour := ActiveDayAverage(agg.Totals.Steps, active*activeHoursPerDay)
		mostActive := "N/A"
		if bestHour != nil {
			h := 0
			fmt.Sscanf(bestHour.Hour, "%d:00", &h)
			mostActive = fmt.Sprintf("%d:00 and %d:00", h, (h+1)%24)
		}
		hourlyInsight = fmt.Sprintf("You walked an average of %d steps per hour. You are most active between %s.", avgPerHour, mostActive)
	}

	return &Statistics{
		Period:              period,
		AvgSteps:            avgSteps,
		Workouts:            len(completions),
		BestDay:             bestSteps,
		GoalAchievedCount:   fmt.Sprintf("%d/%d %s", goalsAchieved, slots, grainNoun(grain)),
		GoalAchievedPercent: signedPercent(percentChange),
		PercentChange:       percentChange,
		Steps:               MetricSummary{Total: agg.Totals.Steps, Average: avgSteps},
		Calories:            MetricSummary{Total: agg.Totals.Calories, Average: avgCalories},
		Distance: DistanceSummary{
			TotalKm:   FormatKilometers(agg.Totals.DistanceMeters),
			AverageKm: FormatKilometers(avgDistance),
		},
		Time: TimeSummary{
			Total:   FormatMinutes(agg.Totals.DurationMin),
			Average: FormatMinutes(avgTime),
		},
		BestHour:      bestHour,
		HourlyInsight: hourlyInsight,
		StepGoal:      grainStepGoal(grain, s.stepGoal),
		Chart:         chartPoints(agg.Buckets),
	}, nil
}

// BestResults is the "best results" insight view.
type BestResults struct {
	Period      Period
	Steps       int
	Calories    int
	DistanceKm  string
	Time        string
	BestHour    *HourSteps
	AvgSteps    int
	AvgUnit     string
	HourlyChart []HourPoint
	Insight     string
}

// BestResults sums the period's activity and finds the hour of day the user
// performs best in. Records land in the hour their session started.
func (s *InsightService) BestResults(ctx context.Context, userID string, period Period) (*BestResults, error) {
	now := s.now().UTC()
	var windowStart time.Time
	switch period {
	case PeriodDay:
		windowStart = startOfDay(now)
	case PeriodWeek:
		windowStart = startOfWeek(now)
	case PeriodMonth:
		windowStart = startOfMonth(now)
	case PeriodYear:
		windowStart = startOfYear(now)
	default:
		return nil, ErrInvalidPeriod
	}

	records, err := s.loadRecords(ctx, userID, windowStart, now)
	if err != nil {
		return nil, err
	}

	var hourly HourlyMetrics
	totals := Totals{}
	bestHourIdx, bestHourSteps := -1, 0
	for _, rec := range records {
		hour := rec.StartTime.UTC().Hour()
		hourly.Steps[hour] += rec.Steps
		hourly.Calories[hour] += rec.Calories
		hourly.DistanceMeters[hour] += rec.DistanceMeters
		hourly.DurationMin[hour] += rec.DurationMin

		totals.Steps += rec.Steps
		totals.Calories += rec.Calories
		totals.DistanceMeters += rec.DistanceMeters
		totals.DurationMin += rec.DurationMin

		if hourly.Steps[hour] > bestHourSteps {
			bestHourSteps = hourly.Steps[hour]
			bestHourIdx = hour
		}
	}

	var bestHour *HourSteps
	if bestHourIdx >= 0 {
		bestHour = &HourSteps{Hour: fmt.Sprintf("%02d:00", bestHourIdx), Steps: bestHourSteps}
	}

	avgSteps, avgUnit, insight := bestResultsInsight(period, totals.Steps, bestHour, now)

	return &BestResults{
		Period:      period,
		Steps:       totals.Steps,
		Calories:    totals.Calories,
		DistanceKm:  FormatKilometers(totals.DistanceMeters),
		Time:        FormatMinutes(totals.DurationMin),
		BestHour:    bestHour,
		AvgSteps:    avgSteps,
		AvgUnit:     avgUnit,
		HourlyChart: hourPoints(&hourly),
		Insight:     insight,
	}, nil
}

// Trends is the period-over-period comparison view.
type Trends struct {
	Period              Period
	ThisPeriodAvg       int
	LastPeriodAvg       int
	AverageUnit         string
	GoalAchievedCount   string
	GoalAchievedPercent string
	PercentChange       int
	Steps               MetricSummary
	Calories            MetricSummary
	Distance            DistanceSummary
	Time                TimeSummary
	Chart               []ChartPoint
	Insight             string
}

// Trends compares the current window against the equal-length window
// immediately preceding it. Averages divide by periods with activity, not
// by calendar length, and a zero previous window reads as a 100% gain.
func (s *InsightService) Trends(ctx context.Context, userID string, period Period) (*Trends, error) {
	now := s.now().UTC()
	window, err := NewTrendWindow(period, now)
	if err != nil {
		return nil, err
	}

	records, err := s.loadRecords(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	prevRecords, err := s.loadRecords(ctx, userID, window.PrevStart, window.PrevEnd)
	if err != nil {
		return nil, err
	}
	completions, err := s.sessions.ListCompletions(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	agg := Aggregate(records, window.Start, now, window.Grain, s.stepGoal)
	markCompletionBuckets(&agg, completions, window.Grain)

	goalsAchieved := 0
	for _, b := range agg.Buckets {
		if b.GoalAchieved {
			goalsAchieved++
		}
	}

	active := agg.ActiveBuckets
	currentAvg := ActiveDayAverage(agg.Totals.Steps, active)

	prevSteps := 0
	prevDays := make(map[string]bool)
	for _, rec := range prevRecords {
		if rec.Steps > 0 {
			prevSteps += rec.Steps
			prevDays[DayKey(rec.StartTime)] = true
		}
	}
	prevAvg := ActiveDayAverage(prevSteps, len(prevDays))

	percentChange := PercentChange(currentAvg, prevAvg)

	avgCalories := ActiveDayAverage(agg.Totals.Calories, active)
	avgDistance := 0.0
	avgTime := 0
	if active > 0 {
		avgDistance = agg.Totals.DistanceMeters / float64(active)
		avgTime = ActiveDayAverage(agg.Totals.DurationMin, active)
	}

	return &Trends{
		Period:              period,
		ThisPeriodAvg:       currentAvg,
		LastPeriodAvg:       prevAvg,
		AverageUnit:         "steps/day",
		GoalAchievedCount:   fmt.Sprintf("%d/%d %s", goalsAchieved, window.Slots, grainNoun(window.Grain)),
		GoalAchievedPercent: signedPercent(percentChange),
		PercentChange:       percentChange,
		Steps:               MetricSummary{Total: agg.Totals.Steps, Average: currentAvg},
		Calories:            MetricSummary{Total: agg.Totals.Calories, Average: avgCalories},
		Distance: DistanceSummary{
			TotalKm:   FormatKilometers(agg.Totals.DistanceMeters),
			AverageKm: FormatKilometers(avgDistance),
		},
		Time: TimeSummary{
			Total:   FormatMinutes(agg.Totals.DurationMin),
			Average: FormatMinutes(avgTime),
		},
		Chart:   chartPoints(agg.Buckets),
		Insight: trendInsight(period, currentAvg, prevAvg),
	}, nil
}

// MyDay is the single-day insight view.
type MyDay struct {
	Steps         int
	Change        string
	Calories      int
	DistanceKm    string
	Time          string
	AvgDailySteps int
	HourlyChart   []HourPoint
}

// MyDay breaks today down hour by hour, spreading long sessions across the
// hours they covered, and compares today's steps against yesterday and the
// past week's per-active-day average.
func (s *InsightService) MyDay(ctx context.Context, userID string) (*MyDay, error) {
	now := s.now().UTC()
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	todayRecords, err := s.loadRecords(ctx, userID, today, endOfDay(now))
	if err != nil {
		return nil, err
	}
	yesterdayRecords, err := s.loadRecords(ctx, userID, yesterday, endOfDay(yesterday))
	if err != nil {
		return nil, err
	}
	weekRecords, err := s.loadRecords(ctx, userID, weekAgo, endOfDay(yesterday))
	if err != nil {
		return nil, err
	}

	totals := Totals{}
	var hourly HourlyMetrics
	for _, rec := range todayRecords {
		totals.Steps += rec.Steps
		totals.Calories += rec.Calories
		totals.DistanceMeters += rec.DistanceMeters
		totals.DurationMin += rec.DurationMin
		hourly.AddRecord(rec, now)
	}

	yesterdaySteps := 0
	for _, rec := range yesterdayRecords {
		yesterdaySteps += rec.Steps
	}

	weekSteps := 0
	weekDays := make(map[string]bool)
	for _, rec := range weekRecords {
		weekSteps += rec.Steps
		weekDays[DayKey(rec.StartTime)] = true
	}

	return &MyDay{
		Steps:         totals.Steps,
		Change:        FormatStepChange(totals.Steps, yesterdaySteps),
		Calories:      totals.Calories,
		DistanceKm:    FormatKilometers(totals.DistanceMeters),
		Time:          FormatMinutes(totals.DurationMin),
		AvgDailySteps: ActiveDayAverage(weekSteps, len(weekDays)),
		HourlyChart:   hourPoints(&hourly),
	}, nil
}

// Timeline pages the user's unified session history, newest first.
func (s *InsightService) Timeline(ctx context.Context, userID string, cursor *Cursor, limit int) ([]TimelineEntry, *Cursor, error) {
	return s.sessions.ListRecent(ctx, userID, cursor, limit)
}

func (s *InsightService) loadRecords(ctx context.Context, userID string, from, to time.Time) ([]Record, error) {
	free, err := s.sessions.ListFreeSessions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list free sessions: %w", err)
	}
	workouts, err := s.sessions.ListWorkoutSessions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list workout sessions: %w", err)
	}
	return NormalizeAll(free, workouts), nil
}

func (s *InsightService) statisticsWindow(ctx context.Context, userID string, period Period, now time.Time) (Grain, time.Time, int, error) {
	switch period {
	case PeriodWeek:
		return GrainDay, startOfDay(now.AddDate(0, 0, -6)), 7, nil
	case PeriodMonth, PeriodYear:
	default:
		return "", time.Time{}, 0, ErrInvalidPeriod
	}

	first, err := s.sessions.FirstActivityAt(ctx, userID)
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("first activity: %w", err)
	}

	if period == PeriodMonth {
		slots := 12
		if first != nil {
			months := monthsBetween(*first, now) + 1
			if months < slots {
				slots = months
			}
		}
		return GrainMonth, startOfMonth(now.AddDate(0, -(slots - 1), 0)), slots, nil
	}

	slots := 5
	if first != nil {
		years := now.Year() - first.UTC().Year() + 1
		if years < slots {
			slots = years
		}
	} else {
		slots = 1
	}
	return GrainYear, startOfYear(now.AddDate(-(slots - 1), 0, 0)), slots, nil
}

func (s *InsightService) todayHourly(records []Record, now time.Time) *HourlyMetrics {
	todayKey := DayKey(now)
	var hourly HourlyMetrics
	for _, rec := range records {
		if DayKey(rec.StartTime) != todayKey || rec.Steps == 0 {
			continue
		}
		hourly.AddRecord(rec, now)
	}
	return &hourly
}

func bestResultsInsight(period Period, totalSteps int, bestHour *HourSteps, now time.Time) (int, string, string) {
	switch period {
	case PeriodDay:
		avg := ActiveDayAverage(totalSteps, activeHoursPerDay)
		insight := fmt.Sprintf("You walked an average of %d steps per hour today.", avg)
		if bestHour != nil {
			h := 0
			fmt.Sscanf(bestHour.Hour, "%02d:00", &h)
			insight = fmt.Sprintf("You walked an average of %d steps per hour today. You are most active between %s and %d:00.", avg, bestHour.Hour, (h+1)%24)
		}
		return avg, "hour", insight
	case PeriodWeek, PeriodMonth:
		days := 7
		if period == PeriodMonth {
			days = daysInMonth(now)
		}
		avg := ActiveDayAverage(totalSteps, days)
		insight := fmt.Sprintf("You walked an average of %d steps per day this %s.", avg, period)
		if bestHour != nil {
			insight = fmt.Sprintf("You walked an average of %d steps per day this %s. You are most active at %s.", avg, period, bestHour.Hour)
		}
		return avg, "day", insight
	default:
		avg := ActiveDayAverage(totalSteps, 12)
		insight := fmt.Sprintf("You walked a total of %d steps this year.", totalSteps)
		if bestHour != nil {
			insight = fmt.Sprintf("You walked a total of %d steps this year. You are most active at %s.", totalSteps, bestHour.Hour)
		}
		return avg, "month", insight
	}
}

func trendInsight(period Period, currentAvg, prevAvg int) string {
	diff := currentAvg - prevAvg
	if diff == 0 {
		return fmt.Sprintf("You walked an average of %d steps per day this %s, which is the same as last %s", currentAvg, period, period)
	}
	direction := "higher"
	if diff < 0 {
		direction = "lower"
		diff = -diff
	}
	return fmt.Sprintf("You walked an average of %d steps per day this %s, which is %d steps %s than your average from last %s", currentAvg, period, diff, direction, period)
}

func markCompletionBuckets(agg *AggregateResult, completions []WorkoutCompletion, grain Grain) {
	if len(completions) == 0 {
		return
	}
	index := make(map[string]int, len(agg.Buckets))
	for i, b := range agg.Buckets {
		index[b.Key] = i
	}
	for _, c := range completions {
		if i, ok := index[bucketKey(c.CompletedAt, grain)]; ok {
			agg.Buckets[i].GoalAchieved = true
		}
	}
}

func chartPoints(buckets []Bucket) []ChartPoint {
	points := make([]ChartPoint, len(buckets))
	for i, b := range buckets {
		points[i] = ChartPoint{
			Label:          b.Label,
			Steps:          b.Steps,
			Calories:       b.Calories,
			DistanceMeters: b.DistanceMeters,
			DurationMin:    b.DurationMin,
			GoalAchieved:   b.GoalAchieved,
		}
	}
	return points
}

func hourPoints(hourly *HourlyMetrics) []HourPoint {
	points := make([]HourPoint, 24)
	for h := 0; h < 24; h++ {
		points[h] = HourPoint{
			Hour:       fmt.Sprintf("%02d:00", h),
			Steps:      hourly.Steps[h],
			Calories:   hourly.Calories[h],
			DistanceKm: FormatKilometers(hourly.DistanceMeters[h]),
			TimeMin:    hourly.DurationMin[h],
		}
	}
	return points
}

func signedPercent(pct int) string {
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

func grainNoun(grain Grain) string {
	switch grain {
	case GrainYear:
		return "years"
	case GrainMonth:
		return "months"
	default:
		return "days"
	}
}

func startOfWeek(t time.Time) time.Time {
	t = startOfDay(t)
	return t.AddDate(0, 0, -int(t.Weekday()))
}

func daysInMonth(t time.Time) int {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if months < 0 {
		return 0
	}
	return months
}
