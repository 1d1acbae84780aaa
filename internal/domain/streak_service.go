package domain

import (
	"context"
	"fmt"
	"time"
)

// StreakService computes streaks, the streak calendar, and streak awards.
type StreakService struct {
	sessions     SessionRepository
	challenges   ChallengeRepository
	stepGoal     int
	lookbackDays int
	now          func() time.Time
}

// NewStreakService constructs a StreakService over both repositories.
func NewStreakService(sessions SessionRepository, challenges ChallengeRepository, dailyStepGoal, lookbackDays int) *StreakService {
	if lookbackDays <= 0 {
		lookbackDays = DefaultStreakLookbackDays
	}
	return &StreakService{
		sessions:     sessions,
		challenges:   challenges,
		stepGoal:     dailyStepGoal,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// CalendarDay is one cell of the streak calendar.
type CalendarDay struct {
	Date      string
	Day       int
	IsActive  bool
	IsRestDay bool
	Steps     int
}

// StreakOverview is the streak calendar view for one month.
type StreakOverview struct {
	CurrentStreak       int
	MaxStreak           int
	StreakMessage       string
	RestDaysUsed        int
	RestDaysTotal       int
	RestDaysRemaining   int
	RestDaysMessage     string
	RestDaysDescription string
	CalendarMonth       string
	CalendarYear        int
	Days                []CalendarDay
}

// dayActivity is what the user did on one calendar day.
type dayActivity struct {
	steps   int
	goalMet bool
	active  bool
}

// Streaks builds the streak calendar for the given month ("2006-01", empty
// means the current month). The streak itself always walks the full lookback
// window regardless of which month is displayed.
func (s *StreakService) Streaks(ctx context.Context, userID, month string) (*StreakOverview, error) {
	now := s.now().UTC()
	monthStart := startOfMonth(now)
	if month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return nil, fmt.Errorf("parse month %q: %w", month, err)
		}
		monthStart = parsed.UTC()
	}

	days, err := s.activityDays(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	streak := ComputeStreak(func(day string) bool {
		return days[day].goalMet
	}, now, true, s.lookbackDays)

	monthEnd := monthStart.AddDate(0, 1, 0)
	calendar := make([]CalendarDay, 0, 31)
	for d := monthStart; d.Before(monthEnd); d = d.AddDate(0, 0, 1) {
		key := DayKey(d)
		rest := streak.RestDays[key]
		calendar = append(calendar, CalendarDay{
			Date:      key,
			Day:       d.Day(),
			IsActive:  days[key].goalMet || rest,
			IsRestDay: rest,
			Steps:     days[key].steps,
		})
	}

	used := streak.RestUsedByWeek[WeekKey(now)]
	remaining := MaxRestDaysPerWeek - used
	if remaining < 0 {
		remaining = 0
	}

	message := "Complete your step plan for today to start a streak."
	if streak.Current > 0 {
		message = fmt.Sprintf("You're on a %d-day streak!", streak.Current)
	}

	return &StreakOverview{
		CurrentStreak:       streak.Current,
		MaxStreak:           streak.Max,
		StreakMessage:       message,
		RestDaysUsed:        used,
		RestDaysTotal:       MaxRestDaysPerWeek,
		RestDaysRemaining:   remaining,
		RestDaysMessage:     fmt.Sprintf("YOUR REST DAYS: %d/%d", used, MaxRestDaysPerWeek),
		RestDaysDescription: fmt.Sprintf("You have %d rest days per week. Rest days keep your streak alive on days you don't reach your goal.", MaxRestDaysPerWeek),
		CalendarMonth:       monthStart.Month().String(),
		CalendarYear:        monthStart.Year(),
		Days:                calendar,
	}, nil
}

// StreakAwardsView is the combined streak award ladder.
type StreakAwardsView struct {
	CurrentStreak int
	Awards        []Award
}

// Awards returns the combined milestone ladder against the current streak.
func (s *StreakService) Awards(ctx context.Context, userID string) (*StreakAwardsView, error) {
	now := s.now().UTC()
	days, err := s.activityDays(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	streak := ComputeStreak(func(day string) bool {
		return days[day].goalMet
	}, now, true, s.lookbackDays)
	return &StreakAwardsView{
		CurrentStreak: streak.Current,
		Awards:        BuildAwards(StreakAwardMilestones, streak.Current),
	}, nil
}

// TypedStreak is one streak type's current and best run plus its award ladder.
type TypedStreak struct {
	Type    StreakType
	Current int
	Max     int
	Awards  []Award
}

// AllStreakAwards holds every streak type's ladder.
type AllStreakAwards struct {
	General   TypedStreak
	Challenge TypedStreak
	Step      TypedStreak
	Workout   TypedStreak
}

// AllAwards computes the award ladder of every streak type in one pass over
// the lookback window.
func (s *StreakService) AllAwards(ctx context.Context, userID string) (*AllStreakAwards, error) {
	now := s.now().UTC()
	preds, err := s.typePredicates(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	out := &AllStreakAwards{}
	for _, t := range []StreakType{StreakGeneral, StreakChallenge, StreakStep, StreakWorkout} {
		typed := s.typedStreak(t, preds[t], now)
		switch t {
		case StreakGeneral:
			out.General = typed
		case StreakChallenge:
			out.Challenge = typed
		case StreakStep:
			out.Step = typed
		case StreakWorkout:
			out.Workout = typed
		}
	}
	return out, nil
}

// ByType computes one streak type's ladder.
func (s *StreakService) ByType(ctx context.Context, userID string, streakType StreakType) (*TypedStreak, error) {
	switch streakType {
	case StreakGeneral, StreakChallenge, StreakStep, StreakWorkout:
	default:
		return nil, ErrInvalidStreakType
	}
	now := s.now().UTC()
	preds, err := s.typePredicates(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	typed := s.typedStreak(streakType, preds[streakType], now)
	return &typed, nil
}

func (s *StreakService) typedStreak(t StreakType, pred func(string) bool, now time.Time) TypedStreak {
	// Challenge streaks get no rest days.
	result := ComputeStreak(pred, now, t != StreakChallenge, s.lookbackDays)
	return TypedStreak{
		Type:    t,
		Current: result.Current,
		Max:     result.Max,
		Awards:  BuildAwards(milestonesFor(t), result.Current),
	}
}

func milestonesFor(t StreakType) []Milestone {
	switch t {
	case StreakChallenge:
		return ChallengeMilestones
	case StreakStep:
		return StepMilestones
	case StreakWorkout:
		return WorkoutMilestones
	default:
		return GeneralMilestones
	}
}

// activityDays folds every activity source into per-day step totals and a
// goal-met flag. A day meets the goal when it reaches the step goal, has a
// completed session, or has a completed workout.
func (s *StreakService) activityDays(ctx context.Context, userID string, now time.Time) (map[string]dayActivity, error) {
	from := startOfDay(now).AddDate(0, 0, -s.lookbackDays)
	to := endOfDay(now)

	free, err := s.sessions.ListFreeSessions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list free sessions: %w", err)
	}
	workouts, err := s.sessions.ListWorkoutSessions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list workout sessions: %w", err)
	}
	completions, err := s.sessions.ListCompletions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	days := make(map[string]dayActivity)
	for _, rec := range NormalizeAll(free, workouts) {
		key := DayKey(rec.StartTime)
		d := days[key]
		d.active = true
		d.steps += rec.Steps
		if rec.Completed || d.steps >= s.stepGoal {
			d.goalMet = true
		}
		days[key] = d
	}
	for _, c := range completions {
		key := DayKey(c.CompletedAt)
		d := days[key]
		d.active = true
		d.goalMet = true
		days[key] = d
	}
	return days, nil
}

// typePredicates builds the goal-met predicate of each streak type over the
// lookback window.
func (s *StreakService) typePredicates(ctx context.Context, userID string, now time.Time) (map[StreakType]func(string) bool, error) {
	from := startOfDay(now).AddDate(0, 0, -s.lookbackDays)
	to := endOfDay(now)

	days, err := s.activityDays(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	daily, err := s.sessions.ListDailyWorkouts(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily workouts: %w", err)
	}
	stepDays := make(map[string]bool)
	for _, dw := range daily {
		key := DayKey(dw.Date)
		if dw.Completed || (dw.TargetSteps > 0 && days[key].steps >= dw.TargetSteps) {
			stepDays[key] = true
		}
	}

	workouts, err := s.sessions.ListWorkoutSessions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list workout sessions: %w", err)
	}
	completions, err := s.sessions.ListCompletions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	completedIDs := make(map[string]bool, len(completions))
	for _, c := range completions {
		completedIDs[c.WorkoutID] = true
	}
	workoutDays := make(map[string]bool)
	for _, w := range workouts {
		if w.Status == StatusCompleted || completedIDs[w.WorkoutID] {
			workoutDays[DayKey(w.StartTime)] = true
		}
	}
	for _, c := range completions {
		workoutDays[DayKey(c.CompletedAt)] = true
	}

	progressDays, err := s.challenges.CompletedProgressDays(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("completed progress days: %w", err)
	}
	challengeDays := make(map[string]bool, len(progressDays))
	for _, d := range progressDays {
		challengeDays[DayKey(d)] = true
	}

	return map[StreakType]func(string) bool{
		StreakGeneral:   func(day string) bool { return days[day].active },
		StreakStep:      func(day string) bool { return stepDays[day] },
		StreakWorkout:   func(day string) bool { return workoutDays[day] },
		StreakChallenge: func(day string) bool { return challengeDays[day] },
	}, nil
}
