package domain

import (
	"errors"
	"fmt"
	"time"
)

// StreakType selects which goal-met predicate a streak is computed over.
type StreakType string

const (
	StreakGeneral   StreakType = "general"
	StreakChallenge StreakType = "challenge"
	StreakStep      StreakType = "step"
	StreakWorkout   StreakType = "workout"
)

// ErrInvalidStreakType is returned for an unrecognized streak type.
var ErrInvalidStreakType = errors.New("invalid streak type")

// MaxRestDaysPerWeek is the rest-day budget shared by every streak type
// except challenge streaks, which get none.
const MaxRestDaysPerWeek = 2

// DefaultStreakLookbackDays bounds the backward walk.
const DefaultStreakLookbackDays = 365

// StreakResult is the output of one streak computation.
type StreakResult struct {
	Current int
	Max     int
	// RestDays holds the day keys excused as rest days, for calendar rendering.
	RestDays map[string]bool
	// RestUsedByWeek maps ISO week keys to the rest days consumed in them.
	RestUsedByWeek map[string]int
}

// DayKey formats a time as the calendar-day key used throughout streak and
// challenge bookkeeping.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey identifies the ISO week a day belongs to, for rest-day budgeting.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}

// startOfDay truncates to midnight UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ComputeStreak walks backward day by day from today, counting consecutive
// days for which goalMet holds. When allowRest is true, up to
// MaxRestDaysPerWeek unsatisfied days per ISO week are excused instead of
// breaking the streak; the budget is consumed in walk order, most recent
// gap first. A started streak is required before any rest day is spent.
// lookbackDays bounds the walk; values <= 0 fall back to the default.
func ComputeStreak(goalMet func(day string) bool, today time.Time, allowRest bool, lookbackDays int) StreakResult {
	if lookbackDays <= 0 {
		lookbackDays = DefaultStreakLookbackDays
	}

	result := StreakResult{
		RestDays:       make(map[string]bool),
		RestUsedByWeek: make(map[string]int),
	}

	day := startOfDay(today)
	if !allowRest {
		return computeStrictStreak(goalMet, day, lookbackDays, result)
	}

	cursor := day
	todayKey := DayKey(day)
	if goalMet(todayKey) {
		result.Current = 1
		cursor = day.AddDate(0, 0, -1)
	} else if goalMet(DayKey(day.AddDate(0, 0, -1))) {
		// Today can be an automatic rest day when yesterday kept the streak alive.
		week := WeekKey(day)
		if result.RestUsedByWeek[week] < MaxRestDaysPerWeek {
			result.RestUsedByWeek[week]++
			result.RestDays[todayKey] = true
			result.Current = 1
			cursor = day.AddDate(0, 0, -1)
		}
	}

	// Rest days bridge gaps between active days; a run of rest days at the
	// far end of the walk is rolled back so they never pad the streak.
	var trailingRest []string
	for walked := 0; walked < lookbackDays; walked++ {
		key := DayKey(cursor)
		if goalMet(key) {
			result.Current++
			trailingRest = trailingRest[:0]
			cursor = cursor.AddDate(0, 0, -1)
			continue
		}
		if result.Current > 0 {
			week := WeekKey(cursor)
			if result.RestUsedByWeek[week] < MaxRestDaysPerWeek {
				result.RestUsedByWeek[week]++
				result.RestDays[key] = true
				trailingRest = append(trailingRest, key)
				result.Current++
				cursor = cursor.AddDate(0, 0, -1)
				continue
			}
		}
		break
	}

	for _, key := range trailingRest {
		day, _ := time.Parse("2006-01-02", key)
		result.RestUsedByWeek[WeekKey(day)]--
		delete(result.RestDays, key)
		result.Current--
	}

	result.Max = result.Current
	return result
}

// computeStrictStreak handles the no-rest-day walk. When today is
// unsatisfied the current streak is zero, but the run ending yesterday
// still feeds the max.
func computeStrictStreak(goalMet func(day string) bool, today time.Time, lookbackDays int, result StreakResult) StreakResult {
	if goalMet(DayKey(today)) {
		result.Current = 1
		cursor := today.AddDate(0, 0, -1)
		for walked := 0; walked < lookbackDays && goalMet(DayKey(cursor)); walked++ {
			result.Current++
			cursor = cursor.AddDate(0, 0, -1)
		}
		result.Max = result.Current
		return result
	}

	previous := 0
	cursor := today.AddDate(0, 0, -1)
	for walked := 0; walked < lookbackDays && goalMet(DayKey(cursor)); walked++ {
		previous++
		cursor = cursor.AddDate(0, 0, -1)
	}
	result.Max = previous
	return result
}

// Milestone is a static streak threshold a user can unlock.
type Milestone struct {
	Days        int
	Name        string
	Description string
}

// Award reports a milestone against the current streak.
type Award struct {
	Days        int
	Name        string
	Description string
	Unlocked    bool
	Progress    int
	Locked      bool
}

// BuildAwards grades each milestone against the current streak length.
func BuildAwards(milestones []Milestone, currentStreak int) []Award {
	awards := make([]Award, len(milestones))
	for i, m := range milestones {
		unlocked := currentStreak >= m.Days
		progress := currentStreak * 100 / m.Days
		if progress > 100 {
			progress = 100
		}
		awards[i] = Award{
			Days:        m.Days,
			Name:        m.Name,
			Description: m.Description,
			Unlocked:    unlocked,
			Progress:    progress,
			Locked:      !unlocked,
		}
	}
	return awards
}

func typedMilestones(noun, firstDesc, consecutiveDesc string) []Milestone {
	days := []int{1, 3, 7, 10, 14, 21, 28}
	ms := make([]Milestone, len(days))
	for i, d := range days {
		desc := fmt.Sprintf(consecutiveDesc, d)
		if d == 1 {
			desc = firstDesc
		}
		ms[i] = Milestone{
			Days:        d,
			Name:        fmt.Sprintf("%d-Day %s", d, noun),
			Description: desc,
		}
	}
	return ms
}

// Per-type milestone ladders surfaced by the awards endpoints.
var (
	GeneralMilestones = typedMilestones("Streak",
		"Complete any activity for 1 day",
		"Complete any activity for %d consecutive days")
	ChallengeMilestones = typedMilestones("Challenge Streak",
		"Complete a challenge for 1 day",
		"Complete challenges for %d consecutive days")
	StepMilestones = typedMilestones("Step Streak",
		"Meet your step goal for 1 day",
		"Meet your step goal for %d consecutive days")
	WorkoutMilestones = typedMilestones("Workout Streak",
		"Complete a workout for 1 day",
		"Complete workouts for %d consecutive days")
)

// StreakAwardMilestones is the combined ladder shown on the streak screen,
// extending the per-type ladders up to a full year.
var StreakAwardMilestones = func() []Milestone {
	days := []int{1, 3, 7, 10, 14, 21, 28, 30, 60, 90, 180, 365}
	ms := make([]Milestone, len(days))
	for i, d := range days {
		desc := fmt.Sprintf("Complete your daily goal for %d consecutive days", d)
		if d == 1 {
			desc = "Complete your daily goal for 1 day"
		}
		ms[i] = Milestone{
			Days:        d,
			Name:        fmt.Sprintf("%d-Day Streak", d),
			Description: desc,
		}
	}
	return ms
}()
