package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeChallengeRepo is an in-memory ChallengeRepository shared by the
// challenge and progress tests.
type fakeChallengeRepo struct {
	challenges   []Challenge
	enrollments  []Enrollment
	progress     []ProgressEntry
	achievements []Achievement
	// published records the challenge slugs handed to CreateAchievement.
	published []string
	// failNextUpdate simulates a concurrent writer bumping the enrollment
	// version before the next save.
	failNextUpdate bool
}

func (f *fakeChallengeRepo) GetChallenge(_ context.Context, slugOrID string) (*Challenge, error) {
	for _, c := range f.challenges {
		if c.Slug == slugOrID || c.ID == slugOrID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeChallengeRepo) ListActiveChallenges(context.Context) ([]Challenge, error) {
	var out []Challenge
	for _, c := range f.challenges {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) CreateChallenge(_ context.Context, challenge Challenge) error {
	f.challenges = append(f.challenges, challenge)
	return nil
}

func (f *fakeChallengeRepo) ListEnrollments(_ context.Context, userID string, statuses ...EnrollmentStatus) ([]Enrollment, error) {
	allowed := make(map[EnrollmentStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []Enrollment
	for i := len(f.enrollments) - 1; i >= 0; i-- {
		e := f.enrollments[i]
		if e.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !allowed[e.Status] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeChallengeRepo) LatestEnrollment(_ context.Context, userID, challengeID string) (*Enrollment, error) {
	for i := len(f.enrollments) - 1; i >= 0; i-- {
		e := f.enrollments[i]
		if e.UserID == userID && e.ChallengeID == challengeID {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeChallengeRepo) CreateEnrollment(_ context.Context, enrollment Enrollment, entries []ProgressEntry) error {
	f.enrollments = append(f.enrollments, enrollment)
	f.progress = append(f.progress, entries...)
	return nil
}

func (f *fakeChallengeRepo) UpdateEnrollment(_ context.Context, enrollment Enrollment) error {
	for i, e := range f.enrollments {
		if e.ID != enrollment.ID {
			continue
		}
		if f.failNextUpdate {
			f.failNextUpdate = false
			f.enrollments[i].Version++
			return ErrVersionConflict
		}
		if e.Version != enrollment.Version {
			return ErrVersionConflict
		}
		enrollment.Version++
		f.enrollments[i] = enrollment
		return nil
	}
	return ErrEnrollmentNotFound
}

func (f *fakeChallengeRepo) ArchiveEnrollments(_ context.Context, userID, challengeID string) error {
	for i, e := range f.enrollments {
		if e.UserID == userID && e.ChallengeID == challengeID && e.Status != EnrollmentActive {
			f.enrollments[i].Status = EnrollmentArchived
		}
	}
	return nil
}

func (f *fakeChallengeRepo) ListProgress(_ context.Context, enrollmentID string) ([]ProgressEntry, error) {
	var out []ProgressEntry
	for _, p := range f.progress {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) ProgressByDate(_ context.Context, enrollmentID string, day time.Time) (*ProgressEntry, error) {
	key := DayKey(day)
	for _, p := range f.progress {
		if p.EnrollmentID == enrollmentID && DayKey(p.Date) == key {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeChallengeRepo) SaveProgress(_ context.Context, entry ProgressEntry) error {
	for i, p := range f.progress {
		if p.ID == entry.ID {
			f.progress[i] = entry
			return nil
		}
	}
	f.progress = append(f.progress, entry)
	return nil
}

func (f *fakeChallengeRepo) CompleteAllProgress(_ context.Context, enrollmentID string, userSteps int) error {
	for i, p := range f.progress {
		if p.EnrollmentID == enrollmentID {
			f.progress[i].UserSteps = userSteps
			f.progress[i].Completed = true
		}
	}
	return nil
}

func (f *fakeChallengeRepo) CompletedProgressDays(_ context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	seen := make(map[string]bool)
	var out []time.Time
	for _, p := range f.progress {
		if p.UserID != userID || !p.Completed {
			continue
		}
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		key := DayKey(p.Date)
		if !seen[key] {
			seen[key] = true
			out = append(out, p.Date)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) AchievementFor(_ context.Context, userID, challengeID string) (*Achievement, error) {
	for _, a := range f.achievements {
		if a.UserID == userID && a.ChallengeID == challengeID {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeChallengeRepo) AchievementByID(_ context.Context, userID, achievementID string) (*Achievement, error) {
	for _, a := range f.achievements {
		if a.UserID == userID && a.ID == achievementID {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeChallengeRepo) ListAchievements(_ context.Context, userID string) ([]Achievement, error) {
	var out []Achievement
	for _, a := range f.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) CreateAchievement(_ context.Context, achievement Achievement, challenge Challenge) error {
	f.achievements = append(f.achievements, achievement)
	f.published = append(f.published, challenge.Slug)
	return nil
}

func (f *fakeChallengeRepo) UpdateAchievement(_ context.Context, achievement Achievement) error {
	for i, a := range f.achievements {
		if a.ID == achievement.ID {
			f.achievements[i] = achievement
			return nil
		}
	}
	return ErrAchievementNotFound
}

func dailyChallenge(slug string, durationDays, target int) Challenge {
	return Challenge{
		ID:           "ch-" + slug,
		Slug:         slug,
		Name:         slug,
		Type:         ChallengeDailySteps,
		DurationDays: durationDays,
		TargetValue:  target,
		Reward:       "Badge",
		Active:       true,
	}
}

func newProgressFixture(t *testing.T, challenge Challenge) (*fakeChallengeRepo, *ChallengeService) {
	t.Helper()
	repo := &fakeChallengeRepo{challenges: []Challenge{challenge}}
	svc := NewChallengeService(repo)
	svc.now = func() time.Time { return streakToday }
	return repo, svc
}

func TestUpdateWorkoutProgressMarksDayComplete(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	_, err := svc.Enroll(ctx, "user-1", "easy")
	require.NoError(t, err)

	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 3000})
	require.NoError(t, err)

	require.Len(t, outcome.Updated, 1)
	require.Equal(t, 33, outcome.Updated[0].Progress)
	require.False(t, outcome.Updated[0].Completed)
	require.Empty(t, outcome.Completed)

	entry, err := repo.ProgressByDate(ctx, repo.enrollments[0].ID, streakToday)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.True(t, entry.Completed)
	require.Equal(t, 3000, entry.UserSteps)
}

func TestUpdateWorkoutProgressAccumulatesWithinDay(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	_, err := svc.Enroll(ctx, "user-1", "easy")
	require.NoError(t, err)

	_, err = svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 1500})
	require.NoError(t, err)

	entry, err := repo.ProgressByDate(ctx, repo.enrollments[0].ID, streakToday)
	require.NoError(t, err)
	require.False(t, entry.Completed)

	_, err = svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w2", Steps: 1500})
	require.NoError(t, err)

	entry, err = repo.ProgressByDate(ctx, repo.enrollments[0].ID, streakToday)
	require.NoError(t, err)
	require.True(t, entry.Completed)
	require.Equal(t, 3000, entry.UserSteps)
}

func TestUpdateWorkoutProgressCompletesOnFinalDay(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	day1 := streakToday.AddDate(0, 0, -2)
	svc.now = func() time.Time { return day1 }
	_, err := svc.Enroll(ctx, "user-1", "easy")
	require.NoError(t, err)

	for offset := 0; offset < 3; offset++ {
		day := day1.AddDate(0, 0, offset)
		svc.now = func() time.Time { return day }
		_, err = svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w", Steps: 3000})
		require.NoError(t, err)
	}

	enrollment := repo.enrollments[0]
	require.Equal(t, EnrollmentCompleted, enrollment.Status)
	require.Equal(t, 100, enrollment.CompletionPercentage)
	require.NotNil(t, enrollment.CompletedAt)

	require.Len(t, repo.achievements, 1)
	require.Equal(t, "easy_badge.png", repo.achievements[0].Badge)
	require.Equal(t, []string{"easy"}, repo.published)
}

func TestUpdateWorkoutProgressSingleDayCoversWholeTarget(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("sprint", 3, 1000))

	_, err := svc.Enroll(ctx, "user-1", "sprint")
	require.NoError(t, err)

	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 3000})
	require.NoError(t, err)

	require.Len(t, outcome.Completed, 1)
	require.Equal(t, "sprint", outcome.Completed[0].ChallengeSlug)

	entries, err := repo.ListProgress(ctx, repo.enrollments[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, p := range entries {
		require.True(t, p.Completed)
		require.Equal(t, 1000, p.UserSteps)
	}
	require.Equal(t, EnrollmentCompleted, repo.enrollments[0].Status)
}

func TestUpdateWorkoutProgressCumulativeChallenge(t *testing.T) {
	ctx := context.Background()
	challenge := dailyChallenge("steps", 14, 10000)
	challenge.Type = ChallengeTotalSteps
	repo, svc := newProgressFixture(t, challenge)

	_, err := svc.Enroll(ctx, "user-1", "steps")
	require.NoError(t, err)

	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 4000})
	require.NoError(t, err)
	require.Equal(t, 40, outcome.Updated[0].Progress)
	require.Empty(t, outcome.Completed)

	outcome, err = svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w2", Steps: 6000})
	require.NoError(t, err)
	require.Len(t, outcome.Completed, 1)
	require.Equal(t, 100, outcome.Updated[0].Progress)

	entry, err := repo.ProgressByDate(ctx, repo.enrollments[0].ID, streakToday)
	require.NoError(t, err)
	require.True(t, entry.Completed)
	require.Equal(t, EnrollmentCompleted, repo.enrollments[0].Status)
}

func TestUpdateWorkoutProgressIgnoresZeroSteps(t *testing.T) {
	ctx := context.Background()
	_, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 0})
	require.NoError(t, err)
	require.Empty(t, outcome.Updated)
	require.Empty(t, outcome.Completed)
}

func TestUpdateWorkoutProgressSkipsOutOfWindowEnrollment(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	past := streakToday.AddDate(0, 0, -30)
	svc.now = func() time.Time { return past }
	_, err := svc.Enroll(ctx, "user-1", "easy")
	require.NoError(t, err)

	svc.now = func() time.Time { return streakToday }
	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 3000})
	require.NoError(t, err)
	require.Empty(t, outcome.Updated)
	require.Equal(t, EnrollmentActive, repo.enrollments[0].Status)
}

func TestUpdateWorkoutProgressRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("easy", 3, 3000))

	_, err := svc.Enroll(ctx, "user-1", "easy")
	require.NoError(t, err)

	repo.failNextUpdate = true
	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 3000})
	require.NoError(t, err)

	require.Len(t, outcome.Updated, 1)
	require.Equal(t, 33, repo.enrollments[0].CompletionPercentage)
}

func TestAwardAchievementIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, svc := newProgressFixture(t, dailyChallenge("sprint", 1, 1000))

	repo.achievements = append(repo.achievements, Achievement{
		ID:          "existing",
		UserID:      "user-1",
		ChallengeID: "ch-sprint",
	})

	_, err := svc.Enroll(ctx, "user-1", "sprint")
	require.NoError(t, err)

	outcome, err := svc.UpdateWorkoutProgress(ctx, "user-1", WorkoutEvent{WorkoutID: "w1", Steps: 1000})
	require.NoError(t, err)

	require.Empty(t, outcome.Completed)
	require.Len(t, repo.achievements, 1)
	require.Equal(t, EnrollmentCompleted, repo.enrollments[0].Status)
}
