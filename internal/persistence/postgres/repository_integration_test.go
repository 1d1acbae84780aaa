//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fittrack/internal/domain"
)

func TestSessionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	repo := NewSessionRepository(pool)
	userID := uuid.NewString()

	start := time.Now().UTC().Truncate(time.Second)
	end := start.Add(25 * time.Minute)
	session := domain.WorkoutSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		WorkoutID:      "hiit-1",
		TotalSteps:     4200,
		CaloriesBurned: 310,
		TotalDistance:  3400,
		DurationSec:    1500,
		StartTime:      start,
		EndTime:        &end,
		Status:         domain.StatusCompleted,
	}
	require.NoError(t, repo.RecordWorkoutSession(ctx, session))

	// Re-recording the same session must upsert, not duplicate.
	require.NoError(t, repo.RecordWorkoutSession(ctx, session))

	completion := domain.WorkoutCompletion{
		ID:          session.ID,
		UserID:      userID,
		WorkoutID:   session.WorkoutID,
		CompletedAt: end,
	}
	require.NoError(t, repo.RecordCompletion(ctx, completion))
	require.NoError(t, repo.RecordCompletion(ctx, completion))

	sessions, err := repo.ListWorkoutSessions(ctx, userID, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, session.ID, sessions[0].ID)
	require.Equal(t, 4200, sessions[0].TotalSteps)

	completions, err := repo.ListCompletions(ctx, userID, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, completions, 1)

	first, err := repo.FirstActivityAt(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.WithinDuration(t, start, *first, time.Second)
}

func TestChallengeRepositoryEnrollmentLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	repo := NewChallengeRepository(pool)
	userID := uuid.NewString()

	challenge := domain.Challenge{
		ID:           uuid.NewString(),
		Slug:         "weekend-warrior",
		Name:         "Weekend Warrior",
		Type:         domain.ChallengeDailySteps,
		DurationDays: 2,
		TargetValue:  8000,
		Reward:       "Warrior badge",
		Active:       true,
	}
	require.NoError(t, repo.CreateChallenge(ctx, challenge))
	// Seeding is idempotent on slug.
	require.NoError(t, repo.CreateChallenge(ctx, challenge))

	got, err := repo.GetChallenge(ctx, "weekend-warrior")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, challenge.ID, got.ID)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	enrollment := domain.Enrollment{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: challenge.ID,
		Status:      domain.EnrollmentActive,
		StartDate:   today,
		EndDate:     today.AddDate(0, 0, 1),
		CurrentDay:  1,
		Version:     1,
		EnrolledAt:  time.Now().UTC(),
	}
	entries := []domain.ProgressEntry{
		{ID: uuid.NewString(), UserID: userID, ChallengeID: challenge.ID, EnrollmentID: enrollment.ID, Date: today, TargetValue: 8000},
		{ID: uuid.NewString(), UserID: userID, ChallengeID: challenge.ID, EnrollmentID: enrollment.ID, Date: today.AddDate(0, 0, 1), TargetValue: 8000},
	}
	require.NoError(t, repo.CreateEnrollment(ctx, enrollment, entries))

	latest, err := repo.LatestEnrollment(ctx, userID, challenge.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, enrollment.ID, latest.ID)

	progress, err := repo.ListProgress(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, progress, 2)

	latest.CompletionPercentage = 50
	require.NoError(t, repo.UpdateEnrollment(ctx, *latest))

	// Stale version must be rejected.
	err = repo.UpdateEnrollment(ctx, *latest)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestChallengeRepositoryAchievementWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	repo := NewChallengeRepository(pool)
	userID := uuid.NewString()

	challenge := domain.Challenge{
		ID:           uuid.NewString(),
		Slug:         "steady-steps",
		Name:         "Steady Steps",
		Type:         domain.ChallengeDailySteps,
		DurationDays: 3,
		TargetValue:  6000,
		Reward:       "Steady badge",
		Active:       true,
	}
	require.NoError(t, repo.CreateChallenge(ctx, challenge))

	achievement := domain.Achievement{
		ID:           uuid.NewString(),
		UserID:       userID,
		ChallengeID:  challenge.ID,
		EnrollmentID: uuid.NewString(),
		CompletedOn:  time.Now().UTC(),
		Badge:        "steady",
	}
	require.NoError(t, repo.CreateAchievement(ctx, achievement, challenge))

	stored, err := repo.AchievementByID(ctx, userID, achievement.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.False(t, stored.RewardClaimed)

	var eventType, topic string
	err = pool.QueryRow(ctx,
		`SELECT event_type, topic FROM outbox WHERE aggregate_id = $1`,
		achievement.ID,
	).Scan(&eventType, &topic)
	require.NoError(t, err)
	require.Equal(t, "challenge.completed", eventType)
	require.Equal(t, "challenge_events", topic)

	stored.RewardClaimed = true
	now := time.Now().UTC()
	stored.RewardClaimedOn = &now
	require.NoError(t, repo.UpdateAchievement(ctx, *stored))

	claimed, err := repo.AchievementByID(ctx, userID, achievement.ID)
	require.NoError(t, err)
	require.True(t, claimed.RewardClaimed)
}

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fittrack"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	path := resolvePath(t, "../../../db/postgres/migrations/0001_init.up.sql")
	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
