//go:build integration
// +build integration

package consumer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/persistence/postgres"
)

func TestIntakeHandlerStoresWorkout(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	sessions := postgres.NewSessionRepository(pool)
	challenges := postgres.NewChallengeRepository(pool)
	service := domain.NewChallengeService(challenges)
	handler := NewIntakeHandler(sessions, service)

	started := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	event := events.WorkoutCompleted{
		WorkoutID:      "w-100",
		SessionID:      "s-100",
		UserID:         "user-int",
		Steps:          5000,
		Calories:       210,
		DistanceMeters: 3800,
		DurationSec:    3600,
		StartedAt:      started,
		CompletedAt:    started.Add(time.Hour),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	msg := Message{
		EventType:     "workout.completed",
		SchemaID:      42,
		SchemaSubject: "workout_events-value",
		Topic:         "workout_events",
		Partition:     0,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	// Replays collapse onto the same rows.
	require.NoError(t, handler.Handle(ctx, msg))

	var sessionCount, completionCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM workout_sessions WHERE user_id='user-int'`).Scan(&sessionCount))
	require.Equal(t, 1, sessionCount)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM workout_completions WHERE user_id='user-int'`).Scan(&completionCount))
	require.Equal(t, 1, completionCount)

	var steps int
	require.NoError(t, pool.QueryRow(ctx, `SELECT total_steps FROM workout_sessions WHERE session_id='s-100'`).Scan(&steps))
	require.Equal(t, 5000, steps)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fittrack"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	migrationsPath := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
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

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
