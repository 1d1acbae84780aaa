// Package postgres provides pgx-backed persistence for sessions, challenges,
// and the outbox.
package postgres

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/observability"
)

// SessionRepository reads and writes activity session rows.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// ListFreeSessions returns the user's free walk sessions started in [from, to].
func (r *SessionRepository) ListFreeSessions(ctx context.Context, userID string, from, to time.Time) ([]domain.FreeSession, error) {
	const query = `SELECT session_id, user_id, target_steps, target_calories, target_distance,
            actual_steps, actual_calories, actual_distance, start_time, end_time, duration_min, status
        FROM free_walk_sessions
        WHERE user_id=$1 AND start_time BETWEEN $2 AND $3
        ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.FreeSession
	for rows.Next() {
		var s domain.FreeSession
		if err := rows.Scan(&s.ID, &s.UserID,
			&s.Targets.Steps, &s.Targets.Calories, &s.Targets.Distance,
			&s.Actual.Steps, &s.Actual.Calories, &s.Actual.Distance,
			&s.StartTime, &s.EndTime, &s.DurationMin, &s.Status); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListWorkoutSessions returns the user's workout sessions started in [from, to].
func (r *SessionRepository) ListWorkoutSessions(ctx context.Context, userID string, from, to time.Time) ([]domain.WorkoutSession, error) {
	const query = `SELECT session_id, user_id, workout_id, total_steps, calories_burned,
            total_distance, duration_sec, start_time, end_time, status
        FROM workout_sessions
        WHERE user_id=$1 AND start_time BETWEEN $2 AND $3
        ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.WorkoutSession
	for rows.Next() {
		var s domain.WorkoutSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.WorkoutID, &s.TotalSteps, &s.CaloriesBurned,
			&s.TotalDistance, &s.DurationSec, &s.StartTime, &s.EndTime, &s.Status); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListCompletions returns workout completions recorded in [from, to].
func (r *SessionRepository) ListCompletions(ctx context.Context, userID string, from, to time.Time) ([]domain.WorkoutCompletion, error) {
	const query = `SELECT completion_id, user_id, workout_id, completed_at
        FROM workout_completions
        WHERE user_id=$1 AND completed_at BETWEEN $2 AND $3
        ORDER BY completed_at`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []domain.WorkoutCompletion
	for rows.Next() {
		var c domain.WorkoutCompletion
		if err := rows.Scan(&c.ID, &c.UserID, &c.WorkoutID, &c.CompletedAt); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// ListDailyWorkouts returns the user's per-day step targets in [from, to].
func (r *SessionRepository) ListDailyWorkouts(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyWorkout, error) {
	const query = `SELECT user_id, day, target_steps, completed
        FROM daily_workouts
        WHERE user_id=$1 AND day BETWEEN $2::date AND $3::date
        ORDER BY day`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []domain.DailyWorkout
	for rows.Next() {
		var d domain.DailyWorkout
		if err := rows.Scan(&d.UserID, &d.Date, &d.TargetSteps, &d.Completed); err != nil {
			return nil, err
		}
		workouts = append(workouts, d)
	}
	return workouts, rows.Err()
}

// FirstActivityAt returns the user's earliest session start, nil when the
// user has no history.
func (r *SessionRepository) FirstActivityAt(ctx context.Context, userID string) (*time.Time, error) {
	const query = `SELECT MIN(start_time) FROM (
            SELECT start_time FROM free_walk_sessions WHERE user_id=$1
            UNION ALL
            SELECT start_time FROM workout_sessions WHERE user_id=$1
        ) sessions`

	var first *time.Time
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&first); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return first, nil
}

// ListRecent pages the unified session timeline newest first with a keyset
// cursor. Both session tables are read with the same predicate and merged.
func (r *SessionRepository) ListRecent(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.TimelineEntry, *domain.Cursor, error) {
	free, err := r.recentFreeSessions(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	workouts, err := r.recentWorkoutSessions(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	entries := append(free, workouts...)
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.After(entries[j].StartTime)
		}
		return entries[i].ID > entries[j].ID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	var next *domain.Cursor
	if len(entries) == limit {
		last := entries[len(entries)-1]
		next = &domain.Cursor{StartedAt: last.StartTime, ID: last.ID}
	}
	return entries, next, nil
}

func (r *SessionRepository) recentFreeSessions(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.TimelineEntry, error) {
	args := []interface{}{userID, limit}
	query := `SELECT session_id, target_steps, target_calories, target_distance,
            actual_steps, actual_calories, actual_distance, start_time, end_time, duration_min, status
        FROM free_walk_sessions WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (start_time, session_id) < ($3, $4)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}
	query += ` ORDER BY start_time DESC, session_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var s domain.FreeSession
		if err := rows.Scan(&s.ID,
			&s.Targets.Steps, &s.Targets.Calories, &s.Targets.Distance,
			&s.Actual.Steps, &s.Actual.Calories, &s.Actual.Distance,
			&s.StartTime, &s.EndTime, &s.DurationMin, &s.Status); err != nil {
			return nil, err
		}
		rec := domain.NormalizeFreeSession(s)
		entries = append(entries, domain.TimelineEntry{
			ID:             s.ID,
			Kind:           domain.KindFreeSession,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Steps:          rec.Steps,
			Calories:       rec.Calories,
			DistanceMeters: rec.DistanceMeters,
			DurationMin:    rec.DurationMin,
			Status:         s.Status,
		})
	}
	return entries, rows.Err()
}

func (r *SessionRepository) recentWorkoutSessions(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.TimelineEntry, error) {
	args := []interface{}{userID, limit}
	query := `SELECT session_id, workout_id, total_steps, calories_burned,
            total_distance, duration_sec, start_time, end_time, status
        FROM workout_sessions WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (start_time, session_id) < ($3, $4)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}
	query += ` ORDER BY start_time DESC, session_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var s domain.WorkoutSession
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.TotalSteps, &s.CaloriesBurned,
			&s.TotalDistance, &s.DurationSec, &s.StartTime, &s.EndTime, &s.Status); err != nil {
			return nil, err
		}
		rec := domain.NormalizeWorkoutSession(s)
		entries = append(entries, domain.TimelineEntry{
			ID:             s.ID,
			Kind:           domain.KindWorkout,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Steps:          rec.Steps,
			Calories:       rec.Calories,
			DistanceMeters: rec.DistanceMeters,
			DurationMin:    rec.DurationMin,
			Status:         s.Status,
		})
	}
	return entries, rows.Err()
}

// RecordWorkoutSession upserts a workout session row; event replay overwrites
// with the same values.
func (r *SessionRepository) RecordWorkoutSession(ctx context.Context, session domain.WorkoutSession) error {
	const stmt = `INSERT INTO workout_sessions (session_id, user_id, workout_id, total_steps, calories_burned,
            total_distance, duration_sec, start_time, end_time, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (session_id) DO UPDATE SET
            total_steps=EXCLUDED.total_steps,
            calories_burned=EXCLUDED.calories_burned,
            total_distance=EXCLUDED.total_distance,
            duration_sec=EXCLUDED.duration_sec,
            end_time=EXCLUDED.end_time,
            status=EXCLUDED.status`

	_, err := r.pool.Exec(ctx, stmt,
		session.ID,
		session.UserID,
		session.WorkoutID,
		session.TotalSteps,
		session.CaloriesBurned,
		session.TotalDistance,
		session.DurationSec,
		session.StartTime,
		session.EndTime,
		session.Status,
	)
	if err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(session.StartTime)
	return nil
}

// RecordCompletion stores a workout completion; replays of the same
// completion are no-ops.
func (r *SessionRepository) RecordCompletion(ctx context.Context, completion domain.WorkoutCompletion) error {
	const stmt = `INSERT INTO workout_completions (completion_id, user_id, workout_id, completed_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (completion_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt, completion.ID, completion.UserID, completion.WorkoutID, completion.CompletedAt)
	return err
}
