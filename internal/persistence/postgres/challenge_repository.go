package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/observability"
)

// ChallengeRepository persists challenges, enrollments, per-day progress,
// achievements, and their outbox events.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository constructs a ChallengeRepository.
func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

const challengeColumns = `challenge_id, slug, name, description, challenge_type, duration_days,
        duration_label, difficulty, target_value, target_label, reward, icon_type, background_color, active`

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Type, &c.DurationDays,
		&c.DurationLabel, &c.Difficulty, &c.TargetValue, &c.TargetLabel,
		&c.Reward, &c.IconType, &c.BackgroundColor, &c.Active); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChallenge resolves a challenge by slug or ID. Returns nil when absent.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, slugOrID string) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE slug=$1 OR challenge_id=$1`

	challenge, err := scanChallenge(r.pool.QueryRow(ctx, query, slugOrID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return challenge, nil
}

// ListActiveChallenges returns the active catalog.
func (r *ChallengeRepository) ListActiveChallenges(ctx context.Context) ([]domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE active ORDER BY created_at, slug`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// CreateChallenge stores a catalog entry; an existing slug is left untouched.
func (r *ChallengeRepository) CreateChallenge(ctx context.Context, challenge domain.Challenge) error {
	const stmt = `INSERT INTO challenges (challenge_id, slug, name, description, challenge_type, duration_days,
            duration_label, difficulty, target_value, target_label, reward, icon_type, background_color, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (slug) DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt,
		challenge.ID,
		challenge.Slug,
		challenge.Name,
		challenge.Description,
		challenge.Type,
		challenge.DurationDays,
		challenge.DurationLabel,
		challenge.Difficulty,
		challenge.TargetValue,
		challenge.TargetLabel,
		challenge.Reward,
		challenge.IconType,
		challenge.BackgroundColor,
		challenge.Active,
	)
	return err
}

const enrollmentColumns = `enrollment_id, user_id, challenge_id, status, start_date, end_date,
        completion_percentage, current_day, version, enrolled_at, completed_at`

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var e domain.Enrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.ChallengeID, &e.Status, &e.StartDate, &e.EndDate,
		&e.CompletionPercentage, &e.CurrentDay, &e.Version, &e.EnrolledAt, &e.CompletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEnrollments returns the user's enrollments newest first, optionally
// filtered by status.
func (r *ChallengeRepository) ListEnrollments(ctx context.Context, userID string, statuses ...domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	args := []interface{}{userID}
	query := `SELECT ` + enrollmentColumns + ` FROM challenge_enrollments WHERE user_id=$1`
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, values)
	}
	query += ` ORDER BY enrolled_at DESC, enrollment_id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, rows.Err()
}

// LatestEnrollment returns the user's most recent enrollment for a
// challenge, nil when there is none.
func (r *ChallengeRepository) LatestEnrollment(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM challenge_enrollments
        WHERE user_id=$1 AND challenge_id=$2
        ORDER BY enrolled_at DESC, enrollment_id DESC LIMIT 1`

	enrollment, err := scanEnrollment(r.pool.QueryRow(ctx, query, userID, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return enrollment, nil
}

// CreateEnrollment stores the enrollment and its pre-allocated day entries
// in a single transaction.
func (r *ChallengeRepository) CreateEnrollment(ctx context.Context, enrollment domain.Enrollment, entries []domain.ProgressEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertEnrollment = `INSERT INTO challenge_enrollments (enrollment_id, user_id, challenge_id, status,
            start_date, end_date, completion_percentage, current_day, version, enrolled_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err = tx.Exec(ctx, insertEnrollment,
		enrollment.ID,
		enrollment.UserID,
		enrollment.ChallengeID,
		enrollment.Status,
		enrollment.StartDate,
		enrollment.EndDate,
		enrollment.CompletionPercentage,
		enrollment.CurrentDay,
		enrollment.Version,
		enrollment.EnrolledAt,
		enrollment.CompletedAt,
	)
	if err != nil {
		return err
	}

	const insertEntry = `INSERT INTO challenge_progress (entry_id, user_id, challenge_id, enrollment_id,
            day, user_steps, target_value, completed)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	for _, p := range entries {
		if _, err = tx.Exec(ctx, insertEntry,
			p.ID, p.UserID, p.ChallengeID, p.EnrollmentID, p.Date, p.UserSteps, p.TargetValue, p.Completed,
		); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	return err
}

// UpdateEnrollment saves conditionally on the stored version and bumps it.
// A concurrent writer surfaces as domain.ErrVersionConflict.
func (r *ChallengeRepository) UpdateEnrollment(ctx context.Context, enrollment domain.Enrollment) error {
	const stmt = `UPDATE challenge_enrollments
        SET status=$1, completion_percentage=$2, current_day=$3, completed_at=$4, version=version+1
        WHERE enrollment_id=$5 AND version=$6`

	tag, err := r.pool.Exec(ctx, stmt,
		enrollment.Status,
		enrollment.CompletionPercentage,
		enrollment.CurrentDay,
		enrollment.CompletedAt,
		enrollment.ID,
		enrollment.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// ArchiveEnrollments marks the user's non-active enrollments for a challenge
// archived.
func (r *ChallengeRepository) ArchiveEnrollments(ctx context.Context, userID, challengeID string) error {
	const stmt = `UPDATE challenge_enrollments SET status=$1
        WHERE user_id=$2 AND challenge_id=$3 AND status <> $4`

	_, err := r.pool.Exec(ctx, stmt, domain.EnrollmentArchived, userID, challengeID, domain.EnrollmentActive)
	return err
}

const progressColumns = `entry_id, user_id, challenge_id, enrollment_id, day, user_steps, target_value, completed`

// ListProgress returns an enrollment's day entries ordered by date.
func (r *ChallengeRepository) ListProgress(ctx context.Context, enrollmentID string) ([]domain.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM challenge_progress WHERE enrollment_id=$1 ORDER BY day`

	rows, err := r.pool.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ProgressEntry
	for rows.Next() {
		var p domain.ProgressEntry
		if err := rows.Scan(&p.ID, &p.UserID, &p.ChallengeID, &p.EnrollmentID,
			&p.Date, &p.UserSteps, &p.TargetValue, &p.Completed); err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

// ProgressByDate returns the entry for one calendar day, nil when absent.
func (r *ChallengeRepository) ProgressByDate(ctx context.Context, enrollmentID string, day time.Time) (*domain.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM challenge_progress WHERE enrollment_id=$1 AND day=$2::date`

	var p domain.ProgressEntry
	err := r.pool.QueryRow(ctx, query, enrollmentID, day).Scan(
		&p.ID, &p.UserID, &p.ChallengeID, &p.EnrollmentID,
		&p.Date, &p.UserSteps, &p.TargetValue, &p.Completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// SaveProgress upserts one day entry.
func (r *ChallengeRepository) SaveProgress(ctx context.Context, entry domain.ProgressEntry) error {
	const stmt = `INSERT INTO challenge_progress (entry_id, user_id, challenge_id, enrollment_id,
            day, user_steps, target_value, completed)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (entry_id) DO UPDATE SET
            user_steps=EXCLUDED.user_steps,
            completed=EXCLUDED.completed`

	_, err := r.pool.Exec(ctx, stmt,
		entry.ID, entry.UserID, entry.ChallengeID, entry.EnrollmentID,
		entry.Date, entry.UserSteps, entry.TargetValue, entry.Completed)
	return err
}

// CompleteAllProgress marks every entry of an enrollment completed with the
// given step count.
func (r *ChallengeRepository) CompleteAllProgress(ctx context.Context, enrollmentID string, userSteps int) error {
	const stmt = `UPDATE challenge_progress SET user_steps=$1, completed=TRUE WHERE enrollment_id=$2`
	_, err := r.pool.Exec(ctx, stmt, userSteps, enrollmentID)
	return err
}

// CompletedProgressDays lists distinct days on which the user completed any
// challenge day in [from, to].
func (r *ChallengeRepository) CompletedProgressDays(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT DISTINCT day FROM challenge_progress
        WHERE user_id=$1 AND completed AND day BETWEEN $2::date AND $3::date
        ORDER BY day`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

const achievementColumns = `achievement_id, user_id, challenge_id, enrollment_id, completed_on,
        reward_claimed, reward_claimed_on, badge, display_on_profile`

func scanAchievement(row pgx.Row) (*domain.Achievement, error) {
	var a domain.Achievement
	if err := row.Scan(&a.ID, &a.UserID, &a.ChallengeID, &a.EnrollmentID, &a.CompletedOn,
		&a.RewardClaimed, &a.RewardClaimedOn, &a.Badge, &a.DisplayOnProfile); err != nil {
		return nil, err
	}
	return &a, nil
}

// AchievementFor returns the user's achievement for a challenge, nil when absent.
func (r *ChallengeRepository) AchievementFor(ctx context.Context, userID, challengeID string) (*domain.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM challenge_achievements
        WHERE user_id=$1 AND challenge_id=$2`

	achievement, err := scanAchievement(r.pool.QueryRow(ctx, query, userID, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return achievement, nil
}

// AchievementByID returns one of the user's achievements by ID, nil when absent.
func (r *ChallengeRepository) AchievementByID(ctx context.Context, userID, achievementID string) (*domain.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM challenge_achievements
        WHERE user_id=$1 AND achievement_id=$2`

	achievement, err := scanAchievement(r.pool.QueryRow(ctx, query, userID, achievementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return achievement, nil
}

// ListAchievements returns the user's achievements newest first.
func (r *ChallengeRepository) ListAchievements(ctx context.Context, userID string) ([]domain.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM challenge_achievements
        WHERE user_id=$1 ORDER BY completed_on DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []domain.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

// CreateAchievement stores the achievement and records its completion event
// in the outbox inside a single transaction.
func (r *ChallengeRepository) CreateAchievement(ctx context.Context, achievement domain.Achievement, challenge domain.Challenge) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO challenge_achievements (achievement_id, user_id, challenge_id, enrollment_id,
            completed_on, reward_claimed, reward_claimed_on, badge, display_on_profile)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		achievement.ID,
		achievement.UserID,
		achievement.ChallengeID,
		achievement.EnrollmentID,
		achievement.CompletedOn,
		achievement.RewardClaimed,
		achievement.RewardClaimedOn,
		achievement.Badge,
		achievement.DisplayOnProfile,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, achievement, "challenge.completed", events.ChallengeCompleted{
		AchievementID: achievement.ID,
		UserID:        achievement.UserID,
		ChallengeID:   achievement.ChallengeID,
		ChallengeSlug: challenge.Slug,
		EnrollmentID:  achievement.EnrollmentID,
		Reward:        challenge.Reward,
		Badge:         achievement.Badge,
		CompletedOn:   achievement.CompletedOn,
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordChallengeCompleted(achievement.CompletedOn)
	return nil
}

// UpdateAchievement saves reward-claim state.
func (r *ChallengeRepository) UpdateAchievement(ctx context.Context, achievement domain.Achievement) error {
	const stmt = `UPDATE challenge_achievements
        SET reward_claimed=$1, reward_claimed_on=$2, display_on_profile=$3
        WHERE achievement_id=$4 AND user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt,
		achievement.RewardClaimed,
		achievement.RewardClaimedOn,
		achievement.DisplayOnProfile,
		achievement.ID,
		achievement.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAchievementNotFound
	}
	return nil
}

func (r *ChallengeRepository) insertOutbox(ctx context.Context, tx pgx.Tx, achievement domain.Achievement, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", achievement.ID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"achievement",
		achievement.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(achievement),
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Achievement) string
}

var eventCatalog = map[string]EventMetadata{
	"challenge.completed": {
		Topic:         "challenge_events",
		SchemaSubject: "challenge_events-value",
		PartitionKeyFn: func(a domain.Achievement) string {
			return a.UserID
		},
	},
}
