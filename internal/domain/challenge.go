package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChallengeNotFound is returned when a challenge cannot be located.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrEnrollmentNotFound is returned when the user has no enrollment for a challenge.
	ErrEnrollmentNotFound = errors.New("user not enrolled in this challenge")
	// ErrAlreadyEnrolled is returned when an active enrollment already exists.
	ErrAlreadyEnrolled = errors.New("already enrolled in this challenge")
	// ErrAchievementNotFound is returned when an achievement cannot be located.
	ErrAchievementNotFound = errors.New("achievement not found")
	// ErrRewardClaimed is returned on a second claim attempt for the same reward.
	ErrRewardClaimed = errors.New("reward already claimed")
	// ErrInvalidStatus is returned for an enrollment status transition that is not allowed.
	ErrInvalidStatus = errors.New("invalid enrollment status")
	// ErrEnrollmentCompleted rejects status changes on completed enrollments.
	ErrEnrollmentCompleted = errors.New("cannot change status of a completed enrollment")
	// ErrVersionConflict signals a lost optimistic-concurrency race on an enrollment save.
	ErrVersionConflict = errors.New("enrollment version conflict")
)

// ChallengeType distinguishes per-day step challenges from cumulative ones.
type ChallengeType string

const (
	// ChallengeDailySteps requires hitting a step target each day.
	ChallengeDailySteps ChallengeType = "daily_steps"
	// ChallengeTotalSteps requires a cumulative step total over the whole run.
	ChallengeTotalSteps ChallengeType = "steps"
)

// Challenge is a catalog entry users can enroll in.
type Challenge struct {
	ID              string
	Slug            string
	Name            string
	Description     string
	Type            ChallengeType
	DurationDays    int
	DurationLabel   string
	Difficulty      string
	TargetValue     int
	TargetLabel     string
	Reward          string
	IconType        string
	BackgroundColor string
	Active          bool
}

// EnrollmentStatus is the lifecycle state of one participation instance.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentFailed    EnrollmentStatus = "failed"
	EnrollmentAbandoned EnrollmentStatus = "abandoned"
	EnrollmentArchived  EnrollmentStatus = "archived"
)

// Enrollment is a user's participation in one challenge. Version backs the
// conditional update guarding concurrent progress writes.
type Enrollment struct {
	ID                   string
	UserID               string
	ChallengeID          string
	Status               EnrollmentStatus
	StartDate            time.Time
	EndDate              time.Time
	CompletionPercentage int
	CurrentDay           int
	Version              int
	EnrolledAt           time.Time
	CompletedAt          *time.Time
}

// InWindow reports whether t falls inside the enrollment's calendar run.
func (e Enrollment) InWindow(t time.Time) bool {
	day := startOfDay(t)
	return !day.Before(startOfDay(e.StartDate)) && !day.After(startOfDay(e.EndDate))
}

// ProgressEntry tracks one calendar day of one enrollment. The full set is
// pre-allocated at enrollment time, one entry per day of the run.
type ProgressEntry struct {
	ID           string
	UserID       string
	ChallengeID  string
	EnrollmentID string
	Date         time.Time
	UserSteps    int
	TargetValue  int
	Completed    bool
}

// Achievement is awarded at most once per (user, challenge) pair; its
// existence is the idempotency guard for completion processing.
type Achievement struct {
	ID               string
	UserID           string
	ChallengeID      string
	EnrollmentID     string
	CompletedOn      time.Time
	RewardClaimed    bool
	RewardClaimedOn  *time.Time
	Badge            string
	DisplayOnProfile bool
}

// ChallengeRepository persists challenges, enrollments, per-day progress,
// and achievements.
type ChallengeRepository interface {
	// GetChallenge resolves a challenge by slug or ID. Returns nil when absent.
	GetChallenge(ctx context.Context, slugOrID string) (*Challenge, error)
	ListActiveChallenges(ctx context.Context) ([]Challenge, error)
	CreateChallenge(ctx context.Context, challenge Challenge) error

	ListEnrollments(ctx context.Context, userID string, statuses ...EnrollmentStatus) ([]Enrollment, error)
	// LatestEnrollment returns the most recent enrollment for the pair, nil when none.
	LatestEnrollment(ctx context.Context, userID, challengeID string) (*Enrollment, error)
	// CreateEnrollment stores the enrollment and its pre-allocated day entries atomically.
	CreateEnrollment(ctx context.Context, enrollment Enrollment, entries []ProgressEntry) error
	// UpdateEnrollment saves conditionally on Version and bumps it, or
	// returns ErrVersionConflict.
	UpdateEnrollment(ctx context.Context, enrollment Enrollment) error
	// ArchiveEnrollments marks the user's non-active enrollments for a challenge archived.
	ArchiveEnrollments(ctx context.Context, userID, challengeID string) error

	ListProgress(ctx context.Context, enrollmentID string) ([]ProgressEntry, error)
	// ProgressByDate returns the entry for the enrollment's calendar day, nil when absent.
	ProgressByDate(ctx context.Context, enrollmentID string, day time.Time) (*ProgressEntry, error)
	SaveProgress(ctx context.Context, entry ProgressEntry) error
	// CompleteAllProgress marks every entry of an enrollment completed with the given steps.
	CompleteAllProgress(ctx context.Context, enrollmentID string, userSteps int) error
	// CompletedProgressDays lists distinct days on which the user completed
	// any challenge day, for challenge-streak computation.
	CompletedProgressDays(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error)

	// AchievementFor returns the user's achievement for a challenge, nil when absent.
	AchievementFor(ctx context.Context, userID, challengeID string) (*Achievement, error)
	// AchievementByID returns the user's achievement by its ID, nil when absent.
	AchievementByID(ctx context.Context, userID, achievementID string) (*Achievement, error)
	ListAchievements(ctx context.Context, userID string) ([]Achievement, error)
	// CreateAchievement stores the achievement and records the completion
	// event for publication in the same transaction.
	CreateAchievement(ctx context.Context, achievement Achievement, challenge Challenge) error
	UpdateAchievement(ctx context.Context, achievement Achievement) error
}

// SessionRepository reads activity history and records workout completions.
type SessionRepository interface {
	ListFreeSessions(ctx context.Context, userID string, from, to time.Time) ([]FreeSession, error)
	ListWorkoutSessions(ctx context.Context, userID string, from, to time.Time) ([]WorkoutSession, error)
	ListCompletions(ctx context.Context, userID string, from, to time.Time) ([]WorkoutCompletion, error)
	ListDailyWorkouts(ctx context.Context, userID string, from, to time.Time) ([]DailyWorkout, error)
	// FirstActivityAt returns the user's earliest activity timestamp, nil
	// when they have no history.
	FirstActivityAt(ctx context.Context, userID string) (*time.Time, error)
	// ListRecent pages the unified session timeline newest first.
	ListRecent(ctx context.Context, userID string, cursor *Cursor, limit int) ([]TimelineEntry, *Cursor, error)
	RecordWorkoutSession(ctx context.Context, session WorkoutSession) error
	RecordCompletion(ctx context.Context, completion WorkoutCompletion) error
}

// TimelineEntry is one row of the recent-activity screen.
type TimelineEntry struct {
	ID             string
	Kind           RecordKind
	StartTime      time.Time
	EndTime        *time.Time
	Steps          int
	Calories       int
	DistanceMeters float64
	DurationMin    int
	Status         string
}

// Cursor models the keyset pagination token for the timeline.
type Cursor struct {
	StartedAt time.Time
	ID        string
}

// StandardChallenges is the seed catalog created on first use.
var StandardChallenges = []Challenge{
	{
		Slug:            "easy_start",
		Name:            "Easy Start",
		Description:     "Begin your journey with challenges and get a unique reward. Elevate your activity level by walking 3,000 steps daily for 3 days.",
		Type:            ChallengeDailySteps,
		DurationDays:    3,
		DurationLabel:   "3 day",
		Difficulty:      "easy",
		TargetValue:     3000,
		TargetLabel:     "3,000 steps daily",
		Reward:          "Starter Badge",
		IconType:        "star",
		BackgroundColor: "#FF9800",
	},
	{
		Slug:            "outdoor_week",
		Name:            "Outdoor Week Challenge",
		Description:     "Walk at least 5,000 steps daily for 7 days to earn this badge.",
		Type:            ChallengeDailySteps,
		DurationDays:    7,
		DurationLabel:   "7 day",
		Difficulty:      "medium",
		TargetValue:     5000,
		TargetLabel:     "5,000 steps daily",
		Reward:          "Outdoor Enthusiast",
		IconType:        "star",
		BackgroundColor: "#4CAF50",
	},
	{
		Slug:            "indoor_week",
		Name:            "Indoor Week Challenge",
		Description:     "Achieve 6,000 steps daily for 7 days without stepping outside.",
		Type:            ChallengeDailySteps,
		DurationDays:    7,
		DurationLabel:   "7 day",
		Difficulty:      "medium",
		TargetValue:     6000,
		TargetLabel:     "6,000 steps daily",
		Reward:          "Indoor Pro",
		IconType:        "star",
		BackgroundColor: "#2196F3",
	},
	{
		Slug:            "daily_steps-28",
		Name:            "28-DAY",
		Description:     "Build a long-lasting habit by walking 7,000 steps every day for 28 days.",
		Type:            ChallengeDailySteps,
		DurationDays:    28,
		DurationLabel:   "28 day",
		Difficulty:      "hard",
		TargetValue:     7000,
		TargetLabel:     "7,000 steps daily",
		Reward:          "Gold Medal",
		IconType:        "trophy",
		BackgroundColor: "#FFD700",
	},
	{
		Slug:            "beginner_walker",
		Name:            "Beginner Walker",
		Description:     "Walk at least 2,000 steps each day for 3 days to start your walking journey.",
		Type:            ChallengeDailySteps,
		DurationDays:    3,
		DurationLabel:   "3 day",
		Difficulty:      "easy",
		TargetValue:     2000,
		TargetLabel:     "2,000 steps daily",
		Reward:          "Starter Badge",
		IconType:        "badge",
		BackgroundColor: "#2196F3",
	},
	{
		Slug:            "step_master",
		Name:            "Step Master",
		Description:     "Achieve a total of 100,000 steps over 14 days to become a true step master.",
		Type:            ChallengeTotalSteps,
		DurationDays:    14,
		DurationLabel:   "14 day",
		Difficulty:      "medium",
		TargetValue:     100000,
		TargetLabel:     "100,000 total steps",
		Reward:          "Master Stepper Badge",
		IconType:        "badge",
		BackgroundColor: "#9C27B0",
	},
}
