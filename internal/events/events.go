// Package events defines the payloads this service exchanges over Kafka.
package events

import "time"

// WorkoutCompleted is consumed from the workout events topic whenever a
// tracked workout finishes on a device.
type WorkoutCompleted struct {
	WorkoutID      string    `json:"workout_id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	Steps          int       `json:"steps"`
	Calories       int       `json:"calories"`
	DistanceMeters float64   `json:"distance_meters"`
	DurationSec    int       `json:"duration_sec"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ChallengeCompleted is published through the outbox when a user finishes a
// challenge and earns its achievement.
type ChallengeCompleted struct {
	AchievementID string    `json:"achievement_id"`
	UserID        string    `json:"user_id"`
	ChallengeID   string    `json:"challenge_id"`
	ChallengeSlug string    `json:"challenge_slug"`
	EnrollmentID  string    `json:"enrollment_id"`
	Reward        string    `json:"reward"`
	Badge         string    `json:"badge"`
	CompletedOn   time.Time `json:"completed_on"`
}
