package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
)

type progressUpdater interface {
	UpdateWorkoutProgress(ctx context.Context, userID string, event domain.WorkoutEvent) (*domain.ProgressOutcome, error)
}

// IntakeHandler persists workout completion events and feeds them into
// challenge progress evaluation.
type IntakeHandler struct {
	sessions domain.SessionRepository
	progress progressUpdater
}

// NewIntakeHandler constructs a handler backed by the session store and the
// challenge progress engine.
func NewIntakeHandler(sessions domain.SessionRepository, progress progressUpdater) *IntakeHandler {
	return &IntakeHandler{sessions: sessions, progress: progress}
}

// Handle records the workout session, its completion marker, and applies the
// step delta to the user's active challenge enrollments. Replayed events are
// absorbed by the session upsert and the completion insert being idempotent;
// challenge progress is guarded by the achievement record.
func (h *IntakeHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != "workout.completed" {
		return nil
	}

	var event events.WorkoutCompleted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode workout.completed payload: %w", err)
	}
	if event.SessionID == "" || event.UserID == "" {
		return fmt.Errorf("workout.completed missing session_id or user_id")
	}

	completedAt := event.CompletedAt
	session := domain.WorkoutSession{
		ID:             event.SessionID,
		UserID:         event.UserID,
		WorkoutID:      event.WorkoutID,
		TotalSteps:     event.Steps,
		CaloriesBurned: event.Calories,
		TotalDistance:  event.DistanceMeters,
		DurationSec:    event.DurationSec,
		StartTime:      event.StartedAt,
		EndTime:        &completedAt,
		Status:         domain.StatusCompleted,
	}
	if err := h.sessions.RecordWorkoutSession(ctx, session); err != nil {
		return fmt.Errorf("persist workout session: %w", err)
	}

	// The session ID doubles as the completion ID so replays collapse onto
	// the same row.
	completion := domain.WorkoutCompletion{
		ID:          event.SessionID,
		UserID:      event.UserID,
		WorkoutID:   event.WorkoutID,
		CompletedAt: event.CompletedAt,
	}
	if err := h.sessions.RecordCompletion(ctx, completion); err != nil {
		return fmt.Errorf("persist workout completion: %w", err)
	}

	_, err := h.progress.UpdateWorkoutProgress(ctx, event.UserID, domain.WorkoutEvent{
		WorkoutID:      event.WorkoutID,
		Steps:          event.Steps,
		DistanceMeters: event.DistanceMeters,
		DurationSec:    event.DurationSec,
	})
	if err != nil {
		return fmt.Errorf("update challenge progress: %w", err)
	}
	return nil
}
