package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkoutEvent is the payload handed to the progress engine when a workout
// finishes.
type WorkoutEvent struct {
	WorkoutID      string
	Steps          int
	DistanceMeters float64
	DurationSec    int
}

// ChallengeUpdate reports one enrollment touched by a workout event.
type ChallengeUpdate struct {
	ChallengeSlug string
	Name          string
	Progress      int
	Completed     bool
}

// CompletedChallenge reports a challenge newly completed by a workout event.
type CompletedChallenge struct {
	ChallengeSlug string
	Name          string
	Reward        string
	Badge         string
}

// ProgressOutcome is the result of running one workout event through the
// progress engine.
type ProgressOutcome struct {
	Updated   []ChallengeUpdate
	Completed []CompletedChallenge
}

// enrollmentSaveAttempts bounds optimistic-concurrency retries per enrollment.
const enrollmentSaveAttempts = 3

// ChallengeService owns enrollment lifecycle and challenge progress.
type ChallengeService struct {
	repo ChallengeRepository
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(repo ChallengeRepository) *ChallengeService {
	return &ChallengeService{
		repo:  repo,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// userLock serializes progress mutations per user within this process. The
// enrollment version column covers races across processes.
func (s *ChallengeService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// UpdateWorkoutProgress applies a completed workout to every active,
// in-window enrollment of the user. A user with no applicable enrollment is
// a silent no-op; workout completion never fails on challenge state.
func (s *ChallengeService) UpdateWorkoutProgress(ctx context.Context, userID string, event WorkoutEvent) (*ProgressOutcome, error) {
	outcome := &ProgressOutcome{}
	if event.Steps <= 0 {
		return outcome, nil
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	enrollments, err := s.repo.ListEnrollments(ctx, userID, EnrollmentActive)
	if err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}

	today := s.now().UTC()
	for _, enrollment := range enrollments {
		challenge, err := s.repo.GetChallenge(ctx, enrollment.ChallengeID)
		if err != nil {
			return nil, fmt.Errorf("load challenge %s: %w", enrollment.ChallengeID, err)
		}
		if challenge == nil || !enrollment.InWindow(today) {
			continue
		}

		entry, err := s.applySteps(ctx, enrollment, *challenge, event.Steps, today)
		if err != nil {
			return nil, err
		}

		if err := s.settleEnrollment(ctx, enrollment, *challenge, entry, today, outcome); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// applySteps adds the event's steps to today's pre-allocated entry, creating
// one only as a defensive fallback.
func (s *ChallengeService) applySteps(ctx context.Context, enrollment Enrollment, challenge Challenge, steps int, today time.Time) (ProgressEntry, error) {
	entry, err := s.repo.ProgressByDate(ctx, enrollment.ID, today)
	if err != nil {
		return ProgressEntry{}, fmt.Errorf("load progress for %s: %w", enrollment.ID, err)
	}
	if entry == nil {
		entry = &ProgressEntry{
			ID:           uuid.NewString(),
			UserID:       enrollment.UserID,
			ChallengeID:  challenge.ID,
			EnrollmentID: enrollment.ID,
			Date:         startOfDay(today),
			TargetValue:  challenge.TargetValue,
		}
	}

	entry.UserSteps += steps
	if challenge.Type == ChallengeDailySteps {
		entry.Completed = entry.UserSteps >= challenge.TargetValue
	}
	if err := s.repo.SaveProgress(ctx, *entry); err != nil {
		return ProgressEntry{}, fmt.Errorf("save progress for %s: %w", enrollment.ID, err)
	}
	return *entry, nil
}

// settleEnrollment recomputes enrollment-level completion from stored
// progress and saves it under the version guard, retrying a bounded number
// of times when a concurrent writer got there first. The retry re-evaluates
// from storage; steps are never re-applied.
func (s *ChallengeService) settleEnrollment(ctx context.Context, enrollment Enrollment, challenge Challenge, entry ProgressEntry, today time.Time, outcome *ProgressOutcome) error {
	for attempt := 0; attempt < enrollmentSaveAttempts; attempt++ {
		err := s.evaluateAndSave(ctx, &enrollment, challenge, entry, today, outcome)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		latest, lerr := s.repo.LatestEnrollment(ctx, enrollment.UserID, challenge.ID)
		if lerr != nil {
			return fmt.Errorf("reload enrollment %s: %w", enrollment.ID, lerr)
		}
		if latest == nil || latest.ID != enrollment.ID {
			return nil
		}
		enrollment = *latest
	}
	return fmt.Errorf("settle enrollment %s: %w", enrollment.ID, ErrVersionConflict)
}

func (s *ChallengeService) evaluateAndSave(ctx context.Context, enrollment *Enrollment, challenge Challenge, entry ProgressEntry, today time.Time, outcome *ProgressOutcome) error {
	entries, err := s.repo.ListProgress(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("list progress for %s: %w", enrollment.ID, err)
	}

	wasCompleted := enrollment.Status == EnrollmentCompleted
	var pct int
	var shouldComplete bool

	switch challenge.Type {
	case ChallengeTotalSteps:
		total := 0
		for _, p := range entries {
			total += p.UserSteps
		}
		pct = clampPercent(roundPercent(total, challenge.TargetValue))
		if total >= challenge.TargetValue {
			shouldComplete = true
			pct = 100
			if !wasCompleted && !entry.Completed {
				entry.Completed = true
				if err := s.repo.SaveProgress(ctx, entry); err != nil {
					return fmt.Errorf("save progress for %s: %w", enrollment.ID, err)
				}
			}
		}
	default: // daily steps
		completedDays := 0
		for _, p := range entries {
			if p.Completed {
				completedDays++
			}
		}
		daysElapsed := elapsedDays(enrollment.StartDate, today)
		if daysElapsed > challenge.DurationDays {
			daysElapsed = challenge.DurationDays
		}
		pct = roundPercent(completedDays, challenge.DurationDays)

		switch {
		// A single day covering the whole multi-day target completes the
		// challenge instantly and backfills every day's entry.
		case entry.Completed && daysElapsed == 1 && entry.UserSteps >= challenge.TargetValue*challenge.DurationDays:
			shouldComplete = true
			pct = 100
			if !wasCompleted {
				if err := s.repo.CompleteAllProgress(ctx, enrollment.ID, challenge.TargetValue); err != nil {
					return fmt.Errorf("backfill progress for %s: %w", enrollment.ID, err)
				}
			}
		case completedDays >= challenge.DurationDays:
			shouldComplete = true
			pct = 100
		case entry.Completed && completedDays == daysElapsed && daysElapsed >= challenge.DurationDays:
			shouldComplete = true
			pct = 100
		}
	}

	if shouldComplete && !wasCompleted {
		completedAt := s.now().UTC()
		enrollment.Status = EnrollmentCompleted
		enrollment.CompletedAt = &completedAt
		if err := s.awardAchievement(ctx, *enrollment, challenge, outcome); err != nil {
			return err
		}
	}

	enrollment.CompletionPercentage = pct
	if err := s.repo.UpdateEnrollment(ctx, *enrollment); err != nil {
		return err
	}

	outcome.Updated = append(outcome.Updated, ChallengeUpdate{
		ChallengeSlug: challenge.Slug,
		Name:          challenge.Name,
		Progress:      pct,
		Completed:     enrollment.Status == EnrollmentCompleted,
	})
	return nil
}

// awardAchievement creates the achievement exactly once per (user,
// challenge) pair; an existing row makes event replay a no-op.
func (s *ChallengeService) awardAchievement(ctx context.Context, enrollment Enrollment, challenge Challenge, outcome *ProgressOutcome) error {
	existing, err := s.repo.AchievementFor(ctx, enrollment.UserID, challenge.ID)
	if err != nil {
		return fmt.Errorf("check achievement for %s: %w", challenge.Slug, err)
	}
	if existing != nil {
		return nil
	}

	badge := challenge.Slug + "_badge.png"
	achievement := Achievement{
		ID:               uuid.NewString(),
		UserID:           enrollment.UserID,
		ChallengeID:      challenge.ID,
		EnrollmentID:     enrollment.ID,
		CompletedOn:      s.now().UTC(),
		Badge:            badge,
		DisplayOnProfile: true,
	}
	if err := s.repo.CreateAchievement(ctx, achievement, challenge); err != nil {
		return fmt.Errorf("create achievement for %s: %w", challenge.Slug, err)
	}

	outcome.Completed = append(outcome.Completed, CompletedChallenge{
		ChallengeSlug: challenge.Slug,
		Name:          challenge.Name,
		Reward:        challenge.Reward,
		Badge:         badge,
	})
	return nil
}

// elapsedDays counts calendar days from start through today, inclusive.
func elapsedDays(start, today time.Time) int {
	return int(startOfDay(today).Sub(startOfDay(start)).Hours()/24) + 1
}

func roundPercent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func clampPercent(pct int) int {
	if pct > 100 {
		return 100
	}
	return pct
}
