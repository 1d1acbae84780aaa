package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChallengeCard is one catalog entry paired with the user's enrollment state.
type ChallengeCard struct {
	Challenge        Challenge
	Enrollment       *Enrollment
	EnrollmentStatus string
	Progress         int
	DaysRemaining    int
	IsCompleted      bool
}

// ChallengeCategory groups catalog cards for display.
type ChallengeCategory struct {
	Category   string
	Challenges []ChallengeCard
}

// Benefit is a marketing blurb shown on the challenge detail screen.
type Benefit struct {
	Title       string
	Description string
}

// ChallengeDetails is the full detail view for one challenge.
type ChallengeDetails struct {
	Challenge        Challenge
	Enrollment       *Enrollment
	EnrollmentStatus string
	Progress         int
	DaysRemaining    int
	Benefits         []Benefit
	IsCompleted      bool
	Achievement      *Achievement
}

// DailyProgressPoint is one day of an enrollment's progress view.
type DailyProgressPoint struct {
	Date       time.Time
	Value      int
	Target     int
	Completed  bool
	Percentage int
}

// EnrollmentProgress is the per-day progress view for one enrollment.
type EnrollmentProgress struct {
	Challenge        Challenge
	Enrollment       Enrollment
	DailyProgress    []DailyProgressPoint
	TotalUserSteps   int
	TotalTargetSteps int
	OverallProgress  int
	IsCompleted      bool
}

// HomeChallenge is the compact card shown on the home screen.
type HomeChallenge struct {
	ChallengeSlug string
	Name          string
	Description   string
	Progress      int
	Icon          string
	Color         string
	DaysRemaining int
}

// EnrollmentSummary is one row of the all-enrollments progress list.
type EnrollmentSummary struct {
	EnrollmentID         string
	ChallengeSlug        string
	ChallengeName        string
	ChallengeType        ChallengeType
	Difficulty           string
	Status               EnrollmentStatus
	DaysRemaining        int
	StartDate            time.Time
	EndDate              time.Time
	TotalUserSteps       int
	TargetValue          int
	CompletedDays        int
	TotalDays            int
	CompletionPercentage int
	ProgressDescription  string
}

// AchievementView is one earned achievement with its challenge context.
type AchievementView struct {
	ID              string
	ChallengeSlug   string
	Name            string
	Description     string
	CompletedOn     time.Time
	Badge           string
	Reward          string
	RewardClaimed   bool
	RewardClaimedOn *time.Time
}

var challengeBenefits = []Benefit{
	{
		Title:       "Reach your goals faster",
		Description: "Challenges will help you achieve your main goal sooner",
	},
	{
		Title:       "Improve your well-being",
		Description: "Being more active during the day will have a positive effect on your health",
	},
}

// EnsureStandardChallenges seeds the built-in catalog entries that are not
// present yet.
func (s *ChallengeService) EnsureStandardChallenges(ctx context.Context) error {
	for _, template := range StandardChallenges {
		existing, err := s.repo.GetChallenge(ctx, template.Slug)
		if err != nil {
			return fmt.Errorf("lookup challenge %s: %w", template.Slug, err)
		}
		if existing != nil {
			continue
		}
		challenge := template
		challenge.ID = uuid.NewString()
		challenge.Active = true
		if err := s.repo.CreateChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("seed challenge %s: %w", template.Slug, err)
		}
	}
	return nil
}

// AllChallenges lists the active catalog with the user's enrollment status,
// grouped into the three display categories.
func (s *ChallengeService) AllChallenges(ctx context.Context, userID string) ([]ChallengeCategory, error) {
	if err := s.EnsureStandardChallenges(ctx); err != nil {
		return nil, err
	}

	challenges, err := s.repo.ListActiveChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	enrollments, err := s.repo.ListEnrollments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	byChallenge := make(map[string]Enrollment, len(enrollments))
	for _, e := range enrollments {
		if _, ok := byChallenge[e.ChallengeID]; !ok {
			byChallenge[e.ChallengeID] = e
		}
	}

	var intro, weekly, habit []ChallengeCard
	for _, challenge := range challenges {
		card := ChallengeCard{
			Challenge:        challenge,
			EnrollmentStatus: "not-enrolled",
			DaysRemaining:    challenge.DurationDays,
		}
		if e, ok := byChallenge[challenge.ID]; ok {
			enrollment := e
			card.Enrollment = &enrollment
			card.EnrollmentStatus = string(e.Status)
			card.Progress = e.CompletionPercentage
			card.DaysRemaining = s.daysRemaining(e)
			card.IsCompleted = e.Status == EnrollmentCompleted
		}

		switch {
		case challenge.Difficulty == "easy" && challenge.DurationDays <= 3:
			intro = append(intro, card)
		case challenge.DurationDays <= 7:
			weekly = append(weekly, card)
		default:
			habit = append(habit, card)
		}
	}

	var result []ChallengeCategory
	if len(intro) > 0 {
		result = append(result, ChallengeCategory{Category: "Intro Challenge", Challenges: intro})
	}
	if len(weekly) > 0 {
		result = append(result, ChallengeCategory{Category: "Weekly Challenges", Challenges: weekly})
	}
	if len(habit) > 0 {
		result = append(result, ChallengeCategory{Category: "Make It Habit Challenge", Challenges: habit})
	}
	return result, nil
}

// Details returns the detail view for one challenge, with enrollment and
// achievement state when a user is given.
func (s *ChallengeService) Details(ctx context.Context, slugOrID, userID string) (*ChallengeDetails, error) {
	challenge, err := s.repo.GetChallenge(ctx, slugOrID)
	if err != nil {
		return nil, fmt.Errorf("lookup challenge %s: %w", slugOrID, err)
	}
	if challenge == nil || !challenge.Active {
		return nil, ErrChallengeNotFound
	}

	details := &ChallengeDetails{
		Challenge:        *challenge,
		EnrollmentStatus: "not-enrolled",
		DaysRemaining:    challenge.DurationDays,
		Benefits:         challengeBenefits,
	}
	if userID == "" {
		return details, nil
	}

	enrollment, err := s.repo.LatestEnrollment(ctx, userID, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}
	if enrollment == nil {
		return details, nil
	}

	details.Enrollment = enrollment
	details.EnrollmentStatus = string(enrollment.Status)
	details.Progress = enrollment.CompletionPercentage
	details.DaysRemaining = s.daysRemaining(*enrollment)
	details.IsCompleted = enrollment.Status == EnrollmentCompleted

	if details.IsCompleted {
		achievement, err := s.repo.AchievementFor(ctx, userID, challenge.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup achievement: %w", err)
		}
		details.Achievement = achievement
	}
	return details, nil
}

// Enroll signs the user up for a challenge, pre-allocating one progress
// entry per day of the run. Stale enrollments for the same challenge are
// archived first; an existing active one rejects the attempt.
func (s *ChallengeService) Enroll(ctx context.Context, userID, slugOrID string) (*ChallengeDetails, error) {
	challenge, err := s.repo.GetChallenge(ctx, slugOrID)
	if err != nil {
		return nil, fmt.Errorf("lookup challenge %s: %w", slugOrID, err)
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}

	existing, err := s.repo.LatestEnrollment(ctx, userID, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}
	if existing != nil && existing.Status == EnrollmentActive {
		return nil, ErrAlreadyEnrolled
	}
	if err := s.repo.ArchiveEnrollments(ctx, userID, challenge.ID); err != nil {
		return nil, fmt.Errorf("archive enrollments: %w", err)
	}

	now := s.now().UTC()
	startDate := startOfDay(now)
	enrollment := Enrollment{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: challenge.ID,
		Status:      EnrollmentActive,
		StartDate:   startDate,
		EndDate:     startDate.AddDate(0, 0, challenge.DurationDays-1),
		CurrentDay:  1,
		Version:     1,
		EnrolledAt:  now,
	}

	entries := make([]ProgressEntry, challenge.DurationDays)
	for i := 0; i < challenge.DurationDays; i++ {
		entries[i] = ProgressEntry{
			ID:           uuid.NewString(),
			UserID:       userID,
			ChallengeID:  challenge.ID,
			EnrollmentID: enrollment.ID,
			Date:         startDate.AddDate(0, 0, i),
			TargetValue:  challenge.TargetValue,
		}
	}

	if err := s.repo.CreateEnrollment(ctx, enrollment, entries); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return s.Details(ctx, challenge.Slug, userID)
}

// Progress returns the per-day progress view for the user's most recent
// enrollment in a challenge.
func (s *ChallengeService) Progress(ctx context.Context, userID, slugOrID string) (*EnrollmentProgress, error) {
	challenge, err := s.repo.GetChallenge(ctx, slugOrID)
	if err != nil {
		return nil, fmt.Errorf("lookup challenge %s: %w", slugOrID, err)
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}

	enrollment, err := s.repo.LatestEnrollment(ctx, userID, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, ErrEnrollmentNotFound
	}

	entries, err := s.repo.ListProgress(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	view := &EnrollmentProgress{
		Challenge:   *challenge,
		Enrollment:  *enrollment,
		IsCompleted: enrollment.Status == EnrollmentCompleted,
	}
	for _, p := range entries {
		view.TotalUserSteps += p.UserSteps
		view.TotalTargetSteps += p.TargetValue
		view.DailyProgress = append(view.DailyProgress, DailyProgressPoint{
			Date:       p.Date,
			Value:      p.UserSteps,
			Target:     p.TargetValue,
			Completed:  p.Completed,
			Percentage: clampPercent(roundPercent(p.UserSteps, p.TargetValue)),
		})
	}
	if view.TotalTargetSteps > 0 {
		view.OverallProgress = clampPercent(roundPercent(view.TotalUserSteps, view.TotalTargetSteps))
	} else {
		view.OverallProgress = enrollment.CompletionPercentage
	}
	return view, nil
}

// Achievements lists the user's profile-visible achievements.
func (s *ChallengeService) Achievements(ctx context.Context, userID string) ([]AchievementView, error) {
	achievements, err := s.repo.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	views := make([]AchievementView, 0, len(achievements))
	for _, a := range achievements {
		if !a.DisplayOnProfile {
			continue
		}
		challenge, err := s.repo.GetChallenge(ctx, a.ChallengeID)
		if err != nil {
			return nil, fmt.Errorf("lookup challenge %s: %w", a.ChallengeID, err)
		}
		view := AchievementView{
			ID:              a.ID,
			CompletedOn:     a.CompletedOn,
			Badge:           a.Badge,
			RewardClaimed:   a.RewardClaimed,
			RewardClaimedOn: a.RewardClaimedOn,
		}
		if challenge != nil {
			view.ChallengeSlug = challenge.Slug
			view.Name = challenge.Name
			view.Description = challenge.Description
			view.Reward = challenge.Reward
		}
		views = append(views, view)
	}
	return views, nil
}

// ClaimReward marks an achievement's reward claimed; a second claim fails
// with ErrRewardClaimed.
func (s *ChallengeService) ClaimReward(ctx context.Context, userID, achievementID string) (*Achievement, error) {
	achievement, err := s.repo.AchievementByID(ctx, userID, achievementID)
	if err != nil {
		return nil, fmt.Errorf("lookup achievement: %w", err)
	}
	if achievement == nil {
		return nil, ErrAchievementNotFound
	}
	if achievement.RewardClaimed {
		return nil, ErrRewardClaimed
	}

	claimedOn := s.now().UTC()
	achievement.RewardClaimed = true
	achievement.RewardClaimedOn = &claimedOn
	if err := s.repo.UpdateAchievement(ctx, *achievement); err != nil {
		return nil, fmt.Errorf("save achievement: %w", err)
	}
	return achievement, nil
}

// HomeSummary returns up to three of the user's most recent active
// enrollments as home-screen cards.
func (s *ChallengeService) HomeSummary(ctx context.Context, userID string) ([]HomeChallenge, error) {
	enrollments, err := s.repo.ListEnrollments(ctx, userID, EnrollmentActive)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if len(enrollments) > 3 {
		enrollments = enrollments[:3]
	}

	result := make([]HomeChallenge, 0, len(enrollments))
	for _, enrollment := range enrollments {
		challenge, err := s.repo.GetChallenge(ctx, enrollment.ChallengeID)
		if err != nil {
			return nil, fmt.Errorf("lookup challenge %s: %w", enrollment.ChallengeID, err)
		}
		if challenge == nil {
			continue
		}

		entries, err := s.repo.ListProgress(ctx, enrollment.ID)
		if err != nil {
			return nil, fmt.Errorf("list progress: %w", err)
		}
		totalSteps, completedDays := 0, 0
		for _, p := range entries {
			totalSteps += p.UserSteps
			if p.Completed {
				completedDays++
			}
		}

		description := fmt.Sprintf("%d/%d steps", totalSteps, challenge.TargetValue)
		if challenge.Type == ChallengeDailySteps {
			description = fmt.Sprintf("%d/%d days", completedDays, challenge.DurationDays)
		}
		icon := challenge.IconType
		if icon == "" {
			icon = "star"
		}
		color := challenge.BackgroundColor
		if color == "" {
			color = "#4CAF50"
		}

		result = append(result, HomeChallenge{
			ChallengeSlug: challenge.Slug,
			Name:          challenge.Name,
			Description:   description,
			Progress:      enrollment.CompletionPercentage,
			Icon:          icon,
			Color:         color,
			DaysRemaining: s.daysRemaining(enrollment),
		})
	}
	return result, nil
}

// EnrollmentsProgress summarizes every active or completed enrollment with
// the type-specific completion percentage.
func (s *ChallengeService) EnrollmentsProgress(ctx context.Context, userID string) ([]EnrollmentSummary, error) {
	enrollments, err := s.repo.ListEnrollments(ctx, userID, EnrollmentActive, EnrollmentCompleted)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	summaries := make([]EnrollmentSummary, 0, len(enrollments))
	for _, enrollment := range enrollments {
		challenge, err := s.repo.GetChallenge(ctx, enrollment.ChallengeID)
		if err != nil {
			return nil, fmt.Errorf("lookup challenge %s: %w", enrollment.ChallengeID, err)
		}
		if challenge == nil {
			continue
		}

		entries, err := s.repo.ListProgress(ctx, enrollment.ID)
		if err != nil {
			return nil, fmt.Errorf("list progress: %w", err)
		}
		totalSteps, completedDays := 0, 0
		for _, p := range entries {
			totalSteps += p.UserSteps
			if p.Completed {
				completedDays++
			}
		}

		cumulative := challenge.Type == ChallengeTotalSteps
		pct := clampPercent(roundPercent(completedDays, challenge.DurationDays))
		targetValue := challenge.TargetValue * challenge.DurationDays
		description := fmt.Sprintf("%d/%d days completed", completedDays, challenge.DurationDays)
		if cumulative {
			pct = clampPercent(roundPercent(totalSteps, challenge.TargetValue))
			targetValue = challenge.TargetValue
			description = fmt.Sprintf("%d/%d steps recorded", totalSteps, challenge.TargetValue)
		}

		summaries = append(summaries, EnrollmentSummary{
			EnrollmentID:         enrollment.ID,
			ChallengeSlug:        challenge.Slug,
			ChallengeName:        challenge.Name,
			ChallengeType:        challenge.Type,
			Difficulty:           challenge.Difficulty,
			Status:               enrollment.Status,
			DaysRemaining:        s.daysRemaining(enrollment),
			StartDate:            enrollment.StartDate,
			EndDate:              enrollment.EndDate,
			TotalUserSteps:       totalSteps,
			TargetValue:          targetValue,
			CompletedDays:        completedDays,
			TotalDays:            challenge.DurationDays,
			CompletionPercentage: pct,
			ProgressDescription:  description,
		})
	}
	return summaries, nil
}

// UpdateStatus moves the user's most recent enrollment for a challenge to a
// new status. Only reactivation and archival are allowed, and completed
// enrollments can only be archived.
func (s *ChallengeService) UpdateStatus(ctx context.Context, userID, slugOrID string, status EnrollmentStatus) error {
	if status != EnrollmentActive && status != EnrollmentArchived {
		return ErrInvalidStatus
	}

	challenge, err := s.repo.GetChallenge(ctx, slugOrID)
	if err != nil {
		return fmt.Errorf("lookup challenge %s: %w", slugOrID, err)
	}
	if challenge == nil {
		return ErrChallengeNotFound
	}

	enrollment, err := s.repo.LatestEnrollment(ctx, userID, challenge.ID)
	if err != nil {
		return fmt.Errorf("lookup enrollment: %w", err)
	}
	if enrollment == nil {
		return ErrEnrollmentNotFound
	}
	if enrollment.Status == EnrollmentCompleted && status != EnrollmentArchived {
		return ErrEnrollmentCompleted
	}

	enrollment.Status = status
	if err := s.repo.UpdateEnrollment(ctx, *enrollment); err != nil {
		return fmt.Errorf("save enrollment: %w", err)
	}
	return nil
}

func (s *ChallengeService) daysRemaining(enrollment Enrollment) int {
	if enrollment.Status == EnrollmentCompleted {
		return 0
	}
	today := startOfDay(s.now())
	end := startOfDay(enrollment.EndDate)
	remaining := int(end.Sub(today).Hours() / 24)
	if remaining < 0 {
		return 0
	}
	return remaining
}
