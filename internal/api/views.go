package api

import (
	"time"

	"example.com/fittrack/internal/domain"
)

// MetricSummaryView is a total plus per-active-period average.
type MetricSummaryView struct {
	Total   int `json:"total"`
	Average int `json:"average"`
}

// DistanceSummaryView renders distance in kilometers.
type DistanceSummaryView struct {
	TotalKm   string `json:"total_km"`
	AverageKm string `json:"average_km"`
}

// TimeSummaryView renders durations as "X hr Y min".
type TimeSummaryView struct {
	Total   string `json:"total"`
	Average string `json:"average"`
}

// HourStepsView names the best hour of a day.
type HourStepsView struct {
	Hour  string `json:"hour"`
	Steps int    `json:"steps"`
}

// ChartPointView is one slot of a statistics or trends chart.
type ChartPointView struct {
	Label          string  `json:"label"`
	Steps          int     `json:"steps"`
	Calories       int     `json:"calories"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationMin    int     `json:"duration_min"`
	GoalAchieved   bool    `json:"goal_achieved"`
}

// HourPointView is one slot of an hourly chart.
type HourPointView struct {
	Hour       string `json:"hour"`
	Steps      int    `json:"steps"`
	Calories   int    `json:"calories"`
	DistanceKm string `json:"distance_km"`
	TimeMin    int    `json:"time_min"`
}

// StatisticsResponse is the period statistics payload.
type StatisticsResponse struct {
	Period              string              `json:"period"`
	AvgSteps            int                 `json:"avg_steps"`
	Workouts            int                 `json:"workouts"`
	BestDay             int                 `json:"best_day"`
	GoalAchievedCount   string              `json:"goal_achieved_count"`
	GoalAchievedPercent string              `json:"goal_achieved_percent"`
	PercentChange       int                 `json:"percent_change"`
	Steps               MetricSummaryView   `json:"steps"`
	Calories            MetricSummaryView   `json:"calories"`
	Distance            DistanceSummaryView `json:"distance"`
	Time                TimeSummaryView     `json:"time"`
	BestHour            *HourStepsView      `json:"best_hour,omitempty"`
	HourlyInsight       string              `json:"hourly_insight,omitempty"`
	StepGoal            int                 `json:"step_goal"`
	Chart               []ChartPointView    `json:"chart"`
}

// BestResultsResponse is the best-results payload.
type BestResultsResponse struct {
	Period      string          `json:"period"`
	Steps       int             `json:"steps"`
	Calories    int             `json:"calories"`
	DistanceKm  string          `json:"distance_km"`
	Time        string          `json:"time"`
	BestHour    *HourStepsView  `json:"best_hour,omitempty"`
	AvgSteps    int             `json:"avg_steps"`
	AvgUnit     string          `json:"avg_unit"`
	HourlyChart []HourPointView `json:"hourly_chart"`
	Insight     string          `json:"insight"`
}

// TrendsResponse is the period-over-period comparison payload.
type TrendsResponse struct {
	Period              string              `json:"period"`
	ThisPeriodAvg       int                 `json:"this_period_avg"`
	LastPeriodAvg       int                 `json:"last_period_avg"`
	AverageUnit         string              `json:"average_unit"`
	GoalAchievedCount   string              `json:"goal_achieved_count"`
	GoalAchievedPercent string              `json:"goal_achieved_percent"`
	PercentChange       int                 `json:"percent_change"`
	Steps               MetricSummaryView   `json:"steps"`
	Calories            MetricSummaryView   `json:"calories"`
	Distance            DistanceSummaryView `json:"distance"`
	Time                TimeSummaryView     `json:"time"`
	Chart               []ChartPointView    `json:"chart"`
	Insight             string              `json:"insight"`
}

// MyDayResponse is the single-day insight payload.
type MyDayResponse struct {
	Steps         int             `json:"steps"`
	Change        string          `json:"change"`
	Calories      int             `json:"calories"`
	DistanceKm    string          `json:"distance_km"`
	Time          string          `json:"time"`
	AvgDailySteps int             `json:"avg_daily_steps"`
	HourlyChart   []HourPointView `json:"hourly_chart"`
}

// TimelineEntryView is one row of the recent-activity list.
type TimelineEntryView struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Steps          int        `json:"steps"`
	Calories       int        `json:"calories"`
	DistanceMeters float64    `json:"distance_meters"`
	DurationMin    int        `json:"duration_min"`
	Status         string     `json:"status"`
}

// TimelineResponse packages timeline results.
type TimelineResponse struct {
	Items      []TimelineEntryView `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// CalendarDayView is one cell of the streak calendar.
type CalendarDayView struct {
	Date      string `json:"date"`
	Day       int    `json:"day"`
	IsActive  bool   `json:"is_active"`
	IsRestDay bool   `json:"is_rest_day"`
	Steps     int    `json:"steps"`
}

// StreakOverviewResponse is the streak calendar payload.
type StreakOverviewResponse struct {
	CurrentStreak       int               `json:"current_streak"`
	MaxStreak           int               `json:"max_streak"`
	StreakMessage       string            `json:"streak_message"`
	RestDaysUsed        int               `json:"rest_days_used"`
	RestDaysTotal       int               `json:"rest_days_total"`
	RestDaysRemaining   int               `json:"rest_days_remaining"`
	RestDaysMessage     string            `json:"rest_days_message"`
	RestDaysDescription string            `json:"rest_days_description"`
	CalendarMonth       string            `json:"calendar_month"`
	CalendarYear        int               `json:"calendar_year"`
	Days                []CalendarDayView `json:"days"`
}

// AwardView is one rung of an award ladder.
type AwardView struct {
	Days        int    `json:"days"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
	Progress    int    `json:"progress"`
	Locked      bool   `json:"locked"`
}

// StreakAwardsResponse is the combined ladder payload.
type StreakAwardsResponse struct {
	CurrentStreak int         `json:"current_streak"`
	Awards        []AwardView `json:"awards"`
}

// TypedStreakView is one streak type's ladder.
type TypedStreakView struct {
	Type    string      `json:"type"`
	Current int         `json:"current"`
	Max     int         `json:"max"`
	Awards  []AwardView `json:"awards"`
}

// AllStreakAwardsResponse holds every streak type's ladder.
type AllStreakAwardsResponse struct {
	General   TypedStreakView `json:"general"`
	Challenge TypedStreakView `json:"challenge"`
	Step      TypedStreakView `json:"step"`
	Workout   TypedStreakView `json:"workout"`
}

// ChallengeView exposes catalog fields of a challenge.
type ChallengeView struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	DurationDays    int    `json:"duration_days"`
	DurationLabel   string `json:"duration_label"`
	Difficulty      string `json:"difficulty"`
	TargetValue     int    `json:"target_value"`
	TargetLabel     string `json:"target_label"`
	Reward          string `json:"reward"`
	IconType        string `json:"icon_type"`
	BackgroundColor string `json:"background_color"`
}

// EnrollmentView exposes one participation instance.
type EnrollmentView struct {
	ID                   string     `json:"id"`
	Status               string     `json:"status"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	CompletionPercentage int        `json:"completion_percentage"`
	CurrentDay           int        `json:"current_day"`
	EnrolledAt           time.Time  `json:"enrolled_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// ChallengeCardView is one catalog card.
type ChallengeCardView struct {
	Challenge        ChallengeView   `json:"challenge"`
	Enrollment       *EnrollmentView `json:"enrollment,omitempty"`
	EnrollmentStatus string          `json:"enrollment_status"`
	Progress         int             `json:"progress"`
	DaysRemaining    int             `json:"days_remaining"`
	IsCompleted      bool            `json:"is_completed"`
}

// ChallengeCategoryView groups catalog cards.
type ChallengeCategoryView struct {
	Category   string              `json:"category"`
	Challenges []ChallengeCardView `json:"challenges"`
}

// BenefitView is a detail-screen blurb.
type BenefitView struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AchievementDetailView exposes an earned achievement.
type AchievementDetailView struct {
	ID               string     `json:"id"`
	CompletedOn      time.Time  `json:"completed_on"`
	RewardClaimed    bool       `json:"reward_claimed"`
	RewardClaimedOn  *time.Time `json:"reward_claimed_on,omitempty"`
	Badge            string     `json:"badge"`
	DisplayOnProfile bool       `json:"display_on_profile"`
}

// ChallengeDetailsResponse is the full detail payload.
type ChallengeDetailsResponse struct {
	Challenge        ChallengeView          `json:"challenge"`
	Enrollment       *EnrollmentView        `json:"enrollment,omitempty"`
	EnrollmentStatus string                 `json:"enrollment_status"`
	Progress         int                    `json:"progress"`
	DaysRemaining    int                    `json:"days_remaining"`
	Benefits         []BenefitView          `json:"benefits"`
	IsCompleted      bool                   `json:"is_completed"`
	Achievement      *AchievementDetailView `json:"achievement,omitempty"`
}

// DailyProgressPointView is one day of an enrollment's progress.
type DailyProgressPointView struct {
	Date       time.Time `json:"date"`
	Value      int       `json:"value"`
	Target     int       `json:"target"`
	Completed  bool      `json:"completed"`
	Percentage int       `json:"percentage"`
}

// EnrollmentProgressResponse is the per-day progress payload.
type EnrollmentProgressResponse struct {
	Challenge        ChallengeView            `json:"challenge"`
	Enrollment       EnrollmentView           `json:"enrollment"`
	DailyProgress    []DailyProgressPointView `json:"daily_progress"`
	TotalUserSteps   int                      `json:"total_user_steps"`
	TotalTargetSteps int                      `json:"total_target_steps"`
	OverallProgress  int                      `json:"overall_progress"`
	IsCompleted      bool                     `json:"is_completed"`
}

// HomeChallengeView is the compact home-screen card.
type HomeChallengeView struct {
	ChallengeSlug string `json:"challenge_slug"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Progress      int    `json:"progress"`
	Icon          string `json:"icon"`
	Color         string `json:"color"`
	DaysRemaining int    `json:"days_remaining"`
}

// EnrollmentSummaryView is one row of the all-enrollments list.
type EnrollmentSummaryView struct {
	EnrollmentID         string    `json:"enrollment_id"`
	ChallengeSlug        string    `json:"challenge_slug"`
	ChallengeName        string    `json:"challenge_name"`
	ChallengeType        string    `json:"challenge_type"`
	Difficulty           string    `json:"difficulty"`
	Status               string    `json:"status"`
	DaysRemaining        int       `json:"days_remaining"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	TotalUserSteps       int       `json:"total_user_steps"`
	TargetValue          int       `json:"target_value"`
	CompletedDays        int       `json:"completed_days"`
	TotalDays            int       `json:"total_days"`
	CompletionPercentage int       `json:"completion_percentage"`
	ProgressDescription  string    `json:"progress_description"`
}

// UserAchievementView is one earned achievement with challenge context.
type UserAchievementView struct {
	ID              string     `json:"id"`
	ChallengeSlug   string     `json:"challenge_slug"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	CompletedOn     time.Time  `json:"completed_on"`
	Badge           string     `json:"badge"`
	Reward          string     `json:"reward"`
	RewardClaimed   bool       `json:"reward_claimed"`
	RewardClaimedOn *time.Time `json:"reward_claimed_on,omitempty"`
}

func toMetricSummaryView(s domain.MetricSummary) MetricSummaryView {
	return MetricSummaryView{Total: s.Total, Average: s.Average}
}

func toDistanceSummaryView(s domain.DistanceSummary) DistanceSummaryView {
	return DistanceSummaryView{TotalKm: s.TotalKm, AverageKm: s.AverageKm}
}

func toTimeSummaryView(s domain.TimeSummary) TimeSummaryView {
	return TimeSummaryView{Total: s.Total, Average: s.Average}
}

func toHourStepsView(h *domain.HourSteps) *HourStepsView {
	if h == nil {
		return nil
	}
	return &HourStepsView{Hour: h.Hour, Steps: h.Steps}
}

func toChartViews(points []domain.ChartPoint) []ChartPointView {
	out := make([]ChartPointView, 0, len(points))
	for _, p := range points {
		out = append(out, ChartPointView{
			Label:          p.Label,
			Steps:          p.Steps,
			Calories:       p.Calories,
			DistanceMeters: p.DistanceMeters,
			DurationMin:    p.DurationMin,
			GoalAchieved:   p.GoalAchieved,
		})
	}
	return out
}

func toHourPointViews(points []domain.HourPoint) []HourPointView {
	out := make([]HourPointView, 0, len(points))
	for _, p := range points {
		out = append(out, HourPointView{
			Hour:       p.Hour,
			Steps:      p.Steps,
			Calories:   p.Calories,
			DistanceKm: p.DistanceKm,
			TimeMin:    p.TimeMin,
		})
	}
	return out
}

func toStatisticsResponse(s domain.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Period:              string(s.Period),
		AvgSteps:            s.AvgSteps,
		Workouts:            s.Workouts,
		BestDay:             s.BestDay,
		GoalAchievedCount:   s.GoalAchievedCount,
		GoalAchievedPercent: s.GoalAchievedPercent,
		PercentChange:       s.PercentChange,
		Steps:               toMetricSummaryView(s.Steps),
		Calories:            toMetricSummaryView(s.Calories),
		Distance:            toDistanceSummaryView(s.Distance),
		Time:                toTimeSummaryView(s.Time),
		BestHour:            toHourStepsView(s.BestHour),
		HourlyInsight:       s.HourlyInsight,
		StepGoal:            s.StepGoal,
		Chart:               toChartViews(s.Chart),
	}
}

func toBestResultsResponse(b domain.BestResults) BestResultsResponse {
	return BestResultsResponse{
		Period:      string(b.Period),
		Steps:       b.Steps,
		Calories:    b.Calories,
		DistanceKm:  b.DistanceKm,
		Time:        b.Time,
		BestHour:    toHourStepsView(b.BestHour),
		AvgSteps:    b.AvgSteps,
		AvgUnit:     b.AvgUnit,
		HourlyChart: toHourPointViews(b.HourlyChart),
		Insight:     b.Insight,
	}
}

func toTrendsResponse(tr domain.Trends) TrendsResponse {
	return TrendsResponse{
		Period:              string(tr.Period),
		ThisPeriodAvg:       tr.ThisPeriodAvg,
		LastPeriodAvg:       tr.LastPeriodAvg,
		AverageUnit:         tr.AverageUnit,
		GoalAchievedCount:   tr.GoalAchievedCount,
		GoalAchievedPercent: tr.GoalAchievedPercent,
		PercentChange:       tr.PercentChange,
		Steps:               toMetricSummaryView(tr.Steps),
		Calories:            toMetricSummaryView(tr.Calories),
		Distance:            toDistanceSummaryView(tr.Distance),
		Time:                toTimeSummaryView(tr.Time),
		Chart:               toChartViews(tr.Chart),
		Insight:             tr.Insight,
	}
}

func toMyDayResponse(d domain.MyDay) MyDayResponse {
	return MyDayResponse{
		Steps:         d.Steps,
		Change:        d.Change,
		Calories:      d.Calories,
		DistanceKm:    d.DistanceKm,
		Time:          d.Time,
		AvgDailySteps: d.AvgDailySteps,
		HourlyChart:   toHourPointViews(d.HourlyChart),
	}
}

func toTimelineEntryView(e domain.TimelineEntry) TimelineEntryView {
	return TimelineEntryView{
		ID:             e.ID,
		Kind:           string(e.Kind),
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Steps:          e.Steps,
		Calories:       e.Calories,
		DistanceMeters: e.DistanceMeters,
		DurationMin:    e.DurationMin,
		Status:         e.Status,
	}
}

func toStreakOverviewResponse(o domain.StreakOverview) StreakOverviewResponse {
	days := make([]CalendarDayView, 0, len(o.Days))
	for _, d := range o.Days {
		days = append(days, CalendarDayView{
			Date:      d.Date,
			Day:       d.Day,
			IsActive:  d.IsActive,
			IsRestDay: d.IsRestDay,
			Steps:     d.Steps,
		})
	}
	return StreakOverviewResponse{
		CurrentStreak:       o.CurrentStreak,
		MaxStreak:           o.MaxStreak,
		StreakMessage:       o.StreakMessage,
		RestDaysUsed:        o.RestDaysUsed,
		RestDaysTotal:       o.RestDaysTotal,
		RestDaysRemaining:   o.RestDaysRemaining,
		RestDaysMessage:     o.RestDaysMessage,
		RestDaysDescription: o.RestDaysDescription,
		CalendarMonth:       o.CalendarMonth,
		CalendarYear:        o.CalendarYear,
		Days:                days,
	}
}

func toAwardViews(awards []domain.Award) []AwardView {
	out := make([]AwardView, 0, len(awards))
	for _, a := range awards {
		out = append(out, AwardView{
			Days:        a.Days,
			Name:        a.Name,
			Description: a.Description,
			Unlocked:    a.Unlocked,
			Progress:    a.Progress,
			Locked:      a.Locked,
		})
	}
	return out
}

func toTypedStreakView(s domain.TypedStreak) TypedStreakView {
	return TypedStreakView{
		Type:    string(s.Type),
		Current: s.Current,
		Max:     s.Max,
		Awards:  toAwardViews(s.Awards),
	}
}

func toChallengeView(c domain.Challenge) ChallengeView {
	return ChallengeView{
		ID:              c.ID,
		Slug:            c.Slug,
		Name:            c.Name,
		Description:     c.Description,
		Type:            string(c.Type),
		DurationDays:    c.DurationDays,
		DurationLabel:   c.DurationLabel,
		Difficulty:      c.Difficulty,
		TargetValue:     c.TargetValue,
		TargetLabel:     c.TargetLabel,
		Reward:          c.Reward,
		IconType:        c.IconType,
		BackgroundColor: c.BackgroundColor,
	}
}

func toEnrollmentView(e *domain.Enrollment) *EnrollmentView {
	if e == nil {
		return nil
	}
	return &EnrollmentView{
		ID:                   e.ID,
		Status:               string(e.Status),
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		CompletionPercentage: e.CompletionPercentage,
		CurrentDay:           e.CurrentDay,
		EnrolledAt:           e.EnrolledAt,
		CompletedAt:          e.CompletedAt,
	}
}

func toAchievementDetailView(a *domain.Achievement) *AchievementDetailView {
	if a == nil {
		return nil
	}
	return &AchievementDetailView{
		ID:               a.ID,
		CompletedOn:      a.CompletedOn,
		RewardClaimed:    a.RewardClaimed,
		RewardClaimedOn:  a.RewardClaimedOn,
		Badge:            a.Badge,
		DisplayOnProfile: a.DisplayOnProfile,
	}
}

func toChallengeDetailsResponse(d domain.ChallengeDetails) ChallengeDetailsResponse {
	benefits := make([]BenefitView, 0, len(d.Benefits))
	for _, b := range d.Benefits {
		benefits = append(benefits, BenefitView{Title: b.Title, Description: b.Description})
	}
	return ChallengeDetailsResponse{
		Challenge:        toChallengeView(d.Challenge),
		Enrollment:       toEnrollmentView(d.Enrollment),
		EnrollmentStatus: d.EnrollmentStatus,
		Progress:         d.Progress,
		DaysRemaining:    d.DaysRemaining,
		Benefits:         benefits,
		IsCompleted:      d.IsCompleted,
		Achievement:      toAchievementDetailView(d.Achievement),
	}
}

func toChallengeCategoryViews(categories []domain.ChallengeCategory) []ChallengeCategoryView {
	out := make([]ChallengeCategoryView, 0, len(categories))
	for _, cat := range categories {
		cards := make([]ChallengeCardView, 0, len(cat.Challenges))
		for _, card := range cat.Challenges {
			cards = append(cards, ChallengeCardView{
				Challenge:        toChallengeView(card.Challenge),
				Enrollment:       toEnrollmentView(card.Enrollment),
				EnrollmentStatus: card.EnrollmentStatus,
				Progress:         card.Progress,
				DaysRemaining:    card.DaysRemaining,
				IsCompleted:      card.IsCompleted,
			})
		}
		out = append(out, ChallengeCategoryView{Category: cat.Category, Challenges: cards})
	}
	return out
}

func toEnrollmentProgressResponse(p domain.EnrollmentProgress) EnrollmentProgressResponse {
	daily := make([]DailyProgressPointView, 0, len(p.DailyProgress))
	for _, d := range p.DailyProgress {
		daily = append(daily, DailyProgressPointView{
			Date:       d.Date,
			Value:      d.Value,
			Target:     d.Target,
			Completed:  d.Completed,
			Percentage: d.Percentage,
		})
	}
	return EnrollmentProgressResponse{
		Challenge:        toChallengeView(p.Challenge),
		Enrollment:       *toEnrollmentView(&p.Enrollment),
		DailyProgress:    daily,
		TotalUserSteps:   p.TotalUserSteps,
		TotalTargetSteps: p.TotalTargetSteps,
		OverallProgress:  p.OverallProgress,
		IsCompleted:      p.IsCompleted,
	}
}

func toHomeChallengeViews(items []domain.HomeChallenge) []HomeChallengeView {
	out := make([]HomeChallengeView, 0, len(items))
	for _, h := range items {
		out = append(out, HomeChallengeView{
			ChallengeSlug: h.ChallengeSlug,
			Name:          h.Name,
			Description:   h.Description,
			Progress:      h.Progress,
			Icon:          h.Icon,
			Color:         h.Color,
			DaysRemaining: h.DaysRemaining,
		})
	}
	return out
}

func toEnrollmentSummaryViews(items []domain.EnrollmentSummary) []EnrollmentSummaryView {
	out := make([]EnrollmentSummaryView, 0, len(items))
	for _, s := range items {
		out = append(out, EnrollmentSummaryView{
			EnrollmentID:         s.EnrollmentID,
			ChallengeSlug:        s.ChallengeSlug,
			ChallengeName:        s.ChallengeName,
			ChallengeType:        string(s.ChallengeType),
			Difficulty:           s.Difficulty,
			Status:               string(s.Status),
			DaysRemaining:        s.DaysRemaining,
			StartDate:            s.StartDate,
			EndDate:              s.EndDate,
			TotalUserSteps:       s.TotalUserSteps,
			TargetValue:          s.TargetValue,
			CompletedDays:        s.CompletedDays,
			TotalDays:            s.TotalDays,
			CompletionPercentage: s.CompletionPercentage,
			ProgressDescription:  s.ProgressDescription,
		})
	}
	return out
}

func toUserAchievementViews(items []domain.AchievementView) []UserAchievementView {
	out := make([]UserAchievementView, 0, len(items))
	for _, a := range items {
		out = append(out, UserAchievementView{
			ID:              a.ID,
			ChallengeSlug:   a.ChallengeSlug,
			Name:            a.Name,
			Description:     a.Description,
			CompletedOn:     a.CompletedOn,
			Badge:           a.Badge,
			Reward:          a.Reward,
			RewardClaimed:   a.RewardClaimed,
			RewardClaimedOn: a.RewardClaimedOn,
		})
	}
	return out
}
