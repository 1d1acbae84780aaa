// Package api exposes HTTP handlers for the fitness tracking service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"example.com/fittrack/internal/auth"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/persistence"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	insights   *domain.InsightService
	streaks    *domain.StreakService
	challenges *domain.ChallengeService
}

// NewHandler builds a Handler.
func NewHandler(insights *domain.InsightService, streaks *domain.StreakService, challenges *domain.ChallengeService) *Handler {
	return &Handler{insights: insights, streaks: streaks, challenges: challenges}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/insights/statistics", h.statistics)
	mux.HandleFunc("/v1/insights/best-results", h.bestResults)
	mux.HandleFunc("/v1/insights/trends", h.trends)
	mux.HandleFunc("/v1/insights/my-day", h.myDay)
	mux.HandleFunc("/v1/insights/timeline", h.timeline)
	mux.HandleFunc("/v1/streaks", h.streakCalendar)
	mux.HandleFunc("/v1/streaks/awards", h.streakAwards)
	mux.HandleFunc("/v1/streaks/awards/", h.streakAwardsByType)
	mux.HandleFunc("/v1/challenges", h.challengeCatalog)
	mux.HandleFunc("/v1/challenges/", h.challengeSubtree)
	mux.HandleFunc("/v1/achievements", h.achievements)
	mux.HandleFunc("/v1/achievements/", h.achievementAction)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize extracts claims and checks the read scope (or its write
// counterpart). It writes the error response itself and returns ok=false.
func authorize(w http.ResponseWriter, r *http.Request, readScope, writeScope string) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	if !claims.HasScope(readScope) && !claims.HasScope(writeScope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+readScope+" required")
		return "", false
	}
	return claims.Subject, true
}

// authorizeWrite requires the write scope specifically.
func authorizeWrite(w http.ResponseWriter, r *http.Request, writeScope string) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	if !claims.HasScope(writeScope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+writeScope+" required")
		return "", false
	}
	return claims.Subject, true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return false
	}
	return true
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodWeek
	}

	stats, err := h.insights.Statistics(r.Context(), userID, period)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "validation_failed", "period must be week, month, or year")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsResponse(*stats))
}

func (h *Handler) bestResults(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodDay
	}

	best, err := h.insights.BestResults(r.Context(), userID, period)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "validation_failed", "period must be day, week, month, or year")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toBestResultsResponse(*best))
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodWeek
	}

	trends, err := h.insights.Trends(r.Context(), userID, period)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "validation_failed", "period must be week, month, or year")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTrendsResponse(*trends))
}

func (h *Handler) myDay(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	day, err := h.insights.MyDay(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMyDayResponse(*day))
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	entries, next, err := h.insights.Timeline(r.Context(), userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]TimelineEntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toTimelineEntryView(entry))
	}
	writeJSON(w, http.StatusOK, TimelineResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) streakCalendar(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	overview, err := h.streaks.Streaks(r.Context(), userID, r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toStreakOverviewResponse(*overview))
}

func (h *Handler) streakAwards(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	view, err := h.streaks.Awards(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StreakAwardsResponse{
		CurrentStreak: view.CurrentStreak,
		Awards:        toAwardViews(view.Awards),
	})
}

func (h *Handler) streakAwardsByType(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/v1/streaks/awards/")
	if kind == "all" {
		all, err := h.streaks.AllAwards(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, AllStreakAwardsResponse{
			General:   toTypedStreakView(all.General),
			Challenge: toTypedStreakView(all.Challenge),
			Step:      toTypedStreakView(all.Step),
			Workout:   toTypedStreakView(all.Workout),
		})
		return
	}

	typed, err := h.streaks.ByType(r.Context(), userID, domain.StreakType(kind))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStreakType) {
			writeError(w, http.StatusBadRequest, "validation_failed", "unknown streak type")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTypedStreakView(*typed))
}

func (h *Handler) challengeCatalog(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	categories, err := h.challenges.AllChallenges(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toChallengeCategoryViews(categories))
}

// challengeSubtree routes /v1/challenges/{...}: the fixed segments "home" and
// "progress", then {slug}, {slug}/enroll, {slug}/progress, {slug}/status.
func (h *Handler) challengeSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing challenge identifier")
		return
	}

	switch rest {
	case "home":
		h.homeSummary(w, r)
		return
	case "progress":
		h.enrollmentsProgress(w, r)
		return
	}

	slug, action, _ := strings.Cut(rest, "/")
	switch action {
	case "":
		h.challengeDetails(w, r, slug)
	case "enroll":
		h.enroll(w, r, slug)
	case "progress":
		h.challengeProgress(w, r, slug)
	case "status":
		h.updateStatus(w, r, slug)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown challenge action")
	}
}

func (h *Handler) homeSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	items, err := h.challenges.HomeSummary(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toHomeChallengeViews(items))
}

func (h *Handler) enrollmentsProgress(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	items, err := h.challenges.EnrollmentsProgress(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentSummaryViews(items))
}

func (h *Handler) challengeDetails(w http.ResponseWriter, r *http.Request, slug string) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	details, err := h.challenges.Details(r.Context(), slug, userID)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "challenge not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toChallengeDetailsResponse(*details))
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := authorizeWrite(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	details, err := h.challenges.Enroll(r.Context(), userID, slug)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChallengeNotFound):
			writeError(w, http.StatusNotFound, "not_found", "challenge not found")
		case errors.Is(err, domain.ErrAlreadyEnrolled):
			writeError(w, http.StatusConflict, "conflict", "already enrolled in this challenge")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, toChallengeDetailsResponse(*details))
}

func (h *Handler) challengeProgress(w http.ResponseWriter, r *http.Request, slug string) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	progress, err := h.challenges.Progress(r.Context(), userID, slug)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChallengeNotFound):
			writeError(w, http.StatusNotFound, "not_found", "challenge not found")
		case errors.Is(err, domain.ErrEnrollmentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "not enrolled in this challenge")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentProgressResponse(*progress))
}

// UpdateStatusRequest is the payload for PUT /v1/challenges/{slug}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := authorizeWrite(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	err := h.challenges.UpdateStatus(r.Context(), userID, slug, domain.EnrollmentStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChallengeNotFound):
			writeError(w, http.StatusNotFound, "not_found", "challenge not found")
		case errors.Is(err, domain.ErrEnrollmentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "not enrolled in this challenge")
		case errors.Is(err, domain.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "validation_failed", "status must be active or archived")
		case errors.Is(err, domain.ErrEnrollmentCompleted):
			writeError(w, http.StatusConflict, "conflict", "completed enrollments can only be archived")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) achievements(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	userID, ok := authorize(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	items, err := h.challenges.Achievements(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserAchievementViews(items))
}

func (h *Handler) achievementAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/achievements/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || action != "claim" {
		writeError(w, http.StatusNotFound, "not_found", "unknown achievement action")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := authorizeWrite(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	achievement, err := h.challenges.ClaimReward(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAchievementNotFound):
			writeError(w, http.StatusNotFound, "not_found", "achievement not found")
		case errors.Is(err, domain.ErrRewardClaimed):
			writeError(w, http.StatusConflict, "conflict", "reward already claimed")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, toAchievementDetailView(achievement))
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
