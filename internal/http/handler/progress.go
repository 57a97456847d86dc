package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medfocus/internal/auth"
	"medfocus/internal/progress"
)

type ProgressHandler struct {
	Svc *progress.Service
}

func (h *ProgressHandler) Overview(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	o, err := h.Svc.Overview(r.Context(), uid, time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(o)
}

type awardReq struct {
	Activity    string  `json:"activity"`
	Description *string `json:"description"`
}

// Award records one XP-earning action. The activity decides the amount;
// callers cannot supply their own point values.
func (h *ProgressHandler) Award(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req awardReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Activity = strings.TrimSpace(strings.ToLower(req.Activity))

	res, err := h.Svc.Award(r.Context(), uid, progress.AwardInput{
		Activity:    progress.Activity(req.Activity),
		Description: req.Description,
	}, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrUnknownActivity), errors.Is(err, progress.ErrInvalidAmount):
			http.Error(w, "invalid activity", http.StatusBadRequest)
		case errors.Is(err, progress.ErrConflict):
			http.Error(w, "conflict", http.StatusConflict)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

type xpEventDTO struct {
	ID          uint64    `json:"id"`
	Activity    string    `json:"activity"`
	XpEarned    int       `json:"xp_earned"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	evs, err := h.Svc.History(r.Context(), uid, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]xpEventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, xpEventDTO{
			ID:          e.ID,
			Activity:    e.Activity,
			XpEarned:    e.XpEarned,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	period := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("period")))
	if period == "" {
		period = string(progress.PeriodWeekly)
	}

	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.Svc.Leaderboard(r.Context(), progress.Period(period), limit, time.Now())
	if err != nil {
		if errors.Is(err, progress.ErrInvalidPeriod) {
			http.Error(w, "period must be weekly, monthly or alltime", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
