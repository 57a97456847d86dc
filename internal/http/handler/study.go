package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"medfocus/internal/auth"
	"medfocus/internal/deck"
	"medfocus/internal/progress"
	"medfocus/internal/srs"

	"github.com/go-chi/chi/v5"
)

type StudyHandler struct {
	Decks    *deck.Service
	Progress *progress.Service
}

// Session returns the cards to study now: the due set, or the whole deck
// when nothing is due.
func (h *StudyHandler) Session(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := deckID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	cards, err := h.Decks.DueCards(r.Context(), uid, id, time.Now())
	if err != nil {
		if errors.Is(err, deck.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"deck_id": id,
		"cards":   cards,
	})
}

type reviewReq struct {
	Grade int `json:"grade"`
}

// Review grades one card, reschedules it, then awards the flashcard XP as
// a side effect. The review is the domain operation; a failed award is
// logged but never undoes the review.
func (h *StudyHandler) Review(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	cardID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req reviewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	now := time.Now()
	res, err := h.Decks.Review(r.Context(), uid, cardID, srs.Grade(req.Grade), now)
	if err != nil {
		switch {
		case errors.Is(err, srs.ErrInvalidGrade):
			http.Error(w, "grade must be between 0 and 5", http.StatusBadRequest)
		case errors.Is(err, deck.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, deck.ErrConflict):
			http.Error(w, "conflict", http.StatusConflict)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	out := map[string]any{
		"card_id":       res.CardID,
		"bucket":        res.Bucket,
		"next_due":      res.NextDue,
		"easiness":      res.Easiness,
		"interval_days": res.IntervalDays,
		"repetitions":   res.Repetitions,
	}

	award, err := h.Progress.Award(r.Context(), uid, progress.AwardInput{
		Activity: progress.ActivityFlashcardReviewed,
	}, now)
	if err != nil {
		log.Printf("flashcard xp award failed for user %d: %v\n", uid, err)
	} else {
		out["xp"] = award
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
