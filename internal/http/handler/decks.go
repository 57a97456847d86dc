package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medfocus/internal/auth"
	"medfocus/internal/deck"

	"github.com/go-chi/chi/v5"
)

type DeckHandler struct {
	Svc *deck.Service
}

type createDeckReq struct {
	Name    string   `json:"name"`
	Subject string   `json:"subject"`
	Tags    []string `json:"tags"`
}

func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createDeckReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	d, err := h.Svc.CreateDeck(r.Context(), uid, deck.CreateDeckInput{
		Name:    req.Name,
		Subject: strings.TrimSpace(req.Subject),
		Tags:    req.Tags,
	})
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(deckDTO(d))
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	decks, err := h.Svc.ListDecks(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(decks))
	for _, d := range decks {
		out = append(out, deckDTO(d))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := deckID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch err := h.Svc.DeleteDeck(r.Context(), uid, id); {
	case errors.Is(err, deck.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type addCardReq struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (h *DeckHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := deckID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addCardReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Front = strings.TrimSpace(req.Front)
	req.Back = strings.TrimSpace(req.Back)
	if req.Front == "" || req.Back == "" {
		http.Error(w, "front and back required", http.StatusBadRequest)
		return
	}

	c, err := h.Svc.AddCard(r.Context(), uid, id, deck.AddCardInput{Front: req.Front, Back: req.Back}, time.Now())
	if err != nil {
		if errors.Is(err, deck.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"card_id": c.ID,
		"deck_id": c.DeckID,
		"front":   c.Front,
		"back":    c.Back,
	})
}

// Import accepts a multipart form with a "file" field holding an .xlsx
// workbook (column A front, column B back, header row skipped).
func (h *DeckHandler) Import(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := deckID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	// 10 MiB is plenty for a deck spreadsheet.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.Svc.ImportXLSX(r.Context(), uid, id, file, time.Now())
	if err != nil {
		if errors.Is(err, deck.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "import failed", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func deckDTO(d deck.Deck) map[string]any {
	return map[string]any{
		"deck_id":    d.ID,
		"name":       d.Name,
		"subject":    d.Subject,
		"tags":       []string(d.Tags),
		"created_at": d.CreatedAt,
	}
}

func deckID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}
