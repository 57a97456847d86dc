package http

import (
	"net/http"

	"medfocus/internal/auth"
	"medfocus/internal/config"
	"medfocus/internal/deck"
	"medfocus/internal/http/handler"
	mw "medfocus/internal/http/middleware"
	"medfocus/internal/progress"
	"medfocus/internal/srs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	deckSvc := &deck.Service{DB: db, Params: srs.DefaultParams()}
	progressSvc := &progress.Service{DB: db, Awards: progress.DefaultAwards()}

	deckH := &handler.DeckHandler{Svc: deckSvc}
	studyH := &handler.StudyHandler{Decks: deckSvc, Progress: progressSvc}
	progressH := &handler.ProgressHandler{Svc: progressSvc}

	r.Route("/decks", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", deckH.Create)
		r.Get("/", deckH.List)

		r.Delete("/{id}", deckH.Delete)
		r.Post("/{id}/cards", deckH.AddCard)
		r.Post("/{id}/import", deckH.Import)
		r.Get("/{id}/study", studyH.Session)
	})

	r.With(auth.RequireAuth(jwtSvc)).Post("/cards/{id}/review", studyH.Review)

	r.Route("/progress", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", progressH.Overview)
		r.Post("/xp", progressH.Award)
		r.Get("/history", progressH.History)
	})

	// The board is readable without auth so classroom screens can embed it.
	r.Get("/leaderboard", progressH.Leaderboard)

	return r
}
