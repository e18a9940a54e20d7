package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// New constructs the HTTP server with routes and middleware. staticFS serves
// the frontend and, for local deployments, the hosted images; nil disables it.
func New(port string, h Handler, staticFS http.Handler) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/render", func(r chi.Router) {
			r.Post("/sketch", h.RenderSketch)
			r.Post("/moodboard", h.RenderMoodboard)
			r.Post("/text", h.RenderText)
			r.Post("/enhance", h.EnhanceDetails)
		})
		r.Get("/history", h.History)
		r.Get("/moodboards", h.Moodboards)
		r.Post("/suggest/style", h.SuggestStyle)
		r.Get("/events", h.StreamEvents)
	})

	if staticFS != nil {
		router.Handle("/*", staticFS)
	}

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Write timeout must cover a full generation plus the SSE stream,
		// so only the idle timeout is bounded here.
		IdleTimeout: 60 * time.Second,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}
