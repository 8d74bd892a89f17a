package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/starford/novelcipher/internal/chapter"
)

// RouterConfig controls access rules of the API router.
type RouterConfig struct {
	// AuthMode guards write routes. Empty means AuthDisabled.
	AuthMode AuthMode
	Token    string
	// RequestsPerMinute limits read routes per client IP. Zero disables it.
	RequestsPerMinute int
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *chapter.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Reading is open to any viewer.
	r.Group(func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		}
		r.Get("/chapters", h.ListChapters)
		r.Get("/chapters/{number}", h.GetChapter)
		r.Get("/search", h.Search)
		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}
	})

	// Authoring.
	r.Group(func(r chi.Router) {
		mode := cfg.AuthMode
		if mode == "" {
			mode = AuthDisabled
		}
		r.Use(AuthMiddleware(mode, cfg.Token))
		r.Post("/chapters", h.CreateChapter)
		r.Put("/chapters/{number}", h.UpdateChapter)
		r.Delete("/chapters/{number}", h.DeleteChapter)
	})

	return r
}
