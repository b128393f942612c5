package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/session"
)

// NewRouter creates a chi router with all API routes mounted. Writes are
// gated by sessions. events, if non-nil, is mounted at GET /events.
func NewRouter(svc *content.Service, sessions session.Registry, events http.Handler) chi.Router {
	h := NewHandler(svc, sessions)

	r := chi.NewRouter()
	r.Use(NoStore)

	r.Get("/content/{page}", h.GetContent)
	r.Put("/content/{page}", h.SaveContent)

	r.Post("/auth/login", h.Login)
	r.Get("/auth/verify", h.Verify)
	r.Post("/auth/logout", h.Logout)

	r.Get("/pages", h.ListPages)
	r.Get("/search", h.Search)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
