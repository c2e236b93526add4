package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; the health
// check is always public. sseHandler, if non-nil, is mounted at GET /events
// inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Get("/articles", h.ListArticles)
		r.Post("/articles", h.CreateArticle)
		r.Get("/articles/status/{id}", h.GetStatus)
		r.Get("/articles/{id}", h.GetArticle)
		r.Delete("/articles/{id}", h.DeleteArticle)

		// PUT is accepted wherever POST is.
		for _, m := range []string{http.MethodPost, http.MethodPut} {
			r.Method(m, "/articles/{id}/update", http.HandlerFunc(h.UpdateArticle))
			r.Method(m, "/articles/{id}/status", http.HandlerFunc(h.SetStatus))
			r.Method(m, "/articles/{id}/schedule", http.HandlerFunc(h.ScheduleArticle))
		}

		r.Post("/bulk-schedule", h.BulkSchedule)
		r.Get("/notifications", h.Notifications)
		r.Post("/notifications", h.Notifications)
		r.Post("/ai", h.Assist)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
