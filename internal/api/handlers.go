package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/assist"
	"github.com/starford/haven/internal/checksum"
	"github.com/starford/haven/internal/reminders"
	"github.com/starford/haven/internal/scheduling"
)

// Notifier is told about metadata-only changes. Document file changes are
// reported by the content watcher instead.
type Notifier interface {
	PublishArticleEvent(kind, id string)
}

// Deps are the services behind the API.
type Deps struct {
	Articles  *articleservice.Service
	Scheduler *scheduling.Engine
	Reminders *reminders.Engine
	Assistant assist.Generator
	Notifier  Notifier
	Port      int
}

// Handler holds API route handlers.
type Handler struct {
	svc       *articleservice.Service
	scheduler *scheduling.Engine
	reminders *reminders.Engine
	assistant assist.Generator
	notifier  Notifier
	port      int
	now       func() time.Time
}

// NewHandler creates a new Handler. A nil Assistant falls back to the
// placeholder generator.
func NewHandler(d Deps) *Handler {
	gen := d.Assistant
	if gen == nil {
		gen = assist.Placeholder{}
	}
	return &Handler{
		svc:       d.Articles,
		scheduler: d.Scheduler,
		reminders: d.Reminders,
		assistant: gen,
		notifier:  d.Notifier,
		port:      d.Port,
		now:       time.Now,
	}
}

func (h *Handler) changed(ids ...string) {
	if h.notifier == nil {
		return
	}
	for _, id := range ids {
		h.notifier.PublishArticleEvent("updated", id)
	}
}

// Health handles GET /api/health.
//
//	@Summary		Liveness probe
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Port: h.port})
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List article summaries ordered by filename
//	@Tags			articles
//	@Produce		json
//	@Success		200	{array}	models.ArticleSummary
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetArticle handles GET /api/articles/{id}.
//
//	@Summary		Get a single article
//	@Tags			articles
//	@Produce		json
//	@Param			id				path		string	true	"Article id"
//	@Param			If-None-Match	header		string	false	"Checksum from a previous ETag"
//	@Success		200				{object}	models.Article
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get article", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(a.Checksum))
	if match := r.Header.Get("If-None-Match"); match != "" && checksum.Matches(match, a.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetStatus handles GET /api/articles/status/{id}.
//
//	@Summary		Get the workflow status of an article
//	@Tags			articles
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/articles/status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeError(w, "get status", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: st})
}

// CreateArticle handles POST /api/articles.
//
//	@Summary		Create a draft article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateArticleRequest	true	"Article to create"
//	@Success		201		{object}	ArticleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles [post]
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Article ID required"))
		return
	}
	a, err := h.svc.Create(r.Context(), req.ID, req.Title, req.Content)
	if err != nil {
		writeError(w, "create article", err, slog.String("id", req.ID))
		return
	}
	writeJSON(w, http.StatusCreated, ArticleResponse{Success: true, Article: a})
}

// UpdateArticle handles POST|PUT /api/articles/{id}/update.
//
//	@Summary		Partially update an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Article id"
//	@Param			body	body		SaveArticleRequest	true	"Fields to change"
//	@Success		200		{object}	ArticleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/update [post]
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SaveArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, "update article", err)
		return
	}
	a, err := h.svc.Save(r.Context(), id, in)
	if err != nil {
		writeError(w, "update article", err, slog.String("id", id))
		return
	}
	if in.Content == nil {
		h.changed(id)
	}
	writeJSON(w, http.StatusOK, ArticleResponse{Success: true, Article: a})
}

// SetStatus handles POST|PUT /api/articles/{id}/status.
//
//	@Summary		Change the workflow status
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Article id"
//	@Param			body	body		SetStatusRequest	true	"New status"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/status [post]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate(req.PublishDate)
	if err != nil {
		writeError(w, "set status", err)
		return
	}
	res, err := h.svc.SetStatus(r.Context(), id, req.Status, date)
	if err != nil {
		writeError(w, "set status", err, slog.String("id", id))
		return
	}
	h.changed(id)
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Status: res.Status, PublishDate: res.PublishDate})
}

// ScheduleArticle handles POST|PUT /api/articles/{id}/schedule.
//
//	@Summary		Schedule an article for publication
//	@Tags			schedule
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Article id"
//	@Param			body	body		ScheduleRequest	true	"Publish date"
//	@Success		200		{object}	ScheduleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/schedule [post]
func (h *Handler) ScheduleArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate(req.PublishDate)
	if err != nil {
		writeError(w, "schedule article", err)
		return
	}
	if date == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Publish date required"))
		return
	}
	if _, err := h.scheduler.Schedule(r.Context(), id, *date); err != nil {
		writeError(w, "schedule article", err, slog.String("id", id))
		return
	}
	h.changed(id)
	writeJSON(w, http.StatusOK, ScheduleResponse{Success: true, PublishDate: *date})
}

// BulkSchedule handles POST /api/bulk-schedule.
//
//	@Summary		Schedule articles at a fixed day interval
//	@Tags			schedule
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BulkScheduleRequest	true	"Articles and start date"
//	@Success		200		{object}	BulkScheduleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bulk-schedule [post]
func (h *Handler) BulkSchedule(w http.ResponseWriter, r *http.Request) {
	var req BulkScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Articles) == 0 || strings.TrimSpace(req.StartDate) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Articles and start date required"))
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, "bulk schedule", err)
		return
	}
	interval := 1
	if req.IntervalDays != nil {
		interval = *req.IntervalDays
	}

	items, err := h.scheduler.BulkSchedule(r.Context(), req.Articles, start, interval)
	for _, it := range items {
		h.changed(it.ID)
	}
	if err != nil {
		writeError(w, "bulk schedule", err, slog.Int("scheduled", len(items)))
		return
	}
	writeJSON(w, http.StatusOK, BulkScheduleResponse{Success: true, Scheduled: items})
}

// Notifications handles GET|POST /api/notifications.
//
//	@Summary		Pending publishing reminders
//	@Tags			schedule
//	@Produce		json
//	@Success		200	{object}	NotificationsResponse
//	@Security		BearerAuth
//	@Router			/notifications [get]
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.reminders.Pending(r.Context(), h.now())
	if err != nil {
		writeError(w, "pending reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: list})
}

// Assist handles POST /api/ai.
//
//	@Summary		Writing assistant suggestion
//	@Tags			assist
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssistRequest	true	"Action and text"
//	@Success		200		{object}	AssistResponse
//	@Security		BearerAuth
//	@Router			/ai [post]
func (h *Handler) Assist(w http.ResponseWriter, r *http.Request) {
	var req AssistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.assistant.Generate(r.Context(), req.Action, req.Text, req.Options)
	if err != nil {
		writeError(w, "assist", err, slog.String("action", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, AssistResponse{Suggestion: s.Value(), Action: req.Action})
}

// DeleteArticle handles DELETE /api/articles/{id}.
//
//	@Summary		Delete an article and its metadata
//	@Tags			articles
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [delete]
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existed, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete article", err, slog.String("id", id))
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, errorBody("Article not found"))
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Article deleted"})
}
