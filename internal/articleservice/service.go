// Package articleservice merges document bodies with workflow metadata and
// owns every mutating article operation.
package articleservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/checksum"
	"github.com/starford/haven/internal/metadata"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/parser"
	"github.com/starford/haven/internal/storage"
)

// DefaultContent is the body given to articles created without one.
const DefaultContent = "Start writing..."

// SaveInput is a partial update. Nil fields are left unchanged; a nil
// Content leaves the document file untouched.
type SaveInput struct {
	Title   *string        `json:"title"`
	Content *string        `json:"content"`
	Status  *models.Status `json:"status"`
	// Sources replaces the list when non-nil; an empty slice clears it.
	Sources     []string     `json:"sources"`
	PublishDate *models.Date `json:"publishDate"`
	// ClearPublishDate removes the publish date. It wins over PublishDate.
	ClearPublishDate bool `json:"-"`
	WordGoal         *int `json:"wordGoal"`
}

// Validate checks field values. Status is held to the fixed set here too,
// not only in SetStatus.
func (in SaveInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Status, validation.When(in.Status != nil, validation.By(statusRule))),
		validation.Field(&in.Sources, validation.Each(validation.Required)),
		validation.Field(&in.WordGoal, validation.When(in.WordGoal != nil, validation.Required, validation.Min(1))),
	)
}

func statusRule(value interface{}) error {
	s, _ := value.(*models.Status)
	if s == nil || !s.Valid() {
		return apperr.ErrInvalidStatus
	}
	return nil
}

// StatusResult is returned by SetStatus.
type StatusResult struct {
	Status      models.Status `json:"status"`
	PublishDate *models.Date  `json:"publishDate"`
}

// Service coordinates the document store and the metadata overlay.
type Service struct {
	store   storage.Provider
	overlay *metadata.Overlay
	logger  *slog.Logger
}

// NewService creates a new article service.
func NewService(store storage.Provider, overlay *metadata.Overlay, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, overlay: overlay, logger: logger}
}

// List returns summaries for every stored document in filename order.
// A document that cannot be read is logged and skipped.
func (s *Service) List(_ context.Context) ([]models.ArticleSummary, error) {
	docs, err := s.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.ArticleSummary, 0, len(docs))
	for _, d := range docs {
		body, ok, err := s.store.Read(d.ID)
		if err != nil {
			s.logger.Warn("list: read failed", slog.String("id", d.ID), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}
		sum := s.merge(d.ID, body).Summary()
		sum.UpdatedAt = d.UpdatedAt
		out = append(out, sum)
	}
	return out, nil
}

// Get returns the merged article, or apperr.ErrNotFound when no document
// exists for id even if metadata does.
func (s *Service) Get(_ context.Context, id string) (*models.Article, error) {
	body, ok, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.merge(id, body), nil
}

// Save applies a partial update and returns the merged article.
func (s *Service) Save(_ context.Context, id string, in SaveInput) (*models.Article, error) {
	if err := storage.ValidateID(id); err != nil {
		return nil, err
	}
	if err := classify(in.Validate()); err != nil {
		return nil, err
	}

	if in.Content != nil {
		body := *in.Content
		if in.Title != nil && *in.Title != "" {
			body = parser.RewriteTitle(body, *in.Title)
		}
		if err := s.store.Write(id, body); err != nil {
			return nil, err
		}
	}

	if _, err := s.overlay.Update(id, func(md *models.Metadata) error {
		if in.Status != nil {
			md.Status = *in.Status
		}
		if in.Sources != nil {
			md.Sources = append([]string{}, in.Sources...)
		}
		if in.PublishDate != nil {
			d := *in.PublishDate
			md.PublishDate = &d
		}
		if in.ClearPublishDate {
			md.PublishDate = nil
		}
		if in.WordGoal != nil {
			md.WordGoal = *in.WordGoal
		}
		return nil
	}); err != nil {
		return nil, err
	}

	body, _, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	return s.merge(id, body), nil
}

// Create writes a new draft, filling in a default title and body.
// An existing document under id is overwritten. The body goes through the
// same title rewrite as a titled Save.
func (s *Service) Create(ctx context.Context, id, title, content string) (*models.Article, error) {
	if title == "" {
		title = parser.Untitled
	}
	if content == "" {
		content = "# " + title + "\n\n" + DefaultContent
	}
	draft := models.StatusDraft
	return s.Save(ctx, id, SaveInput{Title: &title, Content: &content, Status: &draft})
}

// SetStatus moves id to status. A nil publishDate keeps the previous one;
// this operation never clears it.
func (s *Service) SetStatus(_ context.Context, id string, status models.Status, publishDate *models.Date) (*StatusResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidStatus, status)
	}
	if err := storage.ValidateID(id); err != nil {
		return nil, err
	}
	md, err := s.overlay.Update(id, func(md *models.Metadata) error {
		md.Status = status
		if publishDate != nil {
			d := *publishDate
			md.PublishDate = &d
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &StatusResult{Status: md.Status, PublishDate: md.PublishDate}, nil
}

// Status returns the workflow status for id, synthesizing defaults.
func (s *Service) Status(_ context.Context, id string) (models.Status, error) {
	if err := storage.ValidateID(id); err != nil {
		return "", err
	}
	return s.overlay.Get(id).Status, nil
}

// Delete removes the document and evicts its metadata. It reports whether
// a document existed.
func (s *Service) Delete(_ context.Context, id string) (bool, error) {
	existed, err := s.store.Delete(id)
	if err != nil {
		return false, err
	}
	if err := s.overlay.Delete(id); err != nil {
		return existed, err
	}
	return existed, nil
}

func (s *Service) merge(id, body string) *models.Article {
	md := s.overlay.Get(id)
	return &models.Article{
		ID:          id,
		Filename:    s.store.Filename(id),
		Title:       parser.Title(body),
		Content:     body,
		WordCount:   parser.WordCount(body),
		Status:      md.Status,
		PublishDate: md.PublishDate,
		Sources:     md.Sources,
		WordGoal:    md.WordGoal,
		Checksum:    checksum.String(body),
	}
}

// classify maps validation failures onto apperr kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		if _, ok := verrs["status"]; ok {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidStatus, err)
		}
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
}
