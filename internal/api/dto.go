package api

import (
	"fmt"
	"strings"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/models"
)

// CreateArticleRequest is the request body for creating an article.
type CreateArticleRequest struct {
	ID      string `json:"id" example:"launch-post" validate:"required"`
	Title   string `json:"title" example:"Launch Post"`
	Content string `json:"content" example:"# Launch Post\n\nStart writing..."`
}

// SaveArticleRequest is a partial update. Omitted fields are left unchanged;
// an empty publishDate clears the date.
type SaveArticleRequest struct {
	Title       *string        `json:"title" example:"New Title"`
	Content     *string        `json:"content" example:"# New Title\n\nBody"`
	Status      *models.Status `json:"status" example:"review"`
	Sources     []string       `json:"sources"`
	PublishDate *string        `json:"publishDate" example:"2024-06-10T09:00"`
	WordGoal    *int           `json:"wordGoal" example:"1500"`
}

// Input converts the request into a service update.
func (r SaveArticleRequest) Input() (articleservice.SaveInput, error) {
	in := articleservice.SaveInput{
		Title:    r.Title,
		Content:  r.Content,
		Status:   r.Status,
		Sources:  r.Sources,
		WordGoal: r.WordGoal,
	}
	if r.PublishDate != nil {
		d, err := parseDate(*r.PublishDate)
		if err != nil {
			return in, err
		}
		in.PublishDate = d
		in.ClearPublishDate = d == nil
	}
	return in, nil
}

// SetStatusRequest is the request body for a status change.
type SetStatusRequest struct {
	Status      models.Status `json:"status" example:"scheduled" validate:"required"`
	PublishDate string        `json:"publishDate" example:"2024-06-10T09:00"`
}

// ScheduleRequest is the request body for scheduling one article.
type ScheduleRequest struct {
	PublishDate string `json:"publishDate" example:"2024-06-10T09:00" validate:"required"`
}

// BulkScheduleRequest is the request body for scheduling many articles.
type BulkScheduleRequest struct {
	Articles     []string `json:"articles" validate:"required"`
	StartDate    string   `json:"startDate" example:"2024-06-10T09:00" validate:"required"`
	IntervalDays *int     `json:"intervalDays" example:"1"`
}

// AssistRequest is the request body for the writing assistant.
type AssistRequest struct {
	Action  string            `json:"action" example:"improve" validate:"required"`
	Text    string            `json:"text"`
	Options map[string]string `json:"options"`
}

// ArticleResponse wraps a single article after a write.
type ArticleResponse struct {
	Success bool            `json:"success"`
	Article *models.Article `json:"article"`
}

// StatusResponse is returned by the status endpoints.
type StatusResponse struct {
	Success     bool          `json:"success,omitempty"`
	Status      models.Status `json:"status"`
	PublishDate *models.Date  `json:"publishDate,omitempty"`
}

// ScheduleResponse is returned after scheduling one article.
type ScheduleResponse struct {
	Success     bool        `json:"success"`
	PublishDate models.Date `json:"publishDate"`
}

// BulkScheduleResponse lists the assigned dates in request order.
type BulkScheduleResponse struct {
	Success   bool                   `json:"success"`
	Scheduled []models.ScheduledItem `json:"scheduled"`
}

// NotificationsResponse wraps pending reminders.
type NotificationsResponse struct {
	Notifications []models.Reminder `json:"notifications"`
}

// AssistResponse carries a suggestion: a string, or a list for headlines.
type AssistResponse struct {
	Suggestion any    `json:"suggestion"`
	Action     string `json:"action"`
}

// MessageResponse is a plain success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Port   int    `json:"port" example:"3003"`
}

func parseDate(s string) (*models.Date, error) {
	d, err := models.ParseOptionalDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", apperr.ErrInvalidRequest, strings.TrimSpace(s))
	}
	return d, nil
}
