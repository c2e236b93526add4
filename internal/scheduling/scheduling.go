// Package scheduling assigns publish dates to articles, one at a time or as
// an evenly spaced batch.
package scheduling

import (
	"context"
	"fmt"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/models"
)

// Saver is the article save primitive the engine writes through.
type Saver interface {
	Save(ctx context.Context, id string, in articleservice.SaveInput) (*models.Article, error)
}

// Engine holds no state of its own.
type Engine struct {
	saver Saver
}

// NewEngine creates a scheduling engine on top of saver.
func NewEngine(saver Saver) *Engine {
	return &Engine{saver: saver}
}

// Schedule marks id as scheduled for date. The date is not checked against
// the current time.
func (e *Engine) Schedule(ctx context.Context, id string, date models.Date) (*models.Article, error) {
	status := models.StatusScheduled
	return e.saver.Save(ctx, id, articleservice.SaveInput{Status: &status, PublishDate: &date})
}

// BulkSchedule gives ids consecutive publish dates: start for the first,
// then intervalDays calendar days after the previous one. Month and year
// boundaries roll over. Dates are truncated to the minute.
//
// On a save failure the items scheduled so far are returned with the error.
func (e *Engine) BulkSchedule(ctx context.Context, ids []string, start *models.Date, intervalDays int) ([]models.ScheduledItem, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: articles are required", apperr.ErrInvalidRequest)
	}
	if start == nil || start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", apperr.ErrInvalidRequest)
	}

	out := make([]models.ScheduledItem, 0, len(ids))
	current := start.Time
	for _, id := range ids {
		date := models.NewDate(current).Truncated()
		if _, err := e.Schedule(ctx, id, date); err != nil {
			return out, fmt.Errorf("scheduling: %s: %w", id, err)
		}
		out = append(out, models.ScheduledItem{ID: id, PublishDate: date})
		current = current.AddDate(0, 0, intervalDays)
	}
	return out, nil
}
