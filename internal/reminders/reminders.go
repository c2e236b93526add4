// Package reminders computes publishing reminders from article publish dates.
package reminders

import (
	"context"
	"math"
	"time"

	"github.com/starford/haven/internal/models"
)

// ReminderType is the type of every emitted reminder.
const ReminderType = "reminder"

// Lister is the article list primitive reminders are computed from.
type Lister interface {
	List(ctx context.Context) ([]models.ArticleSummary, error)
}

// Engine holds no state of its own.
type Engine struct {
	lister Lister
}

// NewEngine creates a reminder engine on top of lister.
func NewEngine(lister Lister) *Engine {
	return &Engine{lister: lister}
}

// Pending returns the reminders due at now. An article gets one when its
// publish date is exactly 1 or 7 whole days away on the wall clock, where
// whole days is the floor of the difference. Any other distance, past dates included, yields
// nothing, so a check that skips a day misses that reminder.
func (e *Engine) Pending(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	articles, err := e.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Reminder{}
	for _, a := range articles {
		if a.PublishDate == nil {
			continue
		}
		var title string
		switch DaysUntil(now, a.PublishDate.Time) {
		case 1:
			title = models.ReminderTomorrow
		case 7:
			title = models.ReminderWeek
		default:
			continue
		}
		out = append(out, models.Reminder{
			Type:      ReminderType,
			Title:     title,
			ArticleID: a.ID,
			Article:   a.Title,
			Date:      *a.PublishDate,
		})
	}
	return out, nil
}

// DaysUntil returns the floor of the wall-clock distance from now to target
// in days. target is viewed in now's location and both are compared as
// zone-less clock readings, so a DST shift between them does not shorten or
// lengthen a day.
func DaysUntil(now, target time.Time) int {
	target = target.In(now.Location())
	return int(math.Floor(wallClock(target).Sub(wallClock(now)).Hours() / 24))
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
