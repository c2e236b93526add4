// Package models defines the domain types for Haven.
package models

import "time"

// Status is a workflow label. Membership in Statuses is the only rule;
// there is no enforced ordering between values.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusDraft, StatusReview, StatusScheduled, StatusPublished}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultWordGoal is the word-count target given to new articles.
const DefaultWordGoal = 1000

// Metadata is the workflow overlay for one article. It is stored apart
// from the document body.
type Metadata struct {
	Status      Status   `json:"status"`
	PublishDate *Date    `json:"publishDate"`
	Sources     []string `json:"sources"`
	WordGoal    int      `json:"wordGoal"`
}

// DefaultMetadata returns the record synthesized for an unseen id.
func DefaultMetadata() Metadata {
	return Metadata{
		Status:   StatusDraft,
		Sources:  []string{},
		WordGoal: DefaultWordGoal,
	}
}

// Clone returns a deep copy so callers never alias overlay state.
func (m Metadata) Clone() Metadata {
	out := m
	if m.PublishDate != nil {
		d := *m.PublishDate
		out.PublishDate = &d
	}
	out.Sources = make([]string, len(m.Sources))
	copy(out.Sources, m.Sources)
	return out
}

// DocumentMeta describes a stored document file.
type DocumentMeta struct {
	ID        string
	Filename  string
	UpdatedAt time.Time
}

// Article is the merged view of a document body and its metadata.
type Article struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	WordCount   int      `json:"wordCount"`
	Status      Status   `json:"status"`
	PublishDate *Date    `json:"publishDate"`
	Sources     []string `json:"sources"`
	WordGoal    int      `json:"wordGoal"`
	Checksum    string   `json:"checksum,omitempty"`
}

// Summary drops the body and sources for list responses.
func (a *Article) Summary() ArticleSummary {
	return ArticleSummary{
		ID:          a.ID,
		Filename:    a.Filename,
		Title:       a.Title,
		WordCount:   a.WordCount,
		Status:      a.Status,
		PublishDate: a.PublishDate,
		WordGoal:    a.WordGoal,
	}
}

// ArticleSummary is a lightweight item returned by list operations.
type ArticleSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	WordCount   int       `json:"wordCount"`
	Status      Status    `json:"status"`
	PublishDate *Date     `json:"publishDate"`
	WordGoal    int       `json:"wordGoal"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// ScheduledItem pairs an article with the date a bulk schedule assigned it.
type ScheduledItem struct {
	ID          string `json:"id"`
	PublishDate Date   `json:"publishDate"`
}

// Reminder titles.
const (
	ReminderTomorrow = "Publishing Tomorrow"
	ReminderWeek     = "Publishing in 1 Week"
)

// Reminder is a notification emitted ahead of an article's publish date.
type Reminder struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	ArticleID string `json:"articleId"`
	Article   string `json:"article"`
	Date      Date   `json:"date"`
}
