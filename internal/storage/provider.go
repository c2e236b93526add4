// Package storage defines the article document store.
package storage

import "github.com/starford/haven/internal/models"

// Provider is the interface for article body files. Ids are filename stems
// inside a single flat content directory.
type Provider interface {
	// List returns every document in lexicographic filename order.
	List() ([]models.DocumentMeta, error)
	// Read returns the body for id. A missing file reports ok=false with no error.
	Read(id string) (body string, ok bool, err error)
	// Write replaces the body for id in a single atomic step.
	Write(id, body string) error
	// Delete removes the document and reports whether it existed.
	Delete(id string) (bool, error)
	// Filename returns the on-disk name for id.
	Filename(id string) string
}
