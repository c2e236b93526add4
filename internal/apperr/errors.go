// Package apperr defines the error kinds surfaced by the article core.
package apperr

import "errors"

var (
	// ErrNotFound means no document exists for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus means a status outside draft, review, scheduled, published.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidRequest means malformed input, e.g. an empty bulk schedule.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrIO wraps underlying storage failures.
	ErrIO = errors.New("io failure")
)
