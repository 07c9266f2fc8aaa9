package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySlug signals that no identifier could be derived for an article.
	ErrEmptySlug = errors.New("empty slug")
	// ErrDuplicateSlug is returned by sinks when the slug is already stored.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrMalformedOutput is returned when generated text has no title or body.
	ErrMalformedOutput = errors.New("malformed generation output")
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrNoWorkUnits is returned when the city source yields nothing.
	ErrNoWorkUnits = errors.New("no work units available")
)

// GenerationError is the terminal failure of one generation job.
type GenerationError struct {
	CityID   string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate city %s after %d attempts: %v", e.CityID, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
