package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork covers connection failures, non-2xx statuses and unreadable bodies.
	ErrNetwork = errors.New("catalog request failed")
	// ErrParse means the payload was malformed or lacked a required field.
	ErrParse = errors.New("catalog response malformed")
	// ErrNotFound means the catalog reported no such resource.
	ErrNotFound = errors.New("catalog resource not found")
	// ErrNilPreferences is returned when a recommendation is requested without a preference set.
	ErrNilPreferences = errors.New("preference set is nil")
)

// StatusError is returned when the catalog answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API returned status %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// Is lets callers match a StatusError against ErrNetwork and, for 404, ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// ItemError records a list entry that could not be normalized.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
