package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Typed errors below unwrap to these so callers can use
// errors.Is without caring about the concrete type.
var (
	// ErrConfiguration marks invalid configuration. Fatal: surfaced before
	// any version operation begins.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnknownFormatKey is returned when an explicitly requested format
	// key is absent from the catalog.
	ErrUnknownFormatKey = errors.New("unknown format key")

	// ErrMissingField is returned when a template references a placeholder
	// the caller supplied no value for.
	ErrMissingField = errors.New("missing field")

	// ErrNotFound is returned when a version or project is not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a version whose name is
	// already taken.
	ErrAlreadyExists = errors.New("version already exists")

	// ErrRateLimited is returned when the tracker rate limits requests.
	ErrRateLimited = errors.New("rate limited by tracker")

	// ErrUpstreamDown is returned when the tracker is unavailable.
	ErrUpstreamDown = errors.New("issue tracker unavailable")
)

// UnknownFormatKeyError wraps ErrUnknownFormatKey with the offending key.
type UnknownFormatKeyError struct {
	Key string
}

func (e *UnknownFormatKeyError) Error() string {
	return fmt.Sprintf("unknown format key %q", e.Key)
}

func (e *UnknownFormatKeyError) Unwrap() error {
	return ErrUnknownFormatKey
}

// MissingFieldError wraps ErrMissingField with the placeholder and format
// that required it.
type MissingFieldError struct {
	Placeholder string
	FormatKey   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("format %q: no value supplied for placeholder %s", e.FormatKey, e.Placeholder)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// APIError represents an error response from the issue tracker.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
	RetryAfter int // seconds, from the Retry-After header; 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// Unwrap maps well-known status codes onto the package sentinels so callers
// can use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 404:
		return ErrNotFound
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrUpstreamDown
	default:
		return nil
	}
}
