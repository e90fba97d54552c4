package media

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyReference = errors.New("empty media reference")
	ErrHostNotAllowed = errors.New("host is not allowed")
)

// ResolveError means a reference could not be turned into an origin URL.
type ResolveError struct {
	Ref string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Ref, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// UpstreamError means the origin answered with an error instead of media
// bytes. Excerpt holds a short slice of the textual body for diagnostics.
type UpstreamError struct {
	URL     string
	Status  int
	Excerpt string
}

func (e *UpstreamError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("upstream %s returned %d: %s", e.URL, e.Status, e.Excerpt)
	}
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.Status)
}
