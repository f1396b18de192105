package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPersist marks a durable write that failed after the in-memory state
	// had already changed. The in-memory state stays authoritative.
	ErrPersist = errors.New("persist failed")

	// ErrInvalidPreference is returned when a preference value is outside its
	// closed set.
	ErrInvalidPreference = errors.New("invalid preference")

	// ErrUnknownCity is returned when a city name is not in the catalog.
	ErrUnknownCity = errors.New("unknown city")
)

// FetchError reports a failed remote weather lookup. No state was changed.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather fetch failed: %s", e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }
