package dom

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for every NotFoundError.
var ErrNotFound = errors.New("no element matched")

// NotFoundError is returned when a locator matches nothing in a snapshot.
// It is an ordinary, retryable outcome: callers resolve inside a poller.
type NotFoundError struct {
	Locator Locator
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element matched %s", e.Locator)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// SelectorError reports a selector that cannot be compiled.
// Retrying never helps, so pollers treat it as permanent.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}

// IsSelectorError reports whether err wraps a SelectorError.
func IsSelectorError(err error) bool {
	var se *SelectorError
	return errors.As(err, &se)
}
