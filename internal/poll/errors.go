package poll

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports a poll budget spent without the condition holding.
//
// Last is the mismatch from the final attempt (nil if no attempt ran).
// Cause is set when polling stopped because the context was cancelled or
// hit its own deadline, e.g. a suite-wide timeout.
type TimeoutError struct {
	Last     error
	Cause    error
	Attempts int
	Timeout  time.Duration
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	verb := "timed out"
	if e.Cause != nil {
		verb = "aborted"
	}
	msg := fmt.Sprintf("%s after %s (%d attempts)", verb, e.Elapsed.Round(time.Millisecond), e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Unwrap exposes both the last mismatch and the cancellation cause to
// errors.Is and errors.As.
func (e *TimeoutError) Unwrap() []error {
	var errs []error
	if e.Last != nil {
		errs = append(errs, e.Last)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Aborted reports whether polling stopped because of the context rather
// than the poller's own budget.
func (e *TimeoutError) Aborted() bool {
	return e.Cause != nil
}

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying: Poll returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
