// Package failure classifies why a test case failed.
//
// Every error that ends a case is converted into a *Failure before it is
// reported. The Kind tells a reader what went wrong without parsing the
// message: a locator that never matched, an element that could not be
// acted on, an assertion that never held, a budget that ran out, a setup
// hook that failed, or an unexpected driver error.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uispec/internal/poll"
)

// Kind categorizes a case failure.
type Kind string

const (
	// KindNotFound indicates a locator matched nothing within the poll budget.
	KindNotFound Kind = "NotFound"

	// KindNotActionable indicates the element existed but could not be
	// interacted with and force was not set.
	KindNotActionable Kind = "NotActionable"

	// KindAssertionTimeout indicates an expectation never held within budget.
	KindAssertionTimeout Kind = "AssertionTimeout"

	// KindTimeout indicates a budget ran out for any other reason, including
	// the suite-wide timeout aborting a case.
	KindTimeout Kind = "Timeout"

	// KindHookFailed indicates a before hook failed, so the case never ran.
	KindHookFailed Kind = "HookFailed"

	// KindSkipped indicates the case was not run because the run bailed.
	KindSkipped Kind = "Skipped"

	// KindError indicates an unexpected driver or step error.
	KindError Kind = "Error"
)

// Failure is the structured reason a case failed.
type Failure struct {
	// Kind identifies the failure category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Step describes the step that failed, e.g. `click text "Save"`.
	Step string

	// Locator is the rendered locator involved, if any.
	Locator string

	// Expected and Actual are set for assertion failures.
	Expected string
	Actual   string

	// Attempts and Elapsed describe the poll that gave up.
	Attempts int
	Elapsed  time.Duration

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Step != "" {
		return fmt.Sprintf("%s: %s (step=%s)", f.Kind, f.Message, f.Step)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// WithStep returns a copy of f attributed to step.
func (f *Failure) WithStep(step string) *Failure {
	c := *f
	c.Step = step
	return &c
}

// New creates a failure of the given kind.
func New(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a failure of the given kind around err.
func Wrap(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error(), Err: err}
}

// NewAssertionTimeout creates the failure for an expectation that never held.
func NewAssertionTimeout(locator, expected, actual string, te *poll.TimeoutError) *Failure {
	f := &Failure{
		Kind:     KindAssertionTimeout,
		Message:  fmt.Sprintf("expected %s to %s, but saw %s", locator, expected, actual),
		Locator:  locator,
		Expected: expected,
		Actual:   actual,
	}
	if te != nil {
		f.Attempts = te.Attempts
		f.Elapsed = te.Elapsed
		f.Err = te
		if te.Aborted() {
			f.Kind = KindTimeout
			f.Message = "aborted: " + f.Message
		}
	}
	return f
}

// NewHookFailed escalates a hook error to the cases in the hook's scope.
func NewHookFailed(hook string, err error) *Failure {
	msg := fmt.Sprintf("before hook %q failed", hook)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Failure{Kind: KindHookFailed, Message: msg, Step: hook, Err: err}
}

// NewSkipped marks a case that never ran.
func NewSkipped(reason string) *Failure {
	return &Failure{Kind: KindSkipped, Message: "not run: " + reason}
}

// From converts any error into a *Failure. Existing failures are returned
// as is; poll timeouts and context errors become KindTimeout; everything
// else is KindError.
func From(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var te *poll.TimeoutError
	if errors.As(err, &te) {
		return &Failure{
			Kind:     KindTimeout,
			Message:  err.Error(),
			Attempts: te.Attempts,
			Elapsed:  te.Elapsed,
			Err:      err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(KindTimeout, err)
	}
	return Wrap(KindError, err)
}

// KindOf returns the kind of err, or "" for a nil error.
func KindOf(err error) Kind {
	if f := From(err); f != nil {
		return f.Kind
	}
	return ""
}

// ParseKind maps a stored kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown failure kind %q", s)
}

// Kinds lists every kind in reporting order.
func Kinds() []Kind {
	return []Kind{
		KindNotFound,
		KindNotActionable,
		KindAssertionTimeout,
		KindTimeout,
		KindHookFailed,
		KindSkipped,
		KindError,
	}
}

// IsNotFound returns true if err is a NotFound failure.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsNotActionable returns true if err is a NotActionable failure.
func IsNotActionable(err error) bool { return is(err, KindNotActionable) }

// IsAssertionTimeout returns true if err is an AssertionTimeout failure.
func IsAssertionTimeout(err error) bool { return is(err, KindAssertionTimeout) }

// IsTimeout returns true if err is a Timeout failure.
func IsTimeout(err error) bool { return is(err, KindTimeout) }

// IsHookFailed returns true if err is a HookFailed failure.
func IsHookFailed(err error) bool { return is(err, KindHookFailed) }

func is(err error, kind Kind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
