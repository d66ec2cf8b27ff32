// Package poll evaluates a condition repeatedly until it holds or a time
// budget runs out.
//
// The page under test renders asynchronously, so every locator resolution
// and assertion runs inside a Poller. Polling is cooperative: between
// attempts the caller's goroutine blocks on a timer or on context
// cancellation, never on a busy loop.
//
// Timing guarantees:
//   - the condition is evaluated immediately, then once per Interval
//   - a final evaluation happens at the deadline, so a condition that turns
//     true before Timeout is always observed
//   - wall time never exceeds Timeout plus one Interval (plus the cost of
//     the last evaluation)
package poll

import (
	"context"
	"errors"
	"time"
)

// Defaults mirror the usual browser test runner budgets.
const (
	DefaultTimeout  = 4 * time.Second
	DefaultInterval = 50 * time.Millisecond
)

// Options configures a polling budget. Zero fields take defaults.
type Options struct {
	// Timeout is the overall budget (timeoutMs).
	Timeout time.Duration
	// Interval is the spacing between attempts (intervalMs).
	Interval time.Duration
}

// WithDefaults fills zero fields from the package defaults.
func (o Options) WithDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Merge overrides o with the non-zero fields of other.
func (o Options) Merge(other Options) Options {
	if other.Timeout > 0 {
		o.Timeout = other.Timeout
	}
	if other.Interval > 0 {
		o.Interval = other.Interval
	}
	return o
}

// FromMillis builds Options from the millisecond settings used in config
// and suite files.
func FromMillis(timeoutMs, intervalMs int) Options {
	return Options{
		Timeout:  time.Duration(timeoutMs) * time.Millisecond,
		Interval: time.Duration(intervalMs) * time.Millisecond,
	}
}

// Func is one poll tick. Returning nil ends polling successfully; any other
// error is recorded as the latest mismatch and polling continues, unless it
// was wrapped with Permanent.
type Func func(ctx context.Context) error

// Poller runs Funcs under a time budget.
type Poller struct {
	clock Clock
	opts  Options
}

// New creates a Poller. A nil clock uses wall time.
func New(opts Options, clock Clock) *Poller {
	if clock == nil {
		clock = RealClock{}
	}
	return &Poller{clock: clock, opts: opts.WithDefaults()}
}

// Options returns the effective budget.
func (p *Poller) Options() Options {
	return p.opts
}

// Clock returns the clock the poller waits on.
func (p *Poller) Clock() Clock {
	return p.clock
}

// With returns a poller sharing the clock with overrides applied.
func (p *Poller) With(overrides Options) *Poller {
	return &Poller{clock: p.clock, opts: p.opts.Merge(overrides)}
}

// Poll evaluates fn until it succeeds, fails permanently or the budget is
// spent. Exhaustion and cancellation both return a *TimeoutError carrying
// the last mismatch observed.
func (p *Poller) Poll(ctx context.Context, fn Func) error {
	start := p.clock.Now()
	deadline := start.Add(p.opts.Timeout)

	var last error
	attempts := 0
	timeout := func(cause error) error {
		return &TimeoutError{
			Last:     last,
			Cause:    cause,
			Attempts: attempts,
			Timeout:  p.opts.Timeout,
			Elapsed:  p.clock.Now().Sub(start),
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return timeout(err)
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		last = err

		now := p.clock.Now()
		if !now.Before(deadline) {
			return timeout(nil)
		}

		wait := p.opts.Interval
		if remaining := deadline.Sub(now); remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return timeout(ctx.Err())
		case <-p.clock.After(wait):
		}
	}
}
