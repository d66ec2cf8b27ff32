// Package action delivers synthetic input to elements found by a locator.
//
// Dispatch is resolve-then-act inside one poll: every tick takes a fresh
// snapshot, resolves the first match, checks it is actionable (unless the
// caller forces the action) and dispatches. The action fires at most once;
// the dispatcher does not wait for the page to re-render afterwards.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
)

// Options tunes a single dispatch. Zero durations use the poller's budget.
type Options struct {
	// Force skips the actionability check.
	Force    bool
	Timeout  time.Duration
	Interval time.Duration
}

func (o Options) budget() poll.Options {
	return poll.Options{Timeout: o.Timeout, Interval: o.Interval}
}

// Dispatcher acts on a page.
type Dispatcher struct {
	page   driver.Page
	poller *poll.Poller
	logger zerolog.Logger
}

// New creates a dispatcher for page. poller supplies the default budget
// and clock.
func New(page driver.Page, poller *poll.Poller, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{page: page, poller: poller, logger: logger}
}

// Do resolves loc and delivers act to the first match.
//
// Failures are returned as *failure.Failure: NotFound when nothing ever
// matched, NotActionable when the element stayed hidden, covered or
// disabled, Timeout when the budget ran out for another reason or the
// context was cancelled, and Error for invalid input or driver errors.
func (d *Dispatcher) Do(ctx context.Context, loc dom.Locator, act driver.Action, opts Options) error {
	if err := act.Validate(); err != nil {
		return failure.Wrap(failure.KindError, err)
	}
	if err := loc.Validate(); err != nil {
		return failure.Wrap(failure.KindError, err)
	}

	var target dom.ElementHandle
	err := d.poller.With(opts.budget()).Poll(ctx, func(ctx context.Context) error {
		h, err := d.first(ctx, loc)
		if err != nil {
			return err
		}
		if !opts.Force {
			if err := driver.CheckActionable(h, act); err != nil {
				return err
			}
		}
		if err := d.page.Dispatch(ctx, h, act); err != nil {
			if errors.Is(err, driver.ErrStale) || ctx.Err() != nil {
				return err
			}
			return poll.Permanent(fmt.Errorf("dispatch %s to %s: %w", act, h, err))
		}
		target = h
		return nil
	})
	if err != nil {
		f := classify(loc, err)
		d.logger.Debug().
			Str("locator", loc.String()).
			Str("action", act.String()).
			Str("kind", string(f.Kind)).
			Int("attempts", f.Attempts).
			Dur("elapsed", f.Elapsed).
			Msg("dispatch failed")
		return f
	}

	d.logger.Debug().
		Str("locator", loc.String()).
		Str("action", act.String()).
		Str("element", target.String()).
		Bool("force", opts.Force).
		Msg("dispatched")
	return nil
}

// Resolve polls until loc matches and returns the first element.
// Visibility is not required.
func (d *Dispatcher) Resolve(ctx context.Context, loc dom.Locator, opts Options) (dom.ElementHandle, error) {
	if err := loc.Validate(); err != nil {
		return dom.ElementHandle{}, failure.Wrap(failure.KindError, err)
	}

	var found dom.ElementHandle
	err := d.poller.With(opts.budget()).Poll(ctx, func(ctx context.Context) error {
		h, err := d.first(ctx, loc)
		if err != nil {
			return err
		}
		found = h
		return nil
	})
	if err != nil {
		return dom.ElementHandle{}, classify(loc, err)
	}
	return found, nil
}

// first takes a snapshot and resolves loc in it. Driver errors other than
// cancellation stop polling.
func (d *Dispatcher) first(ctx context.Context, loc dom.Locator) (dom.ElementHandle, error) {
	snap, err := d.page.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return dom.ElementHandle{}, err
		}
		return dom.ElementHandle{}, poll.Permanent(fmt.Errorf("snapshot: %w", err))
	}
	h, err := dom.First(snap, loc)
	if err != nil {
		if dom.IsSelectorError(err) {
			return dom.ElementHandle{}, poll.Permanent(err)
		}
		return dom.ElementHandle{}, err
	}
	return h, nil
}

// classify maps a poll outcome onto the failure taxonomy.
func classify(loc dom.Locator, err error) *failure.Failure {
	var te *poll.TimeoutError
	if !errors.As(err, &te) {
		f := failure.From(err)
		f.Locator = loc.String()
		return f
	}

	kind := failure.KindTimeout
	var nf *dom.NotFoundError
	var na *driver.NotActionableError
	switch {
	case te.Aborted():
	case errors.As(te.Last, &nf):
		kind = failure.KindNotFound
	case errors.As(te.Last, &na):
		kind = failure.KindNotActionable
	}

	return &failure.Failure{
		Kind:     kind,
		Message:  te.Error(),
		Locator:  loc.String(),
		Attempts: te.Attempts,
		Elapsed:  te.Elapsed,
		Err:      err,
	}
}
