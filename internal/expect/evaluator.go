// Package expect evaluates assertions against the page with retry.
//
// An assertion passes as soon as its relation holds on a tick. Negative
// relations (not-contains, not-exists) must hold on two consecutive ticks,
// one interval apart, so a re-render that briefly removes an element does
// not count as its absence. An empty match is absence: a locator matching
// nothing satisfies not-contains.
package expect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
)

// SettleTicks is how many consecutive ticks a negative relation must hold.
// An absence first seen on the deadline tick gets one confirming tick an
// interval later, so no check runs past timeout plus one interval.
const SettleTicks = 2

// Options overrides the poller budget for one check.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Evaluator checks expectations against a page.
type Evaluator struct {
	page   driver.Page
	poller *poll.Poller
	logger zerolog.Logger
}

// New creates an evaluator for page.
func New(page driver.Page, poller *poll.Poller, logger zerolog.Logger) *Evaluator {
	return &Evaluator{page: page, poller: poller, logger: logger}
}

// mismatch is the per-tick error recorded while a relation does not hold.
type mismatch struct {
	actual string
}

func (m *mismatch) Error() string {
	return "saw " + m.actual
}

var errSettling = errors.New("absence not yet stable")

// Check polls until exp holds for the elements loc matches. A relation that
// never holds yields an AssertionTimeout failure carrying the expected
// value and the last observed actual value.
func (ev *Evaluator) Check(ctx context.Context, loc dom.Locator, exp Expectation, opts Options) error {
	if err := exp.Validate(); err != nil {
		return failure.Wrap(failure.KindError, err)
	}
	if err := loc.Validate(); err != nil {
		return failure.Wrap(failure.KindError, err)
	}

	actual := "nothing"
	streak := 0
	p := ev.poller.With(poll.Options{Timeout: opts.Timeout, Interval: opts.Interval})
	tick := func(ctx context.Context) error {
		snap, err := ev.page.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return poll.Permanent(fmt.Errorf("snapshot: %w", err))
		}

		handles, err := dom.Resolve(snap, loc)
		if err != nil && !errors.Is(err, dom.ErrNotFound) {
			return poll.Permanent(err)
		}
		actual = describe(handles)

		if !holds(exp, handles) {
			streak = 0
			return &mismatch{actual: actual}
		}
		if exp.Negative() {
			streak++
			if streak < SettleTicks {
				return errSettling
			}
		}
		return nil
	}
	err := p.Poll(ctx, tick)

	var te *poll.TimeoutError
	if errors.As(err, &te) && !te.Aborted() && errors.Is(te.Last, errSettling) {
		err = ev.confirm(ctx, p, tick, te)
	}
	if err == nil {
		ev.logger.Debug().
			Str("locator", loc.String()).
			Str("expect", exp.String()).
			Msg("assertion held")
		return nil
	}

	if !errors.As(err, &te) {
		f := failure.From(err)
		f.Locator = loc.String()
		return f
	}
	f := failure.NewAssertionTimeout(loc.String(), exp.String(), actual, te)
	ev.logger.Debug().
		Str("locator", loc.String()).
		Str("expect", exp.String()).
		Str("actual", actual).
		Int("attempts", te.Attempts).
		Dur("elapsed", te.Elapsed).
		Msg("assertion failed")
	return f
}

// confirm runs the one settling tick allowed past the deadline. It returns
// nil when the absence still holds, else te updated with the extra attempt.
func (ev *Evaluator) confirm(ctx context.Context, p *poll.Poller, tick poll.Func, te *poll.TimeoutError) error {
	start := p.Clock().Now().Add(-te.Elapsed)
	select {
	case <-ctx.Done():
		return te
	case <-p.Clock().After(p.Options().Interval):
	}
	err := tick(ctx)
	if err == nil {
		return nil
	}
	te.Attempts++
	te.Elapsed = p.Clock().Now().Sub(start)
	var m *mismatch
	if errors.As(err, &m) {
		te.Last = err
	}
	return te
}

func holds(exp Expectation, handles []dom.ElementHandle) bool {
	switch exp.Relation {
	case RelExists:
		return len(handles) > 0
	case RelNotExists:
		return len(handles) == 0
	case RelContains:
		return anyContains(handles, exp.Text)
	case RelNotContains:
		return !anyContains(handles, exp.Text)
	}
	return false
}

func anyContains(handles []dom.ElementHandle, text string) bool {
	for _, h := range handles {
		if dom.ContainsText(h.Text, text) {
			return true
		}
	}
	return false
}

// describe renders what a tick observed: "nothing", or the quoted texts
// of the matched elements.
func describe(handles []dom.ElementHandle) string {
	if len(handles) == 0 {
		return "nothing"
	}
	const maxShown = 5
	parts := make([]string, 0, maxShown+1)
	for i, h := range handles {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(handles)-maxShown))
			break
		}
		parts = append(parts, strconv.Quote(h.Text))
	}
	return strings.Join(parts, ", ")
}
