package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/action"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
)

// Session executes the steps of one case against the page and records
// them in the case's step log.
type Session struct {
	page       driver.Page
	dispatcher *action.Dispatcher
	evaluator  *expect.Evaluator
	clock      poll.Clock
	logger     zerolog.Logger
	result     *CaseResult

	scope string
	hook  string
}

// Page returns the page under test.
func (s *Session) Page() driver.Page {
	return s.page
}

// Exec runs one step. A failure is returned as a *failure.Failure
// attributed to the step.
func (s *Session) Exec(ctx context.Context, st Step) error {
	start := s.clock.Now()
	err := s.exec(ctx, st)
	rec := StepRecord{
		Scope:       s.scope,
		Hook:        s.hook,
		Description: st.String(),
		Status:      StatusPassed,
		Duration:    s.clock.Now().Sub(start),
	}

	if err != nil {
		f := failure.From(err).WithStep(st.String())
		rec.Status = StatusFailed
		rec.Error = f.Message
		s.result.record(rec)
		s.logger.Debug().
			Str("step", rec.Description).
			Str("kind", string(f.Kind)).
			Dur("elapsed", rec.Duration).
			Msg("step failed")
		return f
	}

	s.result.record(rec)
	s.logger.Debug().
		Str("step", rec.Description).
		Dur("elapsed", rec.Duration).
		Msg("step passed")
	return nil
}

func (s *Session) exec(ctx context.Context, st Step) error {
	if err := st.Validate(); err != nil {
		return failure.Wrap(failure.KindError, err)
	}

	switch st.Kind {
	case StepNavigate:
		if err := s.page.Navigate(ctx, st.Path); err != nil {
			return fmt.Errorf("navigate %s: %w", st.Path, err)
		}
		return nil
	case StepResolve:
		_, err := s.dispatcher.Resolve(ctx, st.Locator, st.actionOptions())
		return err
	case StepAct:
		return s.dispatcher.Do(ctx, st.Locator, st.Action, st.actionOptions())
	case StepAssert:
		return s.evaluator.Check(ctx, st.Locator, st.Expect, st.expectOptions())
	case StepWait:
		select {
		case <-ctx.Done():
			return failure.Wrap(failure.KindTimeout, ctx.Err())
		case <-s.clock.After(st.Wait):
			return nil
		}
	}
	return failure.New(failure.KindError, "unknown step kind %q", st.Kind)
}

// run executes steps in order, then body. After a failure the remaining
// steps are recorded as skipped.
func (s *Session) run(ctx context.Context, steps []Step, body Body) error {
	for i, st := range steps {
		if err := s.Exec(ctx, st); err != nil {
			s.skip(steps[i+1:])
			return err
		}
	}
	if body != nil {
		if err := body(ctx, s); err != nil {
			return failure.From(err)
		}
	}
	return nil
}

// skip records steps that will not run.
func (s *Session) skip(steps []Step) {
	for _, st := range steps {
		s.result.record(StepRecord{
			Scope:       s.scope,
			Hook:        s.hook,
			Description: st.String(),
			Status:      StatusSkipped,
		})
	}
}

func (s *Session) enter(scope, hook string) {
	s.scope = scope
	s.hook = hook
}
