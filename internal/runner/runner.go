package runner

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/action"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
)

// Options configures a Runner.
type Options struct {
	// Poll is the default budget for every step.
	Poll poll.Options

	// SuiteTimeout bounds the whole run. Zero means no bound.
	SuiteTimeout time.Duration

	// Bail stops running cases after the first failure; the rest are
	// reported as skipped failures.
	Bail bool

	// Filter selects cases by full name: a glob when it contains *, ? or [,
	// otherwise a substring. Empty runs everything.
	Filter string

	// Clock drives polling and timing. Nil means wall time.
	Clock poll.Clock

	// Logger receives case and step events. Use zerolog.Nop() to silence.
	Logger zerolog.Logger

	// Observer is notified as cases start and finish.
	Observer Observer

	// IDs generates run IDs. Nil means UUIDv7.
	IDs IDGenerator
}

// Runner executes suites against one page, one case at a time.
type Runner struct {
	page       driver.Page
	opts       Options
	dispatcher *action.Dispatcher
	evaluator  *expect.Evaluator
}

// New creates a runner for page.
func New(page driver.Page, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = poll.RealClock{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	poller := poll.New(opts.Poll, opts.Clock)
	return &Runner{
		page:       page,
		opts:       opts,
		dispatcher: action.New(page, poller, opts.Logger),
		evaluator:  expect.New(page, poller, opts.Logger),
	}
}

// Run executes every selected case of s in order and reports the outcome.
// It never returns early: cancellation and the suite timeout turn the
// remaining cases into Timeout failures.
func (r *Runner) Run(ctx context.Context, s *Suite) *Report {
	clock := r.opts.Clock
	report := &Report{
		RunID:     r.opts.IDs.Generate(),
		Suite:     s.Name,
		File:      s.File,
		StartedAt: clock.Now(),
	}

	var cases []planned
	for _, p := range plan(s) {
		res := &CaseResult{Path: p.path(), Name: p.tc.Name, Status: StatusPending}
		if !matches(r.opts.Filter, res.FullName()) {
			continue
		}
		cases = append(cases, p)
		report.Cases = append(report.Cases, res)
	}

	if r.opts.SuiteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.SuiteTimeout)
		defer cancel()
	}

	log := r.opts.Logger.With().Str("suite", s.Name).Str("run_id", report.RunID).Logger()
	log.Info().Int("cases", len(cases)).Msg("run started")
	r.opts.Observer.RunStarted(report)

	memo := make(map[*Context]*failure.Failure)
	bailed := false
	for i, p := range cases {
		res := report.Cases[i]

		if bailed {
			res.fail(failure.NewSkipped("bail"))
			r.finish(log, res)
			continue
		}
		if err := ctx.Err(); err != nil {
			res.fail(&failure.Failure{Kind: failure.KindTimeout, Message: "not run: " + err.Error(), Err: err})
			r.finish(log, res)
			continue
		}

		res.advance(StatusRunning)
		r.opts.Observer.CaseStarted(res)

		start := clock.Now()
		err := r.runCase(ctx, s, p, res, memo, log)
		res.Duration = clock.Now().Sub(start)
		if err != nil {
			res.fail(failure.From(err))
			bailed = r.opts.Bail
		} else {
			res.advance(StatusPassed)
		}
		r.finish(log, res)
	}

	report.Duration = clock.Now().Sub(report.StartedAt)
	log.Info().
		Int("passed", report.Passed()).
		Int("failed", report.Failed()).
		Dur("elapsed", report.Duration).
		Msg("run finished")
	r.opts.Observer.RunFinished(report)
	return report
}

func (r *Runner) finish(log zerolog.Logger, res *CaseResult) {
	ev := log.Info()
	if res.Status == StatusFailed {
		ev = log.Warn().Str("kind", string(res.Kind)).Str("reason", res.Reason)
	}
	ev.Str("case", res.FullName()).
		Str("status", string(res.Status)).
		Dur("elapsed", res.Duration).
		Msg("case finished")
	r.opts.Observer.CaseFinished(res)
}

// runCase navigates, runs the hooks in scope and then the case itself.
func (r *Runner) runCase(ctx context.Context, s *Suite, p planned, res *CaseResult, memo map[*Context]*failure.Failure, log zerolog.Logger) error {
	for _, c := range p.scopes {
		if f := memo[c]; f != nil {
			return f
		}
	}

	sess := &Session{
		page:       r.page,
		dispatcher: r.dispatcher,
		evaluator:  r.evaluator,
		clock:      r.opts.Clock,
		logger:     log.With().Str("case", res.FullName()).Logger(),
		result:     res,
	}

	sess.enter(ScopeVisit, "")
	if err := sess.Exec(ctx, Navigate(s.VisitPath())); err != nil {
		return err
	}

	for _, c := range p.scopes {
		if _, ran := memo[c]; ran || len(c.BeforeAll) == 0 {
			continue
		}
		f := r.runHooks(ctx, sess, ScopeBeforeAll, c.BeforeAll)
		memo[c] = f
		if f != nil {
			sess.enter(ScopeCase, "")
			sess.skip(p.tc.Steps)
			return f
		}
	}

	for _, c := range p.scopes {
		if f := r.runHooks(ctx, sess, ScopeBefore, c.Before); f != nil {
			sess.enter(ScopeCase, "")
			sess.skip(p.tc.Steps)
			return f
		}
	}

	sess.enter(ScopeCase, "")
	return sess.run(ctx, p.tc.Steps, p.tc.Body)
}

// runHooks runs hooks in order and escalates the first failure. A hook
// cut short by cancellation keeps its Timeout kind.
func (r *Runner) runHooks(ctx context.Context, sess *Session, scope string, hooks []Hook) *failure.Failure {
	for i, h := range hooks {
		name := h.Name
		if name == "" {
			name = fmt.Sprintf("%s #%d", scope, i+1)
		}
		sess.enter(scope, name)
		if err := sess.run(ctx, h.Steps, h.Body); err != nil {
			if ctx.Err() != nil {
				return failure.From(err)
			}
			return failure.NewHookFailed(name, err)
		}
	}
	return nil
}

func matches(filter, name string) bool {
	if filter == "" {
		return true
	}
	if strings.ContainsAny(filter, "*?[") {
		ok, err := path.Match(filter, name)
		return err == nil && ok
	}
	return strings.Contains(name, filter)
}
