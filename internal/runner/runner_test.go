package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
	"github.com/roach88/uispec/internal/sim"
	"github.com/roach88/uispec/internal/testutil"
)

var (
	addEvent  = dom.Text("Add Event")
	cancelBtn = dom.Text("Cancel")
	saveBtn   = dom.Text("Save")
	deleteBtn = dom.Text("X")
	input     = dom.CSS(".input")
	label     = dom.CSS("div.elm-agenda__schedule-event-label")
	eventTime = dom.CSS("div.elm-agenda__schedule-event-time")
)

var today = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func createEvent(name string) []Step {
	return []Step{Click(addEvent), TypeInto(input, name), Click(saveBtn)}
}

func steps(groups ...[]Step) []Step {
	var out []Step
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func agenda() *sim.Page {
	return sim.NewAgenda(sim.AgendaOptions{Today: today, RenderDelay: 2})
}

func newRunner(page driver.Page, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = testutil.NewVirtualClock()
	}
	if opts.Poll == (poll.Options{}) {
		opts.Poll = poll.Options{Timeout: time.Second, Interval: 100 * time.Millisecond}
	}
	if opts.IDs == nil {
		opts.IDs = NewFixedGenerator("run-1")
	}
	opts.Logger = zerolog.Nop()
	return New(page, opts)
}

func eventManagement() *Suite {
	return &Suite{
		Visit: "/",
		Context: Context{
			Name: "Event Management",
			Contexts: []*Context{{
				Name: "when in daily mode",
				Before: []Hook{{
					Name:  "switch to daily",
					Steps: []Step{Click(dom.Text("Daily")), Resolve(dom.Text("Daily Schedule"))},
				}},
				Cases: []Case{
					{
						Name: "allows creation with a button",
						Steps: steps(
							[]Step{Click(addEvent), TypeInto(input, "Foo bar baz"), Click(cancelBtn)},
							createEvent("My event"),
							[]Step{
								Assert(label, expect.Contain("My event")),
								Assert(eventTime, expect.Contain("8:00 AM - 8:15 AM")),
							},
						),
					},
					{
						Name: "allows deletion with a button",
						Steps: steps(
							createEvent("Foo bar event"),
							[]Step{
								Click(deleteBtn).Forced(),
								Assert(label, expect.NotContain("Foo bar event")),
							},
						),
					},
				},
			}},
		},
	}
}

func TestRun_EventManagementPasses(t *testing.T) {
	page := agenda()
	report := newRunner(page, Options{}).Run(context.Background(), eventManagement())

	require.Len(t, report.Cases, 2)
	for _, c := range report.Cases {
		assert.Equal(t, StatusPassed, c.Status, "%s: %s", c.FullName(), c.Reason)
		assert.Equal(t, "pass", c.Outcome())
	}
	assert.True(t, report.OK())
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, []string{"/", "/"}, page.Navigations(), "each case starts from a fresh page")
	assert.Equal(t,
		"Event Management > when in daily mode > allows creation with a button",
		report.Cases[0].FullName())
}

func TestRun_AssertionTimeoutCarriesLastSeenText(t *testing.T) {
	suite := &Suite{Context: Context{
		Name: "Event Management",
		Cases: []Case{
			{
				Name: "saves the wrong event",
				Steps: steps(createEvent("Foo"), []Step{
					Assert(label, expect.Contain("My event")),
					Click(deleteBtn).Forced(),
				}),
			},
			{
				Name:  "still runs",
				Steps: createEvent("My event"),
			},
		},
	}}

	report := newRunner(agenda(), Options{}).Run(context.Background(), suite)

	failed := report.Cases[0]
	require.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, failure.KindAssertionTimeout, failed.Kind)
	require.NotNil(t, failed.Failure)
	assert.Equal(t, `contain "My event"`, failed.Failure.Expected)
	assert.Equal(t, `"Foo"`, failed.Failure.Actual)
	assert.Contains(t, failed.Outcome(), `fail(AssertionTimeout: expected div.elm-agenda__schedule-event-label to contain "My event", but saw "Foo"`)

	last := failed.Steps[len(failed.Steps)-1]
	assert.Equal(t, StatusSkipped, last.Status)
	assert.Equal(t, "click text \"X\" (force)", last.Description)

	assert.Equal(t, StatusPassed, report.Cases[1].Status, "a failing case never stops its siblings")
}

func TestRun_CaseIsolation(t *testing.T) {
	suite := &Suite{Context: Context{
		Name: "isolation",
		Cases: []Case{
			{
				Name: "creates an event then fails",
				Steps: steps(createEvent("Leaked"), []Step{
					Assert(label, expect.Contain("Leaked")),
					Assert(dom.CSS(".does-not-exist"), expect.Exist()),
				}),
			},
			{
				Name: "sees an empty schedule",
				Steps: []Step{
					Assert(label, expect.NotContain("Leaked")),
					Assert(label, expect.NotExist()),
				},
			},
		},
	}}

	report := newRunner(agenda(), Options{}).Run(context.Background(), suite)

	assert.Equal(t, StatusFailed, report.Cases[0].Status)
	assert.Equal(t, StatusPassed, report.Cases[1].Status, report.Cases[1].Reason)
}

func TestRun_ForceVersusNotActionable(t *testing.T) {
	suite := &Suite{Context: Context{
		Name: "delete",
		Cases: []Case{
			{Name: "without force", Steps: steps(createEvent("A"), []Step{Click(deleteBtn)})},
			{Name: "with force", Steps: steps(createEvent("A"), []Step{Click(deleteBtn).Forced(), Assert(label, expect.NotExist())})},
		},
	}}

	report := newRunner(agenda(), Options{}).Run(context.Background(), suite)

	assert.Equal(t, failure.KindNotActionable, report.Cases[0].Kind)
	assert.Contains(t, report.Cases[0].Reason, "covered by another element")
	assert.Equal(t, StatusPassed, report.Cases[1].Status, report.Cases[1].Reason)
}

func blankPage() *sim.Page {
	return sim.New().Route("/", "<html><body><p>ready</p></body></html>")
}

func TestRun_HookOrdering(t *testing.T) {
	var order []string
	mark := func(name string) Body {
		return func(context.Context, *Session) error {
			order = append(order, name)
			return nil
		}
	}

	suite := &Suite{Context: Context{
		Name:      "root",
		BeforeAll: []Hook{{Name: "root all", Body: mark("root-all")}},
		Before:    []Hook{{Body: mark("root-before")}},
		Cases:     []Case{{Name: "top", Body: mark("top")}},
		Contexts: []*Context{{
			Name:      "outer",
			BeforeAll: []Hook{{Body: mark("outer-all")}},
			Before:    []Hook{{Body: mark("outer-before-1")}, {Body: mark("outer-before-2")}},
			Contexts: []*Context{{
				Name:   "inner",
				Before: []Hook{{Body: mark("inner-before")}},
				Cases: []Case{
					{Name: "a", Body: mark("a")},
					{Name: "b", Body: mark("b")},
				},
			}},
		}},
	}}

	report := newRunner(blankPage(), Options{}).Run(context.Background(), suite)
	require.True(t, report.OK())

	assert.Equal(t, []string{
		"root-all", "root-before", "top",
		"outer-all", "root-before", "outer-before-1", "outer-before-2", "inner-before", "a",
		"root-before", "outer-before-1", "outer-before-2", "inner-before", "b",
	}, order)
}

func TestRun_CasesBeforeNestedContexts(t *testing.T) {
	ok := func(context.Context, *Session) error { return nil }
	suite := &Suite{Context: Context{
		Name:     "s",
		Contexts: []*Context{{Name: "c", Cases: []Case{{Name: "nested", Body: ok}}}},
		Cases:    []Case{{Name: "first", Body: ok}, {Name: "second", Body: ok}},
	}}

	report := newRunner(blankPage(), Options{}).Run(context.Background(), suite)

	var names []string
	for _, c := range report.Cases {
		names = append(names, c.FullName())
	}
	assert.Equal(t, []string{"s > first", "s > second", "s > c > nested"}, names)
}

func TestRun_BeforeAllFailureFailsItsScope(t *testing.T) {
	calls := 0
	suite := &Suite{Context: Context{
		Name: "s",
		Contexts: []*Context{
			{
				Name: "broken",
				BeforeAll: []Hook{{Name: "seed", Body: func(context.Context, *Session) error {
					calls++
					return errors.New("seed failed")
				}}},
				Cases: []Case{
					{Name: "one", Steps: []Step{Resolve(dom.Text("ready"))}},
					{Name: "two", Steps: []Step{Resolve(dom.Text("ready"))}},
				},
			},
			{
				Name:  "healthy",
				Cases: []Case{{Name: "three", Steps: []Step{Resolve(dom.Text("ready"))}}},
			},
		},
	}}

	page := blankPage()
	report := newRunner(page, Options{}).Run(context.Background(), suite)

	assert.Equal(t, 1, calls, "before_all hooks run once per scope")
	for _, name := range []string{"s > broken > one", "s > broken > two"} {
		c := report.Case(name)
		require.NotNil(t, c, name)
		assert.Equal(t, failure.KindHookFailed, c.Kind)
		assert.Contains(t, c.Reason, `before hook "seed" failed: Error: seed failed`)
	}
	assert.Equal(t, StatusPassed, report.Case("s > healthy > three").Status)
	assert.Equal(t, []string{"/", "/"}, page.Navigations(), "the second broken case is failed without loading the page")
}

func TestRun_BeforeFailureEscalates(t *testing.T) {
	suite := &Suite{Context: Context{
		Name:   "s",
		Before: []Hook{{Steps: []Step{Click(dom.Text("Missing button"))}}},
		Cases: []Case{{
			Name:  "never starts",
			Steps: []Step{Resolve(dom.Text("ready")), Resolve(dom.Text("ready"))},
		}},
	}}

	report := newRunner(blankPage(), Options{}).Run(context.Background(), suite)

	c := report.Cases[0]
	assert.Equal(t, failure.KindHookFailed, c.Kind)
	assert.True(t, failure.IsNotFound(c.Failure.Err), "cause keeps its own kind")
	assert.Contains(t, c.Reason, `before hook "before #1" failed`)

	var statuses []Status
	for _, st := range c.Steps {
		statuses = append(statuses, st.Status)
	}
	assert.Equal(t, []Status{StatusPassed, StatusFailed, StatusSkipped, StatusSkipped}, statuses)
	assert.Equal(t, ScopeVisit, c.Steps[0].Scope)
	assert.Equal(t, ScopeBefore, c.Steps[1].Scope)
	assert.Equal(t, ScopeCase, c.Steps[2].Scope)
}

func TestRun_SuiteTimeoutAbortsPolling(t *testing.T) {
	suite := &Suite{Context: Context{
		Name: "slow",
		Cases: []Case{
			{Name: "waits forever", Steps: []Step{Assert(dom.CSS(".never"), expect.Exist())}},
			{Name: "never starts", Steps: []Step{Resolve(dom.Text("ready"))}},
		},
	}}

	r := New(blankPage(), Options{
		Poll:         poll.Options{Timeout: 10 * time.Second, Interval: 10 * time.Millisecond},
		SuiteTimeout: 100 * time.Millisecond,
		Logger:       zerolog.Nop(),
		IDs:          NewFixedGenerator("run-1"),
	})

	start := time.Now()
	report := r.Run(context.Background(), suite)
	assert.Less(t, time.Since(start), 5*time.Second, "suite timeout must cut the poll short")

	assert.Equal(t, failure.KindTimeout, report.Cases[0].Kind)
	assert.Equal(t, failure.KindTimeout, report.Cases[1].Kind)
	assert.Contains(t, report.Cases[1].Reason, "not run")
}

func TestRun_Bail(t *testing.T) {
	suite := &Suite{Context: Context{
		Name: "s",
		Cases: []Case{
			{Name: "fails", Steps: []Step{Assert(dom.CSS(".missing"), expect.Exist())}},
			{Name: "skipped 1", Steps: []Step{Resolve(dom.Text("ready"))}},
			{Name: "skipped 2", Steps: []Step{Resolve(dom.Text("ready"))}},
		},
	}}

	report := newRunner(blankPage(), Options{Bail: true}).Run(context.Background(), suite)

	assert.Equal(t, 3, report.Failed())
	assert.Equal(t, map[failure.Kind]int{
		failure.KindAssertionTimeout: 1,
		failure.KindSkipped:          2,
	}, report.ByKind())
	assert.Equal(t, "fail(Skipped: not run: bail)", report.Cases[1].Outcome())
}

func TestRun_Filter(t *testing.T) {
	report := newRunner(agenda(), Options{Filter: "deletion"}).Run(context.Background(), eventManagement())
	require.Len(t, report.Cases, 1)
	assert.Equal(t, "allows deletion with a button", report.Cases[0].Name)

	report = newRunner(agenda(), Options{Filter: "Event Management > * > allows creation*"}).Run(context.Background(), eventManagement())
	require.Len(t, report.Cases, 1)
	assert.Equal(t, "allows creation with a button", report.Cases[0].Name)
}

func TestRun_DeterministicTiming(t *testing.T) {
	clock := testutil.NewVirtualClock()
	suite := &Suite{Context: Context{
		Name:  "timing",
		Cases: []Case{{Name: "waits", Steps: []Step{Wait(250 * time.Millisecond), Resolve(dom.Text("ready"))}}},
	}}

	report := newRunner(blankPage(), Options{Clock: clock}).Run(context.Background(), suite)

	require.True(t, report.OK())
	assert.Equal(t, testutil.Epoch, report.StartedAt)
	assert.Equal(t, 250*time.Millisecond, report.Duration)
	assert.Equal(t, 250*time.Millisecond, report.Cases[0].Steps[1].Duration)
}

type recorder struct {
	events []string
}

func (r *recorder) RunStarted(rep *Report)    { r.events = append(r.events, "run "+rep.Suite) }
func (r *recorder) CaseStarted(c *CaseResult) { r.events = append(r.events, "start "+c.Name) }
func (r *recorder) CaseFinished(c *CaseResult) {
	r.events = append(r.events, "finish "+c.Name+" "+c.Outcome())
}
func (r *recorder) RunFinished(rep *Report) { r.events = append(r.events, "done") }

func TestRun_ObserverEvents(t *testing.T) {
	rec := &recorder{}
	ok := func(context.Context, *Session) error { return nil }
	suite := &Suite{Context: Context{Name: "s", Cases: []Case{{Name: "a", Body: ok}, {Name: "b", Body: ok}}}}

	newRunner(blankPage(), Options{Observer: Observers{rec, NopObserver{}}}).Run(context.Background(), suite)

	assert.Equal(t, []string{"run s", "start a", "finish a pass", "start b", "finish b pass", "done"}, rec.events)
}

func TestCaseResult_IllegalTransitionPanics(t *testing.T) {
	c := &CaseResult{Name: "x", Status: StatusPending}
	c.advance(StatusRunning)
	c.advance(StatusPassed)
	assert.Panics(t, func() { c.advance(StatusRunning) })
	assert.Panics(t, func() { (&CaseResult{Status: StatusPending}).advance(StatusPassed) })
}
