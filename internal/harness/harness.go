package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/poll"
	"github.com/roach88/uispec/internal/runner"
	"github.com/roach88/uispec/internal/sim"
	"github.com/roach88/uispec/internal/suite"
	"github.com/roach88/uispec/internal/testutil"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Report is the runner's report for the suite.
	Report *runner.Report `json:"report"`

	// Navigations lists the paths the page was sent to, in order.
	Navigations []string `json:"navigations"`

	// Dispatched lists every action that reached the page, in order.
	Dispatched []sim.Dispatched `json:"-"`

	// Errors describes each expectation that did not hold.
	Errors []string `json:"errors,omitempty"`
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and evaluates its expectations.
//
// Each scenario runs on a fresh simulated agenda with a virtual clock and
// a fixed run ID, so two runs of the same scenario produce the same report.
// The returned error covers problems running the scenario at all (an
// unloadable suite); unmet expectations are recorded in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zerolog.Nop())
}

// RunWithLogger is Run with runner events sent to logger.
func RunWithLogger(scenario *Scenario, logger zerolog.Logger) (*Result, error) {
	today, err := scenario.TodayTime()
	if err != nil {
		return nil, fmt.Errorf("invalid today: %w", err)
	}

	loader := suite.Loader{Now: func() time.Time { return today }}
	s, err := loader.Load(scenario.Suite)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite: %w", err)
	}

	page := sim.NewAgenda(sim.AgendaOptions{Today: today, RenderDelay: scenario.RenderDelay})
	defer page.Close()

	r := runner.New(page, runner.Options{
		Poll:   poll.FromMillis(scenario.TimeoutMs, scenario.IntervalMs).WithDefaults(),
		Bail:   scenario.Bail,
		Filter: scenario.Filter,
		Clock:  testutil.NewVirtualClock(),
		Logger: logger,
		IDs:    runner.NewFixedGenerator("harness-" + scenario.Name),
	})
	report := r.Run(context.Background(), s)

	result := &Result{
		Pass:        true,
		Report:      report,
		Navigations: page.Navigations(),
		Dispatched:  page.Dispatched(),
	}
	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}
