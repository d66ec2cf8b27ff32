package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/runner"
)

// ExpectationError is returned when an expectation does not hold.
// It includes the case list so a failure can be read without the report.
type ExpectationError struct {
	Type     string   // Expectation type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Cases    []string // Every case outcome, for context
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Cases) > 0 {
		fmt.Fprintf(&buf, "\nCases:\n")
		for i, c := range e.Cases {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
		}
	}

	return buf.String()
}

// EvaluateExpectations checks every expectation against result and
// returns one message per expectation that did not hold.
func EvaluateExpectations(result *Result, expectations []Expectation) []string {
	var errs []string
	for i, e := range expectations {
		var err error
		switch e.Type {
		case ExpectCaseOutcome:
			err = expectCaseOutcome(result.Report, e)
		case ExpectAllPassed:
			err = expectAllPassed(result.Report)
		case ExpectNavigations:
			err = expectCount(result.Report, e.Type, "navigations", len(result.Navigations), e.Count)
		case ExpectDispatchCount:
			err = expectCount(result.Report, e.Type, e.Action+" actions", countActions(result, driver.ActionKind(e.Action)), e.Count)
		default:
			err = fmt.Errorf("unknown expectation type %q", e.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("expect[%d]: %v", i, err))
		}
	}
	return errs
}

func expectCaseOutcome(report *runner.Report, e Expectation) error {
	c := report.Case(e.Case)
	if c == nil {
		return &ExpectationError{
			Type:     e.Type,
			Expected: fmt.Sprintf("case %q", e.Case),
			Actual:   "no such case",
			Cases:    outcomes(report),
		}
	}

	want := e.Status
	if e.Kind != "" {
		kind, err := failure.ParseKind(e.Kind)
		if err != nil {
			return err
		}
		want = fmt.Sprintf("%s (%s)", e.Status, kind)
	}
	got := string(c.Status)
	if e.Kind != "" && c.Status == runner.StatusFailed {
		got = fmt.Sprintf("%s (%s)", c.Status, c.Kind)
	}
	if got != want {
		return &ExpectationError{
			Type:     e.Type,
			Expected: fmt.Sprintf("%q %s", e.Case, want),
			Actual:   fmt.Sprintf("%s: %s", got, c.Reason),
			Cases:    outcomes(report),
		}
	}
	return nil
}

func expectAllPassed(report *runner.Report) error {
	if report.OK() {
		return nil
	}
	return &ExpectationError{
		Type:     ExpectAllPassed,
		Expected: fmt.Sprintf("%d passing", len(report.Cases)),
		Actual:   fmt.Sprintf("%d passing, %d failing", report.Passed(), report.Failed()),
		Cases:    outcomes(report),
	}
}

func expectCount(report *runner.Report, typ, what string, got, want int) error {
	if got == want {
		return nil
	}
	return &ExpectationError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Cases:    outcomes(report),
	}
}

func countActions(result *Result, kind driver.ActionKind) int {
	n := 0
	for _, d := range result.Dispatched {
		if d.Action.Kind == kind {
			n++
		}
	}
	return n
}

func outcomes(report *runner.Report) []string {
	out := make([]string, len(report.Cases))
	for i, c := range report.Cases {
		out[i] = c.FullName() + ": " + c.Outcome()
	}
	return out
}
