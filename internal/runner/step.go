package runner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uispec/internal/action"
	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/expect"
)

// StepKind identifies what a Step does.
type StepKind string

const (
	StepNavigate StepKind = "navigate"
	StepResolve  StepKind = "resolve"
	StepAct      StepKind = "act"
	StepAssert   StepKind = "assert"
	StepWait     StepKind = "wait"
)

// Step is one instruction in a Case or Hook.
type Step struct {
	Kind    StepKind
	Path    string
	Locator dom.Locator
	Action  driver.Action
	Expect  expect.Expectation
	Wait    time.Duration

	// Force skips actionability checks for StepAct.
	Force bool
	// Timeout and Interval override the run's poll budget when non-zero.
	Timeout  time.Duration
	Interval time.Duration
}

// Navigate loads path.
func Navigate(path string) Step { return Step{Kind: StepNavigate, Path: path} }

// Resolve waits until loc matches an element.
func Resolve(loc dom.Locator) Step { return Step{Kind: StepResolve, Locator: loc} }

// Act delivers a to the first element matching loc.
func Act(loc dom.Locator, a driver.Action) Step { return Step{Kind: StepAct, Locator: loc, Action: a} }

// Click clicks the first element matching loc.
func Click(loc dom.Locator) Step { return Act(loc, driver.Click()) }

// TypeInto types text into the first element matching loc.
func TypeInto(loc dom.Locator, text string) Step { return Act(loc, driver.Type(text)) }

// Press sends key to the first element matching loc.
func Press(loc dom.Locator, key string) Step { return Act(loc, driver.Press(key)) }

// Assert waits until the elements matching loc satisfy exp.
func Assert(loc dom.Locator, exp expect.Expectation) Step {
	return Step{Kind: StepAssert, Locator: loc, Expect: exp}
}

// Wait pauses for d on the run's clock.
func Wait(d time.Duration) Step { return Step{Kind: StepWait, Wait: d} }

// Forced returns a copy of s that skips actionability checks.
func (s Step) Forced() Step {
	s.Force = true
	return s
}

// Within returns a copy of s with its own poll budget.
func (s Step) Within(timeout, interval time.Duration) Step {
	s.Timeout = timeout
	s.Interval = interval
	return s
}

// Validate checks the step has what its kind needs.
func (s Step) Validate() error {
	if s.Force && s.Kind != StepAct {
		return fmt.Errorf("force only applies to actions, not %s", s.Kind)
	}
	switch s.Kind {
	case StepNavigate:
		if s.Path == "" {
			return errors.New("navigate requires a path")
		}
	case StepResolve:
		return s.Locator.Validate()
	case StepAct:
		if err := s.Locator.Validate(); err != nil {
			return err
		}
		return s.Action.Validate()
	case StepAssert:
		if err := s.Locator.Validate(); err != nil {
			return err
		}
		return s.Expect.Validate()
	case StepWait:
		if s.Wait <= 0 {
			return errors.New("wait requires a positive duration")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// String describes the step for logs and reports.
func (s Step) String() string {
	var b strings.Builder
	switch s.Kind {
	case StepNavigate:
		b.WriteString("navigate " + s.Path)
	case StepResolve:
		b.WriteString("resolve " + s.Locator.String())
	case StepAct:
		b.WriteString(s.Action.String())
		if s.Action.Kind == driver.ActionType {
			b.WriteString(" into")
		}
		b.WriteString(" " + s.Locator.String())
	case StepAssert:
		fmt.Fprintf(&b, "assert %s should %s", s.Locator, s.Expect)
	case StepWait:
		b.WriteString("wait " + s.Wait.String())
	default:
		b.WriteString(string(s.Kind))
	}
	if s.Force {
		b.WriteString(" (force)")
	}
	return b.String()
}

func (s Step) actionOptions() action.Options {
	return action.Options{Force: s.Force, Timeout: s.Timeout, Interval: s.Interval}
}

func (s Step) expectOptions() expect.Options {
	return expect.Options{Timeout: s.Timeout, Interval: s.Interval}
}
