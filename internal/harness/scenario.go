package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/runner"
)

// Scenario runs one suite file and states what should happen.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Suite is the path to the suite file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Suite string `yaml:"suite"`

	// Today is the date the agenda opens on, RFC 3339. Date helpers in the
	// suite resolve against it too.
	Today string `yaml:"today"`

	// RenderDelay is how many snapshots pass before an update shows.
	RenderDelay int `yaml:"render_delay,omitempty"`

	// TimeoutMs and IntervalMs set the default step budget (4000/50).
	TimeoutMs  int `yaml:"timeout_ms,omitempty"`
	IntervalMs int `yaml:"interval_ms,omitempty"`

	// Filter and Bail are passed to the runner.
	Filter string `yaml:"filter,omitempty"`
	Bail   bool   `yaml:"bail,omitempty"`

	// Expect lists what must hold after the run.
	Expect []Expectation `yaml:"expect"`
}

// Expectation is one check on a finished run.
type Expectation struct {
	Type string `yaml:"type"`

	// Case is the full case name, for case_outcome.
	Case string `yaml:"case,omitempty"`
	// Status is "passed" or "failed", for case_outcome.
	Status string `yaml:"status,omitempty"`
	// Kind optionally pins the failure kind, for case_outcome.
	Kind string `yaml:"kind,omitempty"`

	// Action is the action kind, for dispatch_count.
	Action string `yaml:"action,omitempty"`
	// Count is the expected number, for navigations and dispatch_count.
	Count int `yaml:"count,omitempty"`
}

// Expectation types.
const (
	ExpectCaseOutcome   = "case_outcome"
	ExpectAllPassed     = "all_passed"
	ExpectNavigations   = "navigations"
	ExpectDispatchCount = "dispatch_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Suite != "" && !filepath.IsAbs(scenario.Suite) {
		scenario.Suite = filepath.Join(filepath.Dir(path), scenario.Suite)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// TodayTime parses Today.
func (s *Scenario) TodayTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.Today)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Suite == "" {
		return fmt.Errorf("suite is required")
	}
	if _, err := os.Stat(s.Suite); os.IsNotExist(err) {
		return fmt.Errorf("suite file not found: %s", s.Suite)
	}

	if _, err := s.TodayTime(); err != nil {
		return fmt.Errorf("today must be an RFC 3339 timestamp: %w", err)
	}

	if s.RenderDelay < 0 || s.TimeoutMs < 0 || s.IntervalMs < 0 {
		return fmt.Errorf("render_delay, timeout_ms and interval_ms must not be negative")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	for i := range s.Expect {
		if err := validateExpectation(i, &s.Expect[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateExpectation validates a single expectation based on its type.
func validateExpectation(index int, e *Expectation) error {
	if e.Type == "" {
		return fmt.Errorf("expect[%d]: type is required", index)
	}

	switch e.Type {
	case ExpectCaseOutcome:
		if e.Case == "" {
			return fmt.Errorf("expect[%d]: case is required for case_outcome", index)
		}
		if e.Status != string(runner.StatusPassed) && e.Status != string(runner.StatusFailed) {
			return fmt.Errorf("expect[%d]: status must be passed or failed, got %q", index, e.Status)
		}
		if e.Kind != "" {
			if e.Status != string(runner.StatusFailed) {
				return fmt.Errorf("expect[%d]: kind only applies to failed cases", index)
			}
			if _, err := failure.ParseKind(e.Kind); err != nil {
				return fmt.Errorf("expect[%d]: %w", index, err)
			}
		}
	case ExpectAllPassed:
	case ExpectNavigations:
		if e.Count < 0 {
			return fmt.Errorf("expect[%d]: count must be non-negative for navigations", index)
		}
	case ExpectDispatchCount:
		if e.Action == "" {
			return fmt.Errorf("expect[%d]: action is required for dispatch_count", index)
		}
		switch driver.ActionKind(e.Action) {
		case driver.ActionClick, driver.ActionType, driver.ActionMouseDown, driver.ActionMouseUp, driver.ActionKeyPress:
		default:
			return fmt.Errorf("expect[%d]: unknown action kind %q", index, e.Action)
		}
		if e.Count < 0 {
			return fmt.Errorf("expect[%d]: count must be non-negative for dispatch_count", index)
		}
	default:
		return fmt.Errorf("expect[%d]: unknown expectation type %q", index, e.Type)
	}

	return nil
}
