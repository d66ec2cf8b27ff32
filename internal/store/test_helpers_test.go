package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/runner"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

// createTestReport builds a two-case report: one pass, one assertion failure.
func createTestReport(runID, suite string) *runner.Report {
	return &runner.Report{
		RunID:     runID,
		Suite:     suite,
		File:      "suites/" + suite + ".yaml",
		StartedAt: testStart,
		Duration:  1500 * time.Millisecond,
		Cases: []*runner.CaseResult{
			{
				Path:     []string{suite, "when in daily mode"},
				Name:     "allows creation with a button",
				Status:   runner.StatusPassed,
				Duration: 700 * time.Millisecond,
				Steps: []runner.StepRecord{
					{Seq: 1, Scope: runner.ScopeVisit, Description: "navigate /", Status: runner.StatusPassed},
					{Seq: 2, Scope: runner.ScopeBefore, Hook: "before", Description: `click text "Daily"`, Status: runner.StatusPassed, Duration: 100 * time.Millisecond},
					{Seq: 3, Scope: runner.ScopeCase, Description: `click text "Add Event"`, Status: runner.StatusPassed, Duration: 200 * time.Millisecond},
				},
			},
			{
				Path:   []string{suite},
				Name:   "saves the wrong event",
				Status: runner.StatusFailed,
				Kind:   failure.KindAssertionTimeout,
				Reason: `AssertionTimeout: expected div.label to contain "My event", but saw "Foo"`,
				Failure: &failure.Failure{
					Kind:     failure.KindAssertionTimeout,
					Message:  `expected div.label to contain "My event", but saw "Foo"`,
					Step:     `assert div.label should contain "My event"`,
					Locator:  "div.label",
					Expected: `contain "My event"`,
					Actual:   `"Foo"`,
					Attempts: 11,
					Elapsed:  time.Second,
				},
				Duration: 800 * time.Millisecond,
				Steps: []runner.StepRecord{
					{Seq: 1, Scope: runner.ScopeVisit, Description: "navigate /", Status: runner.StatusPassed},
					{Seq: 2, Scope: runner.ScopeCase, Description: `assert div.label should contain "My event"`, Status: runner.StatusFailed, Error: "timed out", Duration: time.Second},
					{Seq: 3, Scope: runner.ScopeCase, Description: `click text "X" (force)`, Status: runner.StatusSkipped},
				},
			},
		},
	}
}
