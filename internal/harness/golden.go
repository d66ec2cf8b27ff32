package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the deterministic part of a result: what ran and how each
// case ended. Durations and failure messages are left out so the golden
// files only change when behavior does.
type Snapshot struct {
	Scenario    string         `json:"scenario"`
	Suite       string         `json:"suite"`
	RunID       string         `json:"run_id"`
	Cases       []CaseSnapshot `json:"cases"`
	Navigations []string       `json:"navigations"`
	Actions     []string       `json:"actions"`
}

// CaseSnapshot is one case in a Snapshot.
type CaseSnapshot struct {
	Case   string `json:"case"`
	Status string `json:"status"`
	Kind   string `json:"kind,omitempty"`
}

// NewSnapshot extracts the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{
		Scenario:    name,
		Suite:       result.Report.Suite,
		RunID:       result.Report.RunID,
		Cases:       make([]CaseSnapshot, len(result.Report.Cases)),
		Navigations: append([]string{}, result.Navigations...),
		Actions:     make([]string, len(result.Dispatched)),
	}
	for i, c := range result.Report.Cases {
		snap.Cases[i] = CaseSnapshot{
			Case:   c.FullName(),
			Status: string(c.Status),
			Kind:   string(c.Kind),
		}
	}
	for i, d := range result.Dispatched {
		snap.Actions[i] = d.Tag + " " + d.Action.String()
	}
	return snap
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// HTML escaping is off so case names keep their ">" separators.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not run. Unmet expectations are
// left in the result for the caller to check.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
