package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/runner"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of run history.
type RunSummary struct {
	ID        string        `json:"id"`
	Seq       int64         `json:"seq"`
	Suite     string        `json:"suite"`
	File      string        `json:"file,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
}

// OK reports whether every case of the run passed.
func (r RunSummary) OK() bool {
	return r.Failed == 0 && r.Passed == r.Total
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Suite restricts results to one suite name. Empty means all.
	Suite string
	// Limit caps the number of runs returned. Zero means no cap.
	Limit int
}

// ListRuns returns recorded runs, newest first (highest seq first).
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	query := `
		SELECT id, seq, suite, file, started_at, duration_ms, total, passed, failed
		FROM runs
		WHERE (? = '' OR suite = ?)
		ORDER BY seq DESC, id COLLATE BINARY ASC
	`
	args := []any{opts.Suite, opts.Suite}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun rebuilds the report of a recorded run, cases and steps in the
// order they ran. Returns ErrRunNotFound if id is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (*runner.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, suite, file, started_at, duration_ms, total, passed, failed
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	report := &runner.Report{
		RunID:     run.ID,
		Suite:     run.Suite,
		File:      run.File,
		StartedAt: run.StartedAt,
		Duration:  run.Duration,
		Cases:     []*runner.CaseResult{},
	}

	cases, err := s.readCases(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.readSteps(ctx, id, cases); err != nil {
		return nil, err
	}
	for _, c := range cases {
		report.Cases = append(report.Cases, c.result)
	}
	return report, nil
}

// LatestRun returns the most recent run of suite. Returns ErrRunNotFound
// if the suite has no history.
func (s *Store) LatestRun(ctx context.Context, suite string) (*runner.Report, error) {
	runs, err := s.ListRuns(ctx, ListOptions{Suite: suite, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs of %q", ErrRunNotFound, suite)
	}
	return s.ReadRun(ctx, runs[0].ID)
}

// KindCounts counts failed cases per failure kind across all runs.
func (s *Store) KindCounts(ctx context.Context) (map[failure.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM case_results
		WHERE status = ?
		GROUP BY kind
		ORDER BY kind COLLATE BINARY ASC
	`, string(runner.StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	counts := make(map[failure.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		counts[failure.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinds: %w", err)
	}
	return counts, nil
}

type storedCase struct {
	seq    int
	result *runner.CaseResult
}

func (s *Store) readCases(ctx context.Context, runID string) ([]storedCase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, name, status, kind, reason, failure, duration_ms
		FROM case_results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []storedCase
	for rows.Next() {
		var (
			seq                                       int
			pathJSON, name, status, kind, reason, fjs string
			durationMs                                int64
		)
		if err := rows.Scan(&seq, &pathJSON, &name, &status, &kind, &reason, &fjs, &durationMs); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		path, err := unmarshalPath(pathJSON)
		if err != nil {
			return nil, err
		}
		f, err := unmarshalFailure(fjs)
		if err != nil {
			return nil, err
		}
		cases = append(cases, storedCase{seq: seq, result: &runner.CaseResult{
			Path:     path,
			Name:     name,
			Status:   runner.Status(status),
			Kind:     failure.Kind(kind),
			Reason:   reason,
			Failure:  f,
			Duration: time.Duration(durationMs) * time.Millisecond,
			Steps:    []runner.StepRecord{},
		}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

func (s *Store) readSteps(ctx context.Context, runID string, cases []storedCase) error {
	bySeq := make(map[int]*runner.CaseResult, len(cases))
	for _, c := range cases {
		bySeq[c.seq] = c.result
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT case_seq, seq, scope, hook, description, status, error, duration_ms
		FROM step_results
		WHERE run_id = ?
		ORDER BY case_seq ASC, seq ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			caseSeq    int
			st         runner.StepRecord
			status     string
			durationMs int64
		)
		if err := rows.Scan(&caseSeq, &st.Seq, &st.Scope, &st.Hook, &st.Description, &status, &st.Error, &durationMs); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		st.Status = runner.Status(status)
		st.Duration = time.Duration(durationMs) * time.Millisecond
		if c, ok := bySeq[caseSeq]; ok {
			c.Steps = append(c.Steps, st)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate steps: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		run        RunSummary
		startedAt  string
		durationMs int64
	)
	err := row.Scan(&run.ID, &run.Seq, &run.Suite, &run.File, &startedAt, &durationMs, &run.Total, &run.Passed, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, err
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return RunSummary{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}
