package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/uispec/internal/runner"
)

// WriteRun stores a finished run with its cases and steps in one
// transaction and returns the seq assigned to it.
//
// Writing the same run ID twice is a no-op that returns the existing seq,
// so a retried write never duplicates history.
func (s *Store) WriteRun(ctx context.Context, r *runner.Report) (int64, error) {
	if r == nil || r.RunID == "" {
		return 0, fmt.Errorf("write run: run ID is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, r.RunID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, suite, file, started_at, duration_ms, total, passed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		seq,
		r.Suite,
		r.File,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.Duration.Milliseconds(),
		len(r.Cases),
		r.Passed(),
		r.Failed(),
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	for i, c := range r.Cases {
		if err := writeCase(ctx, tx, r.RunID, i+1, c); err != nil {
			return 0, fmt.Errorf("write run: case %q: %w", c.FullName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

func writeCase(ctx context.Context, tx *sql.Tx, runID string, seq int, c *runner.CaseResult) error {
	pathJSON, err := marshalPath(c.Path)
	if err != nil {
		return err
	}
	failureJSON, err := marshalFailure(c.Failure)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO case_results
		(run_id, seq, path, name, status, kind, reason, failure, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		pathJSON,
		c.Name,
		string(c.Status),
		string(c.Kind),
		c.Reason,
		failureJSON,
		c.Duration.Milliseconds(),
	)
	if err != nil {
		return err
	}

	for _, st := range c.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO step_results
			(run_id, case_seq, seq, scope, hook, description, status, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			seq,
			st.Seq,
			st.Scope,
			st.Hook,
			st.Description,
			string(st.Status),
			st.Error,
			st.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("step %d: %w", st.Seq, err)
		}
	}
	return nil
}
