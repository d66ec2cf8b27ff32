package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Suite  string
	Limit  int
	Show   string
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Runs   []store.RunSummary   `json:"runs"`
	ByKind map[failure.Kind]int `json:"by_kind"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with "uispec run --db", newest first.

Use --show <run-id> to print one run's full report.

Examples:
  uispec history --db runs.db
  uispec history --db runs.db --suite "Event Management" --limit 5
  uispec history --db runs.db --show 01926f3e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "run history database (overrides config)")
	cmd.Flags().StringVar(&opts.Suite, "suite", "", "only runs of this suite")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Show, "show", "", "print the report of this run ID")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		formatter.Error(ErrCodeStore, "no database: pass --db or set db_path", nil)
		return NewExitError(ExitCommandError, "no database configured")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open run history", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Show != "" {
		return showRun(ctx, cmd, formatter, st, opts.Show)
	}

	runs, err := st.ListRuns(ctx, store.ListOptions{Suite: opts.Suite, Limit: opts.Limit})
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run history", err)
	}
	kinds, err := st.KindCounts(ctx)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run history", err)
	}

	if opts.Format == "json" {
		return formatter.Success(HistoryResult{Runs: runs, ByKind: kinds})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		mark := passMark("✓")
		if !run.OK() {
			mark = failMark("✗")
		}
		fmt.Fprintf(w, "%s #%d %s  %s  %d/%d passed  %s\n",
			mark,
			run.Seq,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Suite,
			run.Passed,
			run.Total,
			dim(run.ID),
		)
	}
	if len(kinds) > 0 {
		parts := make([]string, 0, len(kinds))
		for kind, n := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
		}
		sort.Strings(parts)
		fmt.Fprintf(w, "\nFailures by kind: %s\n", strings.Join(parts, " "))
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, formatter *OutputFormatter, st *store.Store, id string) error {
	report, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	renderReport(cmd.OutOrStdout(), report, formatter.Verbose)
	return nil
}
