package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uispec/internal/config"
	"github.com/roach88/uispec/internal/runner"
	"github.com/roach88/uispec/internal/store"
	"github.com/roach88/uispec/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL        string
	TimeoutMs      int
	IntervalMs     int
	SuiteTimeoutMs int
	Filter         string
	Bail           bool
	Progress       bool
	DBPath         string
	Headed         bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite-file-or-dir>...",
		Short: "Run suites against the application",
		Long: `Run suite files against a browser pointed at the application.

Directories are searched for .yaml, .yml and .cue suites. Each case starts
from a fresh page at the suite's visit path.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid suite, bad config, browser did not start, etc.)

Examples:
  uispec run ./suites
  uispec run ./suites/navigation.yaml --base-url http://localhost:8000
  uispec run ./suites --filter "*daily mode*" --bail
  uispec run ./suites --db runs.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(cmd, opts, deps, args)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "application URL (overrides config)")
	cmd.Flags().IntVar(&opts.TimeoutMs, "timeout-ms", 0, "default step timeout in milliseconds")
	cmd.Flags().IntVar(&opts.IntervalMs, "interval-ms", 0, "default poll interval in milliseconds")
	cmd.Flags().IntVar(&opts.SuiteTimeoutMs, "suite-timeout-ms", 0, "bound on each suite run in milliseconds")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only cases whose full name matches (glob or substring)")
	cmd.Flags().BoolVar(&opts.Bail, "bail", false, "stop after the first failing case")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "show a progress bar on stderr")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record runs in this SQLite database (overrides config)")
	cmd.Flags().BoolVar(&opts.Headed, "headed", false, "show the browser window")

	return cmd
}

// applyFlags overrides config values with the flags the user set.
func (o *RunOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("timeout-ms") {
		cfg.TimeoutMs = o.TimeoutMs
	}
	if flags.Changed("interval-ms") {
		cfg.IntervalMs = o.IntervalMs
	}
	if flags.Changed("suite-timeout-ms") {
		cfg.SuiteTimeoutMs = o.SuiteTimeoutMs
	}
	if flags.Changed("db") {
		cfg.DBPath = o.DBPath
	}
	if o.Headed {
		cfg.Browser.Headless = false
	}
	return cfg.Validate()
}

func runSuites(cmd *cobra.Command, opts *RunOptions, deps Deps, paths []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err == nil {
		err = opts.applyFlags(cmd, cfg)
	}
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	suites, err := loadSuites(paths, deps, formatter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var observers runner.Observers
	if opts.Progress && opts.Format != "json" {
		observers = append(observers, newProgressObserver(cmd.ErrOrStderr()))
	}

	var recorder *store.Recorder
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open run history", err)
		}
		defer st.Close()
		recorder = store.NewRecorder(ctx, st, logger)
		observers = append(observers, recorder)
	}

	page, err := deps.Opener(cfg, logger)(ctx)
	if err != nil {
		formatter.Error(ErrCodeBrowser, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open page", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close page")
		}
	}()

	r := runner.New(page, runner.Options{
		Poll:         cfg.PollOptions(),
		SuiteTimeout: cfg.SuiteTimeout(),
		Bail:         opts.Bail,
		Filter:       opts.Filter,
		Clock:        deps.Clock,
		Logger:       logger,
		Observer:     observers,
		IDs:          deps.IDs,
	})

	var reports []*runner.Report
	for _, s := range suites {
		formatter.VerboseLog("Running %s (%d cases)", s.Name, s.CountCases())
		report := r.Run(ctx, s)
		reports = append(reports, report)
		if recorder != nil && recorder.Err() != nil {
			logger.Warn().Err(recorder.Err()).Msg("run not recorded")
		}
		if opts.Bail && !report.OK() {
			break
		}
	}

	result := newRunResult(reports)
	if opts.Format == "json" {
		var runID string
		if len(reports) == 1 {
			runID = reports[0].RunID
		}
		var err error
		if result.Failed > 0 {
			err = formatter.Error(ErrCodeCasesFailed, fmt.Sprintf("%d of %d cases failed", result.Failed, result.Total), result)
		} else {
			err = formatter.SuccessWithRun(result, runID)
		}
		if err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			renderReport(w, report, opts.Verbose)
		}
		if len(reports) > 1 {
			fmt.Fprintln(w)
			renderTotals(w, result)
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", result.Failed, result.Total))
	}
	return nil
}

// loadSuites discovers and loads every suite, reporting all load errors
// before giving up.
func loadSuites(paths []string, deps Deps, formatter *OutputFormatter) ([]*runner.Suite, error) {
	files, err := suite.Discover(paths)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to find suites", err)
	}
	if len(files) == 0 {
		formatter.Error(ErrCodeNoSuites, "no suite files found", paths)
		return nil, NewExitError(ExitCommandError, "no suite files found")
	}

	loader := suite.Loader{Now: deps.Now}
	var (
		suites []*runner.Suite
		errs   []error
	)
	for _, file := range files {
		s, err := loader.Load(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		suites = append(suites, s)
	}
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		formatter.Error(ErrCodeLoadFailed, fmt.Sprintf("%d suite file(s) failed to load", len(errs)), messages)
		if formatter.Format != "json" && !formatter.Verbose {
			for _, m := range messages {
				fmt.Fprintf(formatter.Writer, "  %s\n", m)
			}
		}
		return nil, WrapExitError(ExitCommandError, "invalid suites", errors.Join(errs...))
	}
	return suites, nil
}
