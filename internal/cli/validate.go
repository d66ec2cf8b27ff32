package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uispec/internal/suite"
)

// SuiteSummary describes one valid suite file.
type SuiteSummary struct {
	File     string          `json:"file"`
	Name     string          `json:"name"`
	Cases    int             `json:"cases"`
	Warnings []suite.Warning `json:"warnings,omitempty"`
}

// SuiteProblem describes one suite file that failed to load.
type SuiteProblem struct {
	File    string `json:"file"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Suites []SuiteSummary `json:"suites"`
	Errors []SuiteProblem `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite-file-or-dir>...",
		Short: "Validate suite files without running them",
		Long: `Load every suite file and check it is well formed: known fields only,
exactly one action per step, valid selectors and keys, unique case names.
Page actions in before_all are reported as warnings; they do not fail
validation.

No browser is started.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, deps, args)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, deps Deps, paths []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	files, err := suite.Discover(paths)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find suites", err)
	}
	if len(files) == 0 {
		formatter.Error(ErrCodeNoSuites, "no suite files found", paths)
		return NewExitError(ExitCommandError, "no suite files found")
	}

	result := ValidationResult{Valid: true, Suites: []SuiteSummary{}}
	loader := suite.Loader{Now: deps.Now}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		s, warnings, err := loader.Check(file)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, problemFor(file, err))
			continue
		}
		result.Suites = append(result.Suites, SuiteSummary{File: file, Name: s.Name, Cases: s.CountCases(), Warnings: warnings})
	}

	if opts.Format == "json" {
		if result.Valid {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else if err := formatter.Error(ErrCodeLoadFailed, "validation failed", result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, s := range result.Suites {
			fmt.Fprintf(w, "%s %s: %s (%d cases)\n", passMark("✓"), s.File, s.Name, s.Cases)
			for _, warn := range s.Warnings {
				fmt.Fprintf(w, "  %s %s\n", warnMark("warning:"), warn)
			}
		}
		for _, p := range result.Errors {
			fmt.Fprintf(w, "%s %s\n", failMark("✗"), p.Message)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d suite files invalid", len(result.Errors), len(files)))
	}
	return nil
}

func problemFor(file string, err error) SuiteProblem {
	p := SuiteProblem{File: file, Message: err.Error()}
	var le *suite.LoadError
	if errors.As(err, &le) && le.Pos.IsValid() {
		p.Line = le.Pos.Line()
	}
	return p
}
