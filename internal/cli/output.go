package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Process exit codes. A run whose cases fail exits 1; anything that keeps
// cases from running at all exits 2.
const (
	ExitFailure      = 1
	ExitCommandError = 2
)

// Error codes carried in the JSON envelope. E1xx codes report test
// outcomes, E0xx codes report why the command could not do its job.
const (
	ErrCodeConfig      = "E002" // config file, env file or flag value
	ErrCodeNoSuites    = "E003"
	ErrCodeLoadFailed  = "E004" // suite file did not parse or validate
	ErrCodeNotFound    = "E005" // path or recorded run
	ErrCodeBrowser     = "E006"
	ErrCodeStore       = "E007" // history database
	ErrCodeCasesFailed = "E100"
)

// ExitError carries the process exit code out of a cobra RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// ExitError count as failed cases.
func GetExitCode(err error) int {
	if exitErr := (*ExitError)(nil); errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results either as text for a terminal or
// as one JSON envelope per command for scripts and CI.
type OutputFormatter struct {
	Format string
	Writer io.Writer
	// ErrWriter receives verbose diagnostics so they never mix into JSON.
	// Nil means Writer.
	ErrWriter io.Writer
	Verbose   bool
}

// Envelope is the JSON document every command prints in json mode.
type Envelope struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
	RunID  string      `json:"run_id,omitempty"`
}

// ErrorBody describes why a command failed. Details holds the partial
// result when there is one, such as the run totals of a failing run.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success prints data.
func (f *OutputFormatter) Success(data interface{}) error {
	return f.SuccessWithRun(data, "")
}

// SuccessWithRun prints data, tagging the envelope with runID when the
// command reported exactly one run.
func (f *OutputFormatter) SuccessWithRun(data interface{}, runID string) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.encode(Envelope{Status: "ok", Data: data, RunID: runID})
}

// Error prints a coded error. In text mode details are shown only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(Envelope{
			Status: "error",
			Error:  &ErrorBody{Code: code, Message: message, Details: details},
		})
	}
	color.New(color.FgRed).Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Case names join their path with " > ", which must survive unescaped.
func (f *OutputFormatter) encode(env Envelope) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(env)
}

// VerboseLog prints a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns where diagnostics go.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
