package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uispec/internal/failure"
)

// failureRecord is the stored form of a case failure. The cause error is
// flattened to its message.
type failureRecord struct {
	Kind      failure.Kind `json:"kind"`
	Message   string       `json:"message"`
	Step      string       `json:"step,omitempty"`
	Locator   string       `json:"locator,omitempty"`
	Expected  string       `json:"expected,omitempty"`
	Actual    string       `json:"actual,omitempty"`
	Attempts  int          `json:"attempts,omitempty"`
	ElapsedMs int64        `json:"elapsed_ms,omitempty"`
	Cause     string       `json:"cause,omitempty"`
}

// marshalFailure converts a failure to JSON TEXT. A nil failure stores as {}.
// HTML escaping is disabled so locators like a > b stay readable in the
// database.
func marshalFailure(f *failure.Failure) (string, error) {
	if f == nil {
		return "{}", nil
	}
	rec := failureRecord{
		Kind:      f.Kind,
		Message:   f.Message,
		Step:      f.Step,
		Locator:   f.Locator,
		Expected:  f.Expected,
		Actual:    f.Actual,
		Attempts:  f.Attempts,
		ElapsedMs: f.Elapsed.Milliseconds(),
	}
	if f.Err != nil {
		rec.Cause = f.Err.Error()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("marshal failure: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalFailure parses JSON TEXT back into a failure. {} yields nil.
func unmarshalFailure(data string) (*failure.Failure, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var rec failureRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal failure: %w", err)
	}
	f := &failure.Failure{
		Kind:     rec.Kind,
		Message:  rec.Message,
		Step:     rec.Step,
		Locator:  rec.Locator,
		Expected: rec.Expected,
		Actual:   rec.Actual,
		Attempts: rec.Attempts,
		Elapsed:  time.Duration(rec.ElapsedMs) * time.Millisecond,
	}
	if rec.Cause != "" {
		f.Err = storedError(rec.Cause)
	}
	return f, nil
}

// storedError is a cause read back from the database.
type storedError string

func (e storedError) Error() string { return string(e) }

// marshalPath stores a case's enclosing scope names as a JSON array.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := json.Marshal(path)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}

func unmarshalPath(data string) ([]string, error) {
	var path []string
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	return path, nil
}
