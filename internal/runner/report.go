package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uispec/internal/failure"
)

// Status is the lifecycle state of a case or step.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Scope labels where a recorded step came from.
const (
	ScopeVisit     = "visit"
	ScopeBeforeAll = "before_all"
	ScopeBefore    = "before"
	ScopeCase      = "case"
)

// StepRecord is one executed (or skipped) step in a case's log.
type StepRecord struct {
	Seq         int           `json:"seq"`
	Scope       string        `json:"scope"`
	Hook        string        `json:"hook,omitempty"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Path     []string         `json:"path"`
	Name     string           `json:"name"`
	Status   Status           `json:"status"`
	Kind     failure.Kind     `json:"kind,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Failure  *failure.Failure `json:"-"`
	Duration time.Duration    `json:"duration_ns"`
	Steps    []StepRecord     `json:"steps"`
}

// FullName joins the enclosing scope names and the case name.
func (c *CaseResult) FullName() string {
	return strings.Join(append(append([]string(nil), c.Path...), c.Name), " > ")
}

// Outcome renders the case as pass or fail(reason).
func (c *CaseResult) Outcome() string {
	switch c.Status {
	case StatusPassed:
		return "pass"
	case StatusFailed:
		return fmt.Sprintf("fail(%s)", c.Reason)
	default:
		return string(c.Status)
	}
}

// legal lists the transitions a case may make.
var legal = map[Status][]Status{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusPassed, StatusFailed},
}

// advance moves the case to next. Illegal transitions are programming
// errors and panic.
func (c *CaseResult) advance(next Status) {
	for _, s := range legal[c.Status] {
		if s == next {
			c.Status = next
			return
		}
	}
	panic(fmt.Sprintf("runner: illegal case transition %s -> %s for %q", c.Status, next, c.FullName()))
}

// fail records f and moves the case to failed.
func (c *CaseResult) fail(f *failure.Failure) {
	c.advance(StatusFailed)
	c.Failure = f
	c.Kind = f.Kind
	c.Reason = f.Error()
}

func (c *CaseResult) record(r StepRecord) {
	r.Seq = len(c.Steps) + 1
	c.Steps = append(c.Steps, r)
}

// Report is the outcome of running one suite.
type Report struct {
	RunID     string        `json:"run_id"`
	Suite     string        `json:"suite"`
	File      string        `json:"file,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Cases     []*CaseResult `json:"cases"`
}

// Passed returns the number of passing cases.
func (r *Report) Passed() int {
	return r.count(StatusPassed)
}

// Failed returns the number of failing cases, skipped ones included.
func (r *Report) Failed() int {
	return r.count(StatusFailed)
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Failed() == 0 && r.count(StatusPending)+r.count(StatusRunning) == 0
}

// ByKind counts failed cases per failure kind.
func (r *Report) ByKind() map[failure.Kind]int {
	out := make(map[failure.Kind]int)
	for _, c := range r.Cases {
		if c.Status == StatusFailed {
			out[c.Kind]++
		}
	}
	return out
}

// Case returns the result whose FullName is name, or nil.
func (r *Report) Case(name string) *CaseResult {
	for _, c := range r.Cases {
		if c.FullName() == name {
			return c
		}
	}
	return nil
}

func (r *Report) count(s Status) int {
	n := 0
	for _, c := range r.Cases {
		if c.Status == s {
			n++
		}
	}
	return n
}
