package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/runner"
)

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Reports []*runner.Report     `json:"reports"`
	Passed  int                  `json:"passed"`
	Failed  int                  `json:"failed"`
	Total   int                  `json:"total"`
	ByKind  map[failure.Kind]int `json:"by_kind,omitempty"`
}

func newRunResult(reports []*runner.Report) RunResult {
	res := RunResult{Reports: reports, ByKind: map[failure.Kind]int{}}
	for _, r := range reports {
		res.Passed += r.Passed()
		res.Failed += r.Failed()
		res.Total += len(r.Cases)
		for kind, n := range r.ByKind() {
			res.ByKind[kind] += n
		}
	}
	if len(res.ByKind) == 0 {
		res.ByKind = nil
	}
	return res
}

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	heading  = color.New(color.Bold).SprintFunc()
)

// renderReport writes a report as an indented tree of cases followed by
// the failure details. With verbose set, failed cases list their steps.
func renderReport(w io.Writer, r *runner.Report, verbose bool) {
	title := r.Suite
	if r.File != "" {
		title += "  " + dim("("+r.File+")")
	}
	fmt.Fprintln(w, heading(title))

	var prev []string
	var failed []*runner.CaseResult
	for _, c := range r.Cases {
		// Path[0] is the suite itself.
		for i := 1; i < len(c.Path); i++ {
			if samePrefix(prev, c.Path, i) {
				continue
			}
			fmt.Fprintf(w, "%s%s\n", indent(i), c.Path[i])
		}
		prev = c.Path

		switch c.Status {
		case runner.StatusPassed:
			fmt.Fprintf(w, "%s%s %s %s\n", indent(len(c.Path)), passMark("✓"), c.Name, dim("("+formatDuration(c.Duration)+")"))
		default:
			failed = append(failed, c)
			fmt.Fprintf(w, "%s%s %d) %s\n", indent(len(c.Path)), failMark("✗"), len(failed), c.Name)
		}
	}

	fmt.Fprintln(w)
	for i, c := range failed {
		renderFailure(w, i+1, c, verbose)
	}

	summary := passMark(fmt.Sprintf("%d passing", r.Passed()))
	if n := r.Failed(); n > 0 {
		summary += ", " + failMark(fmt.Sprintf("%d failing", n))
	}
	fmt.Fprintf(w, "%s %s\n", summary, dim("("+formatDuration(r.Duration)+")"))
}

func renderFailure(w io.Writer, n int, c *runner.CaseResult, verbose bool) {
	fmt.Fprintf(w, "  %d) %s\n", n, c.FullName())
	fmt.Fprintf(w, "     %s\n", failMark(c.Reason))
	if f := c.Failure; f != nil {
		if f.Expected != "" {
			fmt.Fprintf(w, "     expected: %s\n", f.Expected)
			fmt.Fprintf(w, "     actual:   %s\n", f.Actual)
		}
		if f.Attempts > 0 {
			fmt.Fprintf(w, "     %s\n", dim(fmt.Sprintf("%d attempts over %s", f.Attempts, formatDuration(f.Elapsed))))
		}
	}
	if verbose {
		for _, st := range c.Steps {
			mark := passMark("✓")
			switch st.Status {
			case runner.StatusFailed:
				mark = failMark("✗")
			case runner.StatusSkipped:
				mark = dim("-")
			}
			where := st.Scope
			if st.Hook != "" && !strings.HasPrefix(st.Hook, st.Scope) {
				where += " " + st.Hook
			}
			fmt.Fprintf(w, "       %s %s %s\n", mark, st.Description, dim("["+where+"]"))
		}
	}
	fmt.Fprintln(w)
}

// renderTotals writes the combined line printed after several reports.
func renderTotals(w io.Writer, res RunResult) {
	fmt.Fprintf(w, "%s: %d suites, %d cases, %s",
		heading("Total"), len(res.Reports), res.Total, passMark(fmt.Sprintf("%d passing", res.Passed)))
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %s", failMark(fmt.Sprintf("%d failing", res.Failed)))
		kinds := make([]string, 0, len(res.ByKind))
		for kind, n := range res.ByKind {
			kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
		}
		sort.Strings(kinds)
		fmt.Fprintf(w, " %s", dim("("+strings.Join(kinds, " ")+")"))
	}
	fmt.Fprintln(w)
}

// samePrefix reports whether a and b agree on their first n+1 elements.
func samePrefix(a, b []string, n int) bool {
	for i := 0; i <= n; i++ {
		if i >= len(a) || i >= len(b) || a[i] != b[i] {
			return false
		}
	}
	return true
}

func indent(level int) string {
	return strings.Repeat("  ", level)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
