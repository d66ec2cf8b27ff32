package suite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/poll"
	"github.com/roach88/uispec/internal/runner"
	"github.com/roach88/uispec/internal/sim"
	"github.com/roach88/uispec/internal/testutil"
)

var today = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

func loader() Loader {
	return Loader{Now: func() time.Time { return today }}
}

func run(t *testing.T, s *runner.Suite) *runner.Report {
	t.Helper()
	page := sim.NewAgenda(sim.AgendaOptions{Today: today, RenderDelay: 2})
	r := runner.New(page, runner.Options{
		Poll:   poll.Options{Timeout: time.Second, Interval: 100 * time.Millisecond},
		Clock:  testutil.NewVirtualClock(),
		Logger: zerolog.Nop(),
		IDs:    runner.NewFixedGenerator("run-1"),
	})
	return r.Run(context.Background(), s)
}

func requireAllPassed(t *testing.T, report *runner.Report) {
	t.Helper()
	require.NotEmpty(t, report.Cases)
	for _, c := range report.Cases {
		assert.Equal(t, runner.StatusPassed, c.Status, "%s: %s", c.FullName(), c.Reason)
	}
}

func TestLoad_EventManagementYAML(t *testing.T) {
	s, err := loader().Load(filepath.Join("testdata", "event_management.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Event Management", s.Name)
	assert.Equal(t, "/", s.VisitPath())
	assert.Equal(t, 3, s.CountCases())
	require.Len(t, s.Contexts, 1)

	daily := s.Contexts[0]
	require.Len(t, daily.Before, 1)
	assert.Equal(t, runner.Click(dom.Text("Daily")), daily.Before[0].Steps[0])

	deletion := daily.Cases[2]
	assert.Equal(t, runner.Click(dom.Text("X")).Forced(), deletion.Steps[3])
	assert.Equal(t,
		runner.Assert(dom.CSS("div.elm-agenda__schedule-event-label"), expect.NotContain("Foo bar event")),
		deletion.Steps[4])

	requireAllPassed(t, run(t, s))
}

func TestLoad_EventManagementCUE(t *testing.T) {
	s, err := loader().Load(filepath.Join("testdata", "event_management.cue"))
	require.NoError(t, err)

	assert.Equal(t, 2, s.CountCases())
	last := s.Contexts[0].Cases[1].Steps
	assert.Equal(t, expect.NotExist(), last[len(last)-1].Expect)

	requireAllPassed(t, run(t, s))
}

func TestLoad_NavigationExpandsDates(t *testing.T) {
	s, err := loader().Load(filepath.Join("testdata", "navigation.yaml"))
	require.NoError(t, err)

	opens := s.Cases[0].Steps[0]
	assert.Equal(t, expect.Contain("Mon Oct 19 2026"), opens.Expect)

	back := s.Cases[2].Steps
	require.Len(t, back, 3, "times: 2 expands to two clicks")
	assert.Equal(t, back[0], back[1])
	assert.Equal(t, expect.Contain("Sat Oct 17 2026"), back[2].Expect)

	requireAllPassed(t, run(t, s))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		file    string
		message string
	}{
		{"unknown_field.yaml", "field clik not found"},
		{"two_keys.yaml", "step sets navigate, click; exactly one is allowed"},
		{"no_name.yaml", "name is required"},
		{"unknown_field.cue", "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("testdata", "invalid", tt.file)
			_, err := loader().Load(path)
			require.Error(t, err)
			assert.True(t, IsLoadError(err), "got %T", err)
			assert.Contains(t, err.Error(), path)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoad_CUEErrorCarriesPosition(t *testing.T) {
	_, err := loader().Load(filepath.Join("testdata", "invalid", "unknown_field.cue"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Pos.IsValid())
	assert.Equal(t, 4, le.Pos.Line())
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("load.go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported suite format")

	_, err = ParseYAML([]byte("name: [unclosed"), "broken.yaml")
	assert.True(t, IsLoadError(err))
}

func TestDiscover(t *testing.T) {
	files, err := Discover([]string{"testdata", filepath.Join("testdata", "navigation.yaml")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("testdata", "event_management.cue"),
		filepath.Join("testdata", "event_management.yaml"),
		filepath.Join("testdata", "invalid", "no_name.yaml"),
		filepath.Join("testdata", "invalid", "two_keys.yaml"),
		filepath.Join("testdata", "invalid", "unknown_field.cue"),
		filepath.Join("testdata", "invalid", "unknown_field.yaml"),
		filepath.Join("testdata", "navigation.yaml"),
	}, files)

	_, err = Discover([]string{"testdata/missing"})
	assert.Error(t, err)
}
