package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/config"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/runner"
	"github.com/roach88/uispec/internal/sim"
	"github.com/roach88/uispec/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var testToday = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

// testDeps runs suites against the simulated agenda on a virtual clock.
func testDeps(ids ...string) Deps {
	if len(ids) == 0 {
		ids = []string{"run-1", "run-2", "run-3"}
	}
	return Deps{
		Opener: func(*config.Config, zerolog.Logger) driver.Opener {
			return func(context.Context) (driver.Page, error) {
				return sim.NewAgenda(sim.AgendaOptions{Today: testToday, RenderDelay: 2}), nil
			}
		},
		Now:   func() time.Time { return testToday },
		Clock: testutil.NewVirtualClock(),
		IDs:   runner.NewFixedGenerator(ids...),
	}
}

// execute runs the root command with args and returns its output. Every
// call gets a missing .env file so the host environment file is ignored.
func execute(t *testing.T, deps Deps, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := newRootCommand(deps)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	base := []string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "error"}
	cmd.SetArgs(append(base, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
