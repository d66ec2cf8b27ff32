package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/failure"
	"github.com/roach88/uispec/internal/poll"
	"github.com/roach88/uispec/internal/runner"
	"github.com/roach88/uispec/internal/sim"
	"github.com/roach88/uispec/internal/testutil"
)

func TestReadRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestReport("run-a", "Event Management")

	_, err := s.WriteRun(ctx, want)
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "run-a")
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Suite, got.Suite)
	assert.Equal(t, want.File, got.File)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Duration, got.Duration)
	require.Len(t, got.Cases, 2)

	passed := got.Cases[0]
	assert.Equal(t, "Event Management > when in daily mode > allows creation with a button", passed.FullName())
	assert.Equal(t, runner.StatusPassed, passed.Status)
	assert.Nil(t, passed.Failure)
	assert.Equal(t, want.Cases[0].Steps, passed.Steps)

	failed := got.Cases[1]
	assert.Equal(t, failure.KindAssertionTimeout, failed.Kind)
	assert.Equal(t, want.Cases[1].Reason, failed.Reason)
	require.NotNil(t, failed.Failure)
	assert.Equal(t, `"Foo"`, failed.Failure.Actual)
	assert.Equal(t, 11, failed.Failure.Attempts)
	assert.Equal(t, time.Second, failed.Failure.Elapsed)
	assert.Equal(t, runner.StatusSkipped, failed.Steps[2].Status)
	assert.Equal(t, 1, got.Passed())
	assert.Equal(t, 1, got.Failed())
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		_, err := s.WriteRun(ctx, createTestReport(id, "Event Management"))
		require.NoError(t, err)
	}
	_, err := s.WriteRun(ctx, createTestReport("run-d", "Navigation"))
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "run-d", runs[0].ID)
	assert.Equal(t, int64(4), runs[0].Seq)

	runs, err = s.ListRuns(ctx, ListOptions{Suite: "Event Management", Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"run-c", "run-b"}, []string{runs[0].ID, runs[1].ID})
	assert.False(t, runs[0].OK())
	assert.Equal(t, 2, runs[0].Total)
}

func TestListRuns_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), ListOptions{Suite: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx, "Event Management")
	assert.ErrorIs(t, err, ErrRunNotFound)

	for _, id := range []string{"run-a", "run-b"} {
		_, err := s.WriteRun(ctx, createTestReport(id, "Event Management"))
		require.NoError(t, err)
	}
	latest, err := s.LatestRun(ctx, "Event Management")
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest.RunID)
}

func TestKindCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"run-a", "run-b"} {
		_, err := s.WriteRun(ctx, createTestReport(id, "Event Management"))
		require.NoError(t, err)
	}

	counts, err := s.KindCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[failure.Kind]int{failure.KindAssertionTimeout: 2}, counts)
}

func TestRecorder_WritesFinishedRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(ctx, s, zerolog.Nop())

	page := sim.NewAgenda(sim.AgendaOptions{Today: testStart})
	r := runner.New(page, runner.Options{
		Poll:     poll.Options{Timeout: time.Second, Interval: 100 * time.Millisecond},
		Clock:    testutil.NewVirtualClock(),
		Logger:   zerolog.Nop(),
		Observer: rec,
		IDs:      runner.NewFixedGenerator("run-rec"),
	})
	suite := &runner.Suite{Context: runner.Context{
		Name: "Recorder",
		Cases: []runner.Case{
			{Name: "finds the add button", Steps: []runner.Step{runner.Resolve(dom.Text("Add Event"))}},
			{Name: "finds no events", Steps: []runner.Step{runner.Assert(dom.CSS(".elm-agenda__schedule-event"), expect.Exist())}},
		},
	}}

	report := r.Run(ctx, suite)

	require.NoError(t, rec.Err())
	assert.Equal(t, int64(1), rec.Seq())

	stored, err := s.ReadRun(ctx, "run-rec")
	require.NoError(t, err)
	require.Len(t, stored.Cases, 2)
	assert.Equal(t, report.Cases[0].Outcome(), stored.Cases[0].Outcome())
	assert.Equal(t, failure.KindAssertionTimeout, stored.Cases[1].Kind)
	assert.Equal(t, report.Cases[1].Reason, stored.Cases[1].Reason)
}

func TestRecorder_RecordsInterruptedRun(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := NewRecorder(ctx, s, zerolog.Nop())

	page := sim.NewAgenda(sim.AgendaOptions{Today: testStart})
	r := runner.New(page, runner.Options{
		Poll:     poll.Options{Timeout: time.Second, Interval: 100 * time.Millisecond},
		Clock:    testutil.NewVirtualClock(),
		Logger:   zerolog.Nop(),
		Observer: rec,
		IDs:      runner.NewFixedGenerator("run-interrupted"),
	})
	suite := &runner.Suite{Context: runner.Context{
		Name: "Interrupted",
		Cases: []runner.Case{
			{Name: "finds the add button", Steps: []runner.Step{runner.Resolve(dom.Text("Add Event"))}},
		},
	}}

	r.Run(ctx, suite)

	require.NoError(t, rec.Err())
	assert.Equal(t, int64(1), rec.Seq())

	stored, err := s.ReadRun(context.Background(), "run-interrupted")
	require.NoError(t, err)
	require.Len(t, stored.Cases, 1)
	assert.Equal(t, failure.KindTimeout, stored.Cases[0].Kind)
}
