package poll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/testutil"
)

var errMismatch = errors.New("mismatch")

func TestPoll_SucceedsImmediately(t *testing.T) {
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, clock)

	calls := 0
	err := p.Poll(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, clock.Waits())
}

func TestPoll_RetriesUntilConditionHolds(t *testing.T) {
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, clock)

	calls := 0
	err := p.Poll(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errMismatch
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 200*time.Millisecond, clock.Elapsed())
}

func TestPoll_TimeoutCarriesLastMismatch(t *testing.T) {
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, clock)

	calls := 0
	err := p.Poll(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("found %d elements", calls)
	})

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.False(t, te.Aborted())
	assert.Equal(t, 11, te.Attempts, "attempts at 0ms, 100ms ... 1000ms")
	assert.Equal(t, time.Second, te.Elapsed)
	assert.EqualError(t, te.Last, "found 11 elements")
	assert.Contains(t, err.Error(), "timed out after 1s (11 attempts): found 11 elements")
}

func TestPoll_FinalAttemptAtDeadline(t *testing.T) {
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: time.Second, Interval: 300 * time.Millisecond}, clock)

	// Becomes true at 950ms: ticks land on 0, 300, 600, 900 and then the
	// deadline itself, which must still observe it.
	readyAt := testutil.Epoch.Add(950 * time.Millisecond)
	err := p.Poll(context.Background(), func(context.Context) error {
		if clock.Now().Before(readyAt) {
			return errMismatch
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, time.Second, clock.Elapsed())
}

func TestPoll_NeverExceedsTimeoutPlusInterval(t *testing.T) {
	budgets := []Options{
		{Timeout: time.Second, Interval: 300 * time.Millisecond},
		{Timeout: 100 * time.Millisecond, Interval: time.Second},
		{Timeout: 4 * time.Second, Interval: 50 * time.Millisecond},
	}
	for _, opts := range budgets {
		t.Run(fmt.Sprintf("%s/%s", opts.Timeout, opts.Interval), func(t *testing.T) {
			clock := testutil.NewVirtualClock()
			err := New(opts, clock).Poll(context.Background(), func(context.Context) error {
				return errMismatch
			})
			require.True(t, IsTimeout(err))
			assert.LessOrEqual(t, clock.Elapsed(), opts.Timeout+opts.Interval)
		})
	}
}

func TestPoll_PermanentStopsImmediately(t *testing.T) {
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, clock)

	boom := errors.New("browser disconnected")
	calls := 0
	err := p.Poll(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsTimeout(err))
}

func TestPoll_UnwrapFindsLastMismatch(t *testing.T) {
	type notFound struct{ error }
	clock := testutil.NewVirtualClock()
	p := New(Options{Timeout: 200 * time.Millisecond, Interval: 100 * time.Millisecond}, clock)

	err := p.Poll(context.Background(), func(context.Context) error {
		return &notFound{errMismatch}
	})

	var nf *notFound
	assert.True(t, errors.As(err, &nf))
}

func TestPoll_CancelledContextReportsTimeout(t *testing.T) {
	p := New(Options{Timeout: 10 * time.Second, Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Poll(ctx, func(context.Context) error { return errMismatch })
	elapsed := time.Since(start)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Aborted())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errMismatch)
	assert.Less(t, elapsed, 5*time.Second, "cancellation must not wait for the budget")
	assert.Contains(t, err.Error(), "aborted after")
}

func TestPoll_AlreadyCancelledContext(t *testing.T) {
	p := New(Options{}, testutil.NewVirtualClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.Poll(ctx, func(context.Context) error {
		calls++
		return nil
	})

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, calls)
	assert.Nil(t, te.Last)
}

func TestPoll_WallClockBound(t *testing.T) {
	opts := Options{Timeout: 100 * time.Millisecond, Interval: 20 * time.Millisecond}
	p := New(opts, nil)

	start := time.Now()
	err := p.Poll(context.Background(), func(context.Context) error { return errMismatch })
	elapsed := time.Since(start)

	require.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, opts.Timeout)
	// Generous slack for scheduler jitter on busy CI machines.
	assert.Less(t, elapsed, opts.Timeout+opts.Interval+250*time.Millisecond)
}

func TestOptions_DefaultsAndMerge(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultInterval, o.Interval)

	merged := o.Merge(Options{Timeout: time.Second})
	assert.Equal(t, time.Second, merged.Timeout)
	assert.Equal(t, DefaultInterval, merged.Interval)

	assert.Equal(t, Options{Timeout: 1500 * time.Millisecond, Interval: 25 * time.Millisecond}, FromMillis(1500, 25))
}

func TestPoller_WithSharesClock(t *testing.T) {
	clock := testutil.NewVirtualClock()
	base := New(Options{Timeout: time.Second}, clock)
	derived := base.With(Options{Interval: 10 * time.Millisecond})

	assert.Same(t, clock, derived.Clock())
	assert.Equal(t, time.Second, derived.Options().Timeout)
	assert.Equal(t, 10*time.Millisecond, derived.Options().Interval)
	assert.Equal(t, DefaultInterval, base.Options().Interval)
}
