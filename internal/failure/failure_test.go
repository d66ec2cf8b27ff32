package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/poll"
)

func TestFailure_ErrorFormat(t *testing.T) {
	f := New(KindNotFound, "no element matched %s", ".input")
	assert.Equal(t, "NotFound: no element matched .input", f.Error())

	withStep := f.WithStep(`type ".input"`)
	assert.Equal(t, `NotFound: no element matched .input (step=type ".input")`, withStep.Error())
	assert.Empty(t, f.Step, "WithStep must not mutate the receiver")
}

func TestFrom_PassesThroughFailures(t *testing.T) {
	orig := New(KindNotActionable, "covered")
	wrapped := fmt.Errorf("step 3: %w", orig)

	got := From(wrapped)
	assert.Same(t, orig, got)
	assert.True(t, IsNotActionable(wrapped))
	assert.False(t, IsNotFound(wrapped))
}

func TestFrom_Classification(t *testing.T) {
	te := &poll.TimeoutError{Last: errors.New("mismatch"), Attempts: 5, Elapsed: 200 * time.Millisecond}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"poll timeout", te, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", fmt.Errorf("navigate: %w", context.Canceled), KindTimeout},
		{"driver error", errors.New("websocket closed"), KindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}

	f := From(te)
	assert.Equal(t, 5, f.Attempts)
	assert.Equal(t, 200*time.Millisecond, f.Elapsed)
	assert.Nil(t, From(nil))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestNewAssertionTimeout(t *testing.T) {
	te := &poll.TimeoutError{Last: errors.New("mismatch"), Attempts: 81, Elapsed: 4 * time.Second}
	f := NewAssertionTimeout("div.label", `contain "My event"`, `"Foo"`, te)

	assert.True(t, IsAssertionTimeout(f))
	assert.Equal(t, `contain "My event"`, f.Expected)
	assert.Equal(t, `"Foo"`, f.Actual)
	assert.Equal(t, 81, f.Attempts)
	assert.Contains(t, f.Error(), `expected div.label to contain "My event", but saw "Foo"`)
	assert.ErrorIs(t, f, te)
}

func TestNewAssertionTimeout_AbortedBecomesTimeout(t *testing.T) {
	te := &poll.TimeoutError{Cause: context.DeadlineExceeded}
	f := NewAssertionTimeout("div.label", "exist", "nothing", te)

	assert.True(t, IsTimeout(f))
	assert.ErrorIs(t, f, context.DeadlineExceeded)
}

func TestNewHookFailed(t *testing.T) {
	cause := New(KindNotFound, "no element matched text %q", "Daily")
	f := NewHookFailed("before #1", cause)

	assert.True(t, IsHookFailed(f))
	assert.Contains(t, f.Error(), `before hook "before #1" failed`)
	assert.Contains(t, f.Error(), "Daily")
	assert.True(t, errors.Is(f, cause))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("assertiontimeout")
	require.NoError(t, err)
	assert.Equal(t, KindAssertionTimeout, got)

	_, err = ParseKind("Flaky")
	assert.Error(t, err)
}
