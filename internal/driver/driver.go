// Package driver defines the boundary between the harness and the page
// under test.
//
// A Page is the only way the harness touches the application: it loads a
// route, hands out read-only snapshots of the DOM, and delivers synthetic
// input to an element resolved from a snapshot. Implementations live in
// driver/chrome (a real browser over the DevTools protocol) and sim (an
// in-memory page for tests).
package driver

import (
	"context"
	"errors"

	"github.com/roach88/uispec/internal/dom"
)

// ErrStale is returned by Dispatch when the handle was resolved from a
// snapshot generation that no longer matches the page. Callers re-resolve.
var ErrStale = errors.New("element handle is stale")

// ErrClosed is returned by every Page method after Close.
var ErrClosed = errors.New("page is closed")

// Page is a loaded application the harness can observe and drive.
//
// Implementations must be safe to call from the single goroutine running a
// test; they need not support concurrent callers.
type Page interface {
	// Navigate loads path relative to the page's base URL and waits for the
	// initial render.
	Navigate(ctx context.Context, path string) error

	// Snapshot captures the current DOM with element annotations.
	Snapshot(ctx context.Context) (*dom.Snapshot, error)

	// Dispatch delivers a synthetic action to the element behind h.
	// It returns ErrStale (possibly wrapped) if h no longer identifies a
	// live element.
	Dispatch(ctx context.Context, h dom.ElementHandle, a Action) error

	// Close releases the page.
	Close() error
}

// Opener creates a page. The CLI uses it to defer browser startup until a
// suite is about to run.
type Opener func(ctx context.Context) (Page, error)
