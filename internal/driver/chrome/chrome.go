// Package chrome drives a real Chrome tab over the DevTools protocol.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
)

// Options configures the browser.
type Options struct {
	// BaseURL is joined with every navigated path.
	BaseURL string

	Headless   bool
	NoSandbox  bool
	ChromePath string

	WindowWidth  int
	WindowHeight int

	// StartTimeout bounds browser startup. Zero means 30s.
	StartTimeout time.Duration
}

// Page is a driver.Page backed by one Chrome tab.
type Page struct {
	opts   Options
	logger zerolog.Logger

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ driver.Page = (*Page)(nil)

// Open starts a browser and returns a page on a blank tab.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Page, error) {
	if opts.StartTimeout == 0 {
		opts.StartTimeout = 30 * time.Second
	}
	logger = logger.With().Str("component", "chrome").Logger()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("no-sandbox", opts.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	// The browser outlives ctx; Close releases it.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn().Msgf(format, args...)
		}),
	)

	p := &Page{
		opts:        opts,
		logger:      logger,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	startCtx, cancel := context.WithTimeout(ctx, opts.StartTimeout)
	defer cancel()
	if err := p.run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info().Bool("headless", opts.Headless).Msg("browser started")
	return p, nil
}

// Opener returns a driver.Opener that starts a browser with opts.
func Opener(opts Options, logger zerolog.Logger) driver.Opener {
	return func(ctx context.Context) (driver.Page, error) {
		return Open(ctx, opts, logger)
	}
}

// run executes actions on the tab, stopping early when ctx is done.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return driver.ErrClosed
	}

	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// URL joins path onto the base URL. Absolute URLs are used as given.
func (p *Page) URL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(p.opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Navigate loads path and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, path string) error {
	url := p.URL(path)
	p.logger.Debug().Str("url", url).Msg("navigate")
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(installScript, nil),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

type snapshotResult struct {
	Gen  int64  `json:"gen"`
	HTML string `json:"html"`
}

// Snapshot serialises an annotated clone of the live document.
func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	var res snapshotResult
	if err := p.run(ctx, chromedp.Evaluate(snapshotScript, &res)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return dom.Parse(res.HTML, res.Gen)
}

// Dispatch delivers a to the live element behind h.
//
// A handle is stale once its element has left the document. Unlike the
// simulated page, later DOM changes elsewhere do not invalidate it: live
// applications mutate continuously and the element identity is what
// matters here.
func (p *Page) Dispatch(ctx context.Context, h dom.ElementHandle, a driver.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if h.Ref < 0 {
		return fmt.Errorf("%w: %s has no ref", driver.ErrStale, h)
	}

	switch a.Kind {
	case driver.ActionClick, driver.ActionMouseDown, driver.ActionMouseUp:
		return p.mouse(ctx, h, a.Events())
	case driver.ActionType:
		if err := p.focus(ctx, h); err != nil {
			return err
		}
		return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return input.InsertText(a.Text).Do(ctx)
		}))
	case driver.ActionKeyPress:
		code, err := keyCode(a.Key)
		if err != nil {
			return err
		}
		if err := p.focus(ctx, h); err != nil {
			return err
		}
		return p.run(ctx, chromedp.KeyEvent(code))
	default:
		return fmt.Errorf("unsupported action %s", a)
	}
}

func (p *Page) mouse(ctx context.Context, h dom.ElementHandle, events []string) error {
	quoted := make([]string, len(events))
	for i, e := range events {
		quoted[i] = fmt.Sprintf("%q", e)
	}
	expr := fmt.Sprintf("window.__uispec ? window.__uispec.mouse(%d, [%s]) : false", h.Ref, strings.Join(quoted, ","))
	return p.call(ctx, h, expr)
}

func (p *Page) focus(ctx context.Context, h dom.ElementHandle) error {
	return p.call(ctx, h, fmt.Sprintf("window.__uispec ? window.__uispec.focus(%d) : false", h.Ref))
}

// call evaluates a helper that reports false when the element is gone.
func (p *Page) call(ctx context.Context, h dom.ElementHandle, expr string) error {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s left the document", driver.ErrStale, h)
	}
	return nil
}

// Close shuts the tab and the browser. Safe to call more than once.
func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := chromedp.Cancel(p.tabCtx)
	p.cancelTab()
	p.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	p.logger.Debug().Msg("browser closed")
	return nil
}
