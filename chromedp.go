package cvexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nchhillar/cvexport/internal/process"
)

// EngineChromedp names the chromedp launcher.
const EngineChromedp = "chromedp"

// idlePollInterval is how often the request tracker is sampled.
const idlePollInterval = 50 * time.Millisecond

// chromedpLauncher starts a dedicated Chrome process per session using
// chromedp. Unlike rod it never downloads a browser: Chrome must be
// installed or BrowserBin set.
type chromedpLauncher struct{}

// NewChromedpLauncher returns a launcher backed by chromedp.
func NewChromedpLauncher() Launcher {
	return &chromedpLauncher{}
}

func (c *chromedpLauncher) Name() string { return EngineChromedp }

// Launch allocates a browser under ctx, so canceling the request also
// kills the process, and enables network tracking for idle detection.
func (c *chromedpLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := opts.Viewport.Validate(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if opts.BrowserBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BrowserBin))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		tracker:     newRequestTracker(),
	}

	chromedp.ListenTarget(tabCtx, s.tracker.observe)

	// The first Run starts the browser.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height),
			chromedp.EmulateScale(opts.Viewport.DeviceScaleFactor)),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	if cc := chromedp.FromContext(tabCtx); cc != nil && cc.Browser != nil {
		s.proc = cc.Browser.Process()
	}

	return s, nil
}

// chromedpSession implements Session over one chromedp browser context.
type chromedpSession struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	tracker     *requestTracker
	proc        *os.Process

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// opContext derives an operation context from the tab that also ends when
// the caller's ctx does.
func (s *chromedpSession) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromedpSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	if err := s.tracker.waitIdle(opCtx, networkIdleWindow); err != nil {
		return fmt.Errorf("%w: %s: network did not go idle within %s: %v", ErrNavigation, url, timeout, err)
	}
	return nil
}

func (s *chromedpSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %s after %s: %v", ErrContentNotFound, selector, timeout, err)
	}
	return nil
}

func (s *chromedpSession) InjectCSS(ctx context.Context, css string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	literal, err := json.Marshal(css)
	if err != nil {
		return fmt.Errorf("%w: encoding stylesheet: %v", ErrCapture, err)
	}
	script := fmt.Sprintf(`(() => {
  const style = document.createElement("style");
  style.textContent = %s;
  document.head.appendChild(style);
  return true;
})()`, literal)

	var ok bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("%w: injecting print overrides: %v", ErrCapture, err)
	}
	return nil
}

func (s *chromedpSession) PrintPDF(ctx context.Context, settings PDFSettings) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	margin := settings.MarginInches()
	var data []byte
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		buf, _, err := page.PrintToPDF().
			WithPaperWidth(settings.PaperWidthInches).
			WithPaperHeight(settings.PaperHeightInches).
			WithMarginTop(margin).
			WithMarginBottom(margin).
			WithMarginLeft(margin).
			WithMarginRight(margin).
			WithScale(settings.Scale).
			WithPrintBackground(settings.PrintBackground).
			WithPreferCSSPageSize(false).
			Do(ctx)
		data = buf
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return data, nil
}

// elementRect is the document-relative bounding box of an element.
type elementRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *chromedpSession) CaptureElement(ctx context.Context, selector string, settings ImageSettings) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	literal, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding selector: %v", ErrCapture, err)
	}
	script := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return {x: 0, y: 0, width: 0, height: 0};
  const r = el.getBoundingClientRect();
  return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`, literal)

	var rect elementRect
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &rect)); err != nil {
		return nil, fmt.Errorf("%w: measuring %s: %v", ErrCapture, selector, err)
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return nil, fmt.Errorf("%w: %s has no visible box", ErrContentNotFound, selector)
	}

	var data []byte
	err = chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		buf, err := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(settings.Quality)).
			WithClip(&page.Viewport{
				X:      rect.X,
				Y:      rect.Y,
				Width:  rect.Width,
				Height: rect.Height,
				Scale:  1,
			}).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		data = buf
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return data, nil
}

// Close shuts the tab and browser down. Canceling the allocator waits for
// Chrome and reaps it; the process tree is killed only if that did not
// happen, since a reaped pid may already belong to another browser.
func (s *chromedpSession) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		var errs []error
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
		s.cancelTab()
		s.cancelAlloc()
		if unreaped(s.proc) {
			process.KillTree(s.proc.Pid)
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// unreaped reports whether p is still owned by this session. Signal
// returns os.ErrProcessDone once the allocator has waited on p.
func unreaped(p *os.Process) bool {
	return p != nil && p.Signal(syscall.Signal(0)) == nil
}

// requestTracker follows in-flight network requests to detect idleness.
type requestTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
}

func newRequestTracker() *requestTracker {
	return &requestTracker{
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
	}
}

// observe is registered with chromedp.ListenTarget.
func (t *requestTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastChange = time.Now()
}

// idleFor returns how long no request has been in flight.
func (t *requestTracker) idleFor(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.inflight) > 0 {
		return 0
	}
	return now.Sub(t.lastChange)
}

// waitIdle blocks until the tracker has been idle for window.
func (t *requestTracker) waitIdle(ctx context.Context, window time.Duration) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if t.idleFor(time.Now()) >= window {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
