package cvexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// networkIdleWindow is how long the page must go without in-flight
// requests before navigation counts as settled.
const networkIdleWindow = 500 * time.Millisecond

// EngineRod names the go-rod launcher.
const EngineRod = "rod"

// rodLauncher starts a dedicated Chrome process per session using go-rod.
// Rod downloads a managed Chromium on first run if none is found.
type rodLauncher struct{}

// NewRodLauncher returns the default browser launcher.
func NewRodLauncher() Launcher {
	return &rodLauncher{}
}

func (r *rodLauncher) Name() string { return EngineRod }

// Launch starts Chrome, connects to it and opens a blank page with the
// requested viewport. Every partially acquired resource is released when a
// later step fails.
func (r *rodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := opts.Viewport.Validate(); err != nil {
		return nil, err
	}

	l := launcher.New().Context(ctx).Headless(true).Leakless(true)
	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}
	if opts.NoSandbox {
		l = l.NoSandbox(true).Set(flags.Flag("disable-setuid-sandbox"))
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	s := &rodSession{launcher: l}

	s.browser = rod.New().ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: opening page: %v", ErrBrowserLaunch, err)
	}
	s.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Viewport.Width,
		Height:            opts.Viewport.Height,
		DeviceScaleFactor: opts.Viewport.DeviceScaleFactor,
		Mobile:            false,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrBrowserLaunch, err)
	}

	return s, nil
}

// rodSession implements Session over one Chrome process.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	wait()

	// WaitRequestIdle returns silently on timeout; the context tells.
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("%w: %s: network did not go idle within %s: %v", ErrNavigation, url, timeout, err)
	}
	return nil
}

func (s *rodSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.Element(selector); err != nil {
		return fmt.Errorf("%w: %s after %s: %v", ErrContentNotFound, selector, timeout, err)
	}
	return nil
}

func (s *rodSession) InjectCSS(ctx context.Context, css string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := s.page.Context(ctx).AddStyleTag("", css); err != nil {
		return fmt.Errorf("%w: injecting print overrides: %v", ErrCapture, err)
	}
	return nil
}

func (s *rodSession) PrintPDF(ctx context.Context, settings PDFSettings) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	margin := settings.MarginInches()
	reader, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PaperWidth:        floatPtr(settings.PaperWidthInches),
		PaperHeight:       floatPtr(settings.PaperHeightInches),
		MarginTop:         floatPtr(margin),
		MarginBottom:      floatPtr(margin),
		MarginLeft:        floatPtr(margin),
		MarginRight:       floatPtr(margin),
		Scale:             floatPtr(settings.Scale),
		PrintBackground:   settings.PrintBackground,
		PreferCSSPageSize: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrCapture, err)
	}
	return data, nil
}

func (s *rodSession) CaptureElement(ctx context.Context, selector string, settings ImageSettings) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContentNotFound, selector, err)
	}

	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatJpeg, settings.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return data, nil
}

// Close disconnects from Chrome, then has the launcher kill its process
// group. The browser may have spawned renderer and GPU children that
// outlive a plain close.
func (s *rodSession) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		var errs []error
		if s.browser != nil {
			if err := s.browser.Close(); err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
