package cvexport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is one isolated headless browser with a single open page.
// A Session belongs to exactly one request and must be closed on every
// exit path; WithSession guarantees that.
type Session interface {
	// Navigate loads url and waits until network activity settles or
	// timeout elapses.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitForSelector blocks until an element matching selector exists.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// InjectCSS appends a stylesheet to the loaded document.
	InjectCSS(ctx context.Context, css string) error

	// PrintPDF renders the page as a paginated PDF.
	PrintPDF(ctx context.Context, settings PDFSettings) ([]byte, error)

	// CaptureElement screenshots the bounding box of the element matching
	// selector as a JPEG.
	CaptureElement(ctx context.Context, selector string, settings ImageSettings) ([]byte, error)

	// Close terminates the browser process. Safe to call more than once;
	// other operations return ErrSessionClosed afterwards.
	Close() error
}

// Launcher starts Render Sessions for one browser engine.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
	Name() string
}

// LaunchOptions configure a browser launch.
type LaunchOptions struct {
	Viewport   Viewport
	BrowserBin string // empty = engine default lookup
	NoSandbox  bool   // adds --no-sandbox and --disable-setuid-sandbox
}

// WithSession launches a session, runs fn with it and always closes it,
// including when fn panics or ctx is canceled. Launch failures are wrapped
// in ErrBrowserLaunch. A close error is reported only if fn succeeded.
func WithSession(ctx context.Context, l Launcher, opts LaunchOptions, fn func(Session) error) (err error) {
	if l == nil {
		return ErrNilLauncher
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s, launchErr := l.Launch(ctx, opts)
	if launchErr != nil {
		if errors.Is(launchErr, ErrBrowserLaunch) {
			return launchErr
		}
		return fmt.Errorf("%w: %v", ErrBrowserLaunch, launchErr)
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing render session: %w", closeErr)
		}
	}()

	return fn(s)
}
