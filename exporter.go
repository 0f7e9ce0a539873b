package cvexport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface implementation checks.
var (
	_ Exporter = (*DynamicExporter)(nil)
	_ Exporter = (*StaticExporter)(nil)
	_ Launcher = (*rodLauncher)(nil)
	_ Launcher = (*chromedpLauncher)(nil)
	_ Session  = (*rodSession)(nil)
	_ Session  = (*chromedpSession)(nil)
)

// Exporter produces the resume document for one request. The dynamic and
// static variants both implement it; configuration picks one.
type Exporter interface {
	Export(ctx context.Context, req Request) (*Artifact, error)
	Mode() Mode
}

// Request carries what an export needs from the incoming HTTP request.
type Request struct {
	// Origin is scheme://host of the site serving the resume page.
	Origin string
}

// NewLauncher returns the launcher registered under engine.
func NewLauncher(engine string) (Launcher, error) {
	switch strings.ToLower(engine) {
	case "", EngineRod:
		return NewRodLauncher(), nil
	case EngineChromedp:
		return NewChromedpLauncher(), nil
	}
	return nil, fmt.Errorf("%w: %q (must be %s or %s)", ErrUnknownEngine, engine, EngineRod, EngineChromedp)
}

// DynamicExporter renders the live resume page in a fresh headless browser
// for every request.
type DynamicExporter struct {
	launcher Launcher
	limiter  *Limiter
	cfg      dynamicConfig
}

type dynamicConfig struct {
	format            Format
	resumePath        string
	selector          string
	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	viewport          *Viewport
	pdf               PDFSettings
	image             ImageSettings
	overrides         PrintOverrides
	filenameBase      string
	browserBin        string
	noSandbox         bool
}

// DynamicOption configures a DynamicExporter.
type DynamicOption func(*dynamicConfig)

// WithFormat selects PDF or JPEG output (default PDF).
func WithFormat(f Format) DynamicOption {
	return func(c *dynamicConfig) { c.format = f }
}

// WithResumePath sets the path appended to the request origin.
func WithResumePath(p string) DynamicOption {
	return func(c *dynamicConfig) { c.resumePath = p }
}

// WithSelector sets the container the export waits for and captures.
// Print overrides follow the same container.
func WithSelector(sel string) DynamicOption {
	return func(c *dynamicConfig) {
		c.selector = sel
		c.overrides.Container = sel
	}
}

// WithTimeouts bounds the network-idle and selector waits.
func WithTimeouts(navigation, selector time.Duration) DynamicOption {
	return func(c *dynamicConfig) {
		c.navigationTimeout = navigation
		c.selectorTimeout = selector
	}
}

// WithViewport overrides the per-format default viewport.
func WithViewport(v Viewport) DynamicOption {
	return func(c *dynamicConfig) { c.viewport = &v }
}

// WithPDFSettings overrides paper, margin and scale.
func WithPDFSettings(p PDFSettings) DynamicOption {
	return func(c *dynamicConfig) { c.pdf = p }
}

// WithImageSettings overrides JPEG quality.
func WithImageSettings(s ImageSettings) DynamicOption {
	return func(c *dynamicConfig) { c.image = s }
}

// WithPrintOverrides replaces the stylesheet injected before printing.
func WithPrintOverrides(o PrintOverrides) DynamicOption {
	return func(c *dynamicConfig) { c.overrides = o }
}

// WithFilenameBase sets the download name without extension.
func WithFilenameBase(base string) DynamicOption {
	return func(c *dynamicConfig) { c.filenameBase = base }
}

// WithBrowser sets the Chrome binary and sandbox flags passed at launch.
func WithBrowser(bin string, noSandbox bool) DynamicOption {
	return func(c *dynamicConfig) {
		c.browserBin = bin
		c.noSandbox = noSandbox
	}
}

// NewDynamicExporter validates the configuration and returns an exporter
// that launches sessions through l. A nil limiter leaves renders unbounded.
func NewDynamicExporter(l Launcher, limiter *Limiter, opts ...DynamicOption) (*DynamicExporter, error) {
	if l == nil {
		return nil, ErrNilLauncher
	}

	cfg := dynamicConfig{
		format:            FormatPDF,
		resumePath:        DefaultResumePath,
		selector:          DefaultContainerSelector,
		navigationTimeout: DefaultNavigationTimeout,
		selectorTimeout:   DefaultSelectorTimeout,
		pdf:               DefaultPDFSettings(),
		image:             DefaultImageSettings(),
		overrides:         DefaultPrintOverrides(),
		filenameBase:      DefaultFilenameBase,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &DynamicExporter{launcher: l, limiter: limiter, cfg: cfg}, nil
}

func (c *dynamicConfig) validate() error {
	if err := c.format.Validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.resumePath, "/") {
		return fmt.Errorf("%w: resume path %q must start with /", ErrInvalidOrigin, c.resumePath)
	}
	if err := ValidateSelector(c.selector); err != nil {
		return err
	}
	if c.navigationTimeout <= 0 || c.selectorTimeout <= 0 {
		return fmt.Errorf("%w: navigation %s, selector %s (both must be positive)", ErrInvalidTimeout, c.navigationTimeout, c.selectorTimeout)
	}
	if err := c.launchViewport().Validate(); err != nil {
		return err
	}
	if err := ValidateFilename(c.format.Filename(c.filenameBase)); err != nil {
		return err
	}
	switch c.format {
	case FormatPDF:
		if err := c.pdf.Validate(); err != nil {
			return err
		}
		return c.overrides.Validate()
	case FormatJPEG:
		return c.image.Validate()
	}
	return nil
}

func (c *dynamicConfig) launchViewport() Viewport {
	if c.viewport != nil {
		return *c.viewport
	}
	return DefaultViewport(c.format)
}

// Mode reports ModeDynamic.
func (e *DynamicExporter) Mode() Mode { return ModeDynamic }

// Format reports the configured output format.
func (e *DynamicExporter) Format() Format { return e.cfg.format }

// Engine reports the browser engine name.
func (e *DynamicExporter) Engine() string { return e.launcher.Name() }

// Export renders <origin><resumePath> and captures it. One attempt, no
// retry: launch, navigate and wait for network idle, wait for the
// container, apply overrides and capture, then close the browser before
// the artifact is built. Recovers from internal panics so a failing
// browser call never escapes as a crash.
func (e *DynamicExporter) Export(ctx context.Context, req Request) (artifact *Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = fmt.Errorf("%w: internal error: %v", ErrCapture, r)
		}
	}()

	target, err := ResumeURL(req.Origin, e.cfg.resumePath)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for a render slot: %w", err)
	}
	defer e.limiter.Release()

	launch := LaunchOptions{
		Viewport:   e.cfg.launchViewport(),
		BrowserBin: e.cfg.browserBin,
		NoSandbox:  e.cfg.noSandbox,
	}

	var content []byte
	err = WithSession(ctx, e.launcher, launch, func(s Session) error {
		if err := s.Navigate(ctx, target, e.cfg.navigationTimeout); err != nil {
			return err
		}
		if err := s.WaitForSelector(ctx, e.cfg.selector, e.cfg.selectorTimeout); err != nil {
			return err
		}

		var captureErr error
		switch e.cfg.format {
		case FormatPDF:
			if err := s.InjectCSS(ctx, e.cfg.overrides.CSS()); err != nil {
				return err
			}
			content, captureErr = s.PrintPDF(ctx, e.cfg.pdf)
		case FormatJPEG:
			content, captureErr = s.CaptureElement(ctx, e.cfg.selector, e.cfg.image)
		}
		return captureErr
	})
	if err != nil {
		return nil, err
	}

	if len(content) == 0 {
		return nil, fmt.Errorf("%w: browser returned an empty %s", ErrCapture, e.cfg.format)
	}

	return NewArtifact(e.cfg.format, target, content, e.cfg.format.Filename(e.cfg.filenameBase), CacheControlNoStore)
}

// ResumeURL joins an origin (scheme://host[:port]) with the resume path.
// Origins carrying a path, query, fragment or credentials are rejected.
func ResumeURL(origin, resumePath string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(origin, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q must use http or https", ErrInvalidOrigin, origin)
	}
	if u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: %q must be scheme://host", ErrInvalidOrigin, origin)
	}

	u.Path = resumePath
	return u.String(), nil
}
