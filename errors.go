package cvexport

import "errors"

// Sentinel errors for export operations.
var (
	ErrBrowserLaunch     = errors.New("failed to launch browser")
	ErrNavigation        = errors.New("failed to load resume page")
	ErrContentNotFound   = errors.New("resume content container not found")
	ErrCapture           = errors.New("document capture failed")
	ErrStaticUnavailable = errors.New("pre-built resume is unavailable")
	ErrSessionClosed     = errors.New("render session already closed")

	// Request validation errors.
	ErrInvalidOrigin = errors.New("invalid request origin")

	// Artifact invariants.
	ErrEmptyArtifact  = errors.New("artifact content is empty")
	ErrFormatMismatch = errors.New("artifact metadata does not match format")

	// Settings validation errors.
	ErrInvalidFormat   = errors.New("invalid export format")
	ErrInvalidMode     = errors.New("invalid export mode")
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrInvalidMargin   = errors.New("invalid margin")
	ErrInvalidScale    = errors.New("invalid scale")
	ErrInvalidQuality  = errors.New("invalid image quality")
	ErrInvalidTimeout  = errors.New("invalid timeout")
	ErrInvalidOverride = errors.New("invalid print override")
	ErrInvalidSelector = errors.New("invalid container selector")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrUnknownEngine   = errors.New("unknown browser engine")
	ErrNilLauncher     = errors.New("nil browser launcher")
	ErrNilSource       = errors.New("nil static source")
)
