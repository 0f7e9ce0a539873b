package cvexport

import (
	"fmt"
	"time"
)

// Viewport defaults approximate an A4 page at 96 DPI.
const (
	DefaultViewportWidth  = 816
	DefaultViewportHeight = 1056
	MaxViewportDimension  = 8192
	MaxDeviceScaleFactor  = 4.0
)

// A4 paper in inches and print defaults.
const (
	A4WidthInches       = 8.27
	A4HeightInches      = 11.69
	DefaultMarginMM     = 10.0
	MaxMarginMM         = 50.0
	DefaultPrintScale   = 0.72
	MinPrintScale       = 0.1
	MaxPrintScale       = 2.0
	DefaultJPEGQuality  = 92
	mmPerInch           = 25.4
	defaultImageScaling = 2.0
)

// Default bounds for the readiness waits.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSelectorTimeout   = 10 * time.Second
	DefaultResumePath        = "/resume"
	DefaultContainerSelector = "#cv-content"
)

// Viewport configures the emulated browser window of a Render Session.
type Viewport struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
}

// DefaultViewport returns the viewport used for the given format.
// Image capture renders at 2x device scale for sharper output.
func DefaultViewport(format Format) Viewport {
	vp := Viewport{
		Width:             DefaultViewportWidth,
		Height:            DefaultViewportHeight,
		DeviceScaleFactor: 1,
	}
	if format == FormatJPEG {
		vp.DeviceScaleFactor = defaultImageScaling
	}
	return vp
}

// Validate checks viewport dimensions.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 || v.Width > MaxViewportDimension || v.Height > MaxViewportDimension {
		return fmt.Errorf("%w: %dx%d (each side must be between 1 and %d)", ErrInvalidViewport, v.Width, v.Height, MaxViewportDimension)
	}
	if v.DeviceScaleFactor <= 0 || v.DeviceScaleFactor > MaxDeviceScaleFactor {
		return fmt.Errorf("%w: device scale factor %.2f (must be in (0, %.0f])", ErrInvalidViewport, v.DeviceScaleFactor, MaxDeviceScaleFactor)
	}
	return nil
}

// PDFSettings configures paginated PDF output.
type PDFSettings struct {
	PaperWidthInches  float64
	PaperHeightInches float64
	MarginMM          float64 // applied to all four sides
	Scale             float64
	PrintBackground   bool
}

// DefaultPDFSettings returns A4 output with 10mm margins at 0.72 scale.
func DefaultPDFSettings() PDFSettings {
	return PDFSettings{
		PaperWidthInches:  A4WidthInches,
		PaperHeightInches: A4HeightInches,
		MarginMM:          DefaultMarginMM,
		Scale:             DefaultPrintScale,
		PrintBackground:   true,
	}
}

// MarginInches converts the configured margin for the DevTools protocol.
func (p PDFSettings) MarginInches() float64 {
	return p.MarginMM / mmPerInch
}

// Validate checks paper, margin and scale bounds.
func (p PDFSettings) Validate() error {
	if p.PaperWidthInches <= 0 || p.PaperHeightInches <= 0 {
		return fmt.Errorf("%w: paper %.2fx%.2f in", ErrInvalidViewport, p.PaperWidthInches, p.PaperHeightInches)
	}
	if p.MarginMM < 0 || p.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: %.1fmm (must be between 0 and %.0f)", ErrInvalidMargin, p.MarginMM, MaxMarginMM)
	}
	if 2*p.MarginInches() >= p.PaperWidthInches || 2*p.MarginInches() >= p.PaperHeightInches {
		return fmt.Errorf("%w: %.1fmm leaves no printable area", ErrInvalidMargin, p.MarginMM)
	}
	if p.Scale < MinPrintScale || p.Scale > MaxPrintScale {
		return fmt.Errorf("%w: %.2f (must be between %.1f and %.1f)", ErrInvalidScale, p.Scale, MinPrintScale, MaxPrintScale)
	}
	return nil
}

// ImageSettings configures element screenshots.
type ImageSettings struct {
	Quality int // JPEG quality, 1-100
}

// DefaultImageSettings returns the default JPEG quality.
func DefaultImageSettings() ImageSettings {
	return ImageSettings{Quality: DefaultJPEGQuality}
}

// Validate checks the JPEG quality range.
func (s ImageSettings) Validate() error {
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("%w: %d (must be between 1 and 100)", ErrInvalidQuality, s.Quality)
	}
	return nil
}
