// Package artifactcheck inspects exported documents without a browser:
// PDFs are parsed for page count and page size, JPEGs for dimensions.
package artifactcheck

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/ledongthuc/pdf"
)

// Sentinel errors for artifact inspection.
var (
	ErrEmpty       = errors.New("document is empty")
	ErrNotPDF      = errors.New("not a valid PDF")
	ErrNotJPEG     = errors.New("not a valid JPEG")
	ErrUnsupported = errors.New("unsupported format")
	ErrNoPages     = errors.New("PDF has no pages")
)

// Report summarizes an inspected document.
type Report struct {
	Format string // "pdf" or "jpeg"
	Bytes  int

	// PDF only.
	Pages        int
	PageWidthPt  float64 // first page MediaBox, 0 if absent
	PageHeightPt float64

	// JPEG only.
	Width  int
	Height int
}

// String renders a one-line summary for CLI output.
func (r Report) String() string {
	switch r.Format {
	case "pdf":
		if r.PageWidthPt > 0 {
			return fmt.Sprintf("PDF, %d page(s), %.0fx%.0fpt, %d bytes", r.Pages, r.PageWidthPt, r.PageHeightPt, r.Bytes)
		}
		return fmt.Sprintf("PDF, %d page(s), %d bytes", r.Pages, r.Bytes)
	case "jpeg":
		return fmt.Sprintf("JPEG, %dx%dpx, %d bytes", r.Width, r.Height, r.Bytes)
	}
	return fmt.Sprintf("%s, %d bytes", r.Format, r.Bytes)
}

// Check inspects data as the named format ("pdf", "jpeg" or "jpg").
func Check(format string, data []byte) (Report, error) {
	switch format {
	case "pdf":
		return CheckPDF(data)
	case "jpeg", "jpg":
		return CheckJPEG(data)
	}
	return Report{}, fmt.Errorf("%w: %q", ErrUnsupported, format)
}

// CheckPDF parses data and reports its page count. The parser panics on
// some malformed inputs; those are reported as ErrNotPDF.
func CheckPDF(data []byte) (rep Report, err error) {
	if len(data) == 0 {
		return Report{}, ErrEmpty
	}

	defer func() {
		if r := recover(); r != nil {
			rep = Report{}
			err = fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	pages := reader.NumPage()
	if pages < 1 {
		return Report{}, ErrNoPages
	}

	rep = Report{Format: "pdf", Bytes: len(data), Pages: pages}

	box := reader.Page(1).V.Key("MediaBox")
	if box.Len() == 4 {
		rep.PageWidthPt = box.Index(2).Float64() - box.Index(0).Float64()
		rep.PageHeightPt = box.Index(3).Float64() - box.Index(1).Float64()
	}
	return rep, nil
}

// CheckJPEG decodes the JPEG header and reports the image size.
func CheckJPEG(data []byte) (Report, error) {
	if len(data) == 0 {
		return Report{}, ErrEmpty
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrNotJPEG, err)
	}
	return Report{Format: "jpeg", Bytes: len(data), Width: cfg.Width, Height: cfg.Height}, nil
}
