package cvexport

import (
	"fmt"
	"strings"
)

// Format identifies the kind of document an export produces.
type Format string

// Supported export formats.
const (
	FormatPDF  Format = "pdf"
	FormatJPEG Format = "jpeg"
)

// MIME types for supported formats.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
)

// ParseFormat resolves a user-supplied format name (case-insensitive).
// "jpg" is accepted as an alias for FormatJPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q (must be pdf or jpeg)", ErrInvalidFormat, s)
}

// Validate reports whether f is a supported format.
func (f Format) Validate() error {
	switch f {
	case FormatPDF, FormatJPEG:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFormat, string(f))
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return ContentTypePDF
	case FormatJPEG:
		return ContentTypeJPEG
	}
	return ""
}

// Extension returns the file extension (without dot) used in download names.
func (f Format) Extension() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatJPEG:
		return "jpg"
	}
	return ""
}

// Filename joins a base name with the extension for f.
func (f Format) Filename(base string) string {
	return base + "." + f.Extension()
}

// Mode selects which exporter variant serves the endpoint.
type Mode string

// Exporter variants.
const (
	ModeDynamic Mode = "dynamic"
	ModeStatic  Mode = "static"
)

// ParseMode resolves a mode name (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDynamic:
		return ModeDynamic, nil
	case ModeStatic:
		return ModeStatic, nil
	}
	return "", fmt.Errorf("%w: %q (must be dynamic or static)", ErrInvalidMode, s)
}
