package cvexport

import (
	"fmt"
	"path"
	"strings"
)

// Cache directives sent with each variant's artifacts.
const (
	CacheControlNoStore = "no-cache, no-store, must-revalidate"
	CacheControlStatic  = "public, max-age=3600"
)

// DefaultFilenameBase is the download name used when none is configured.
const DefaultFilenameBase = "Neha_Chhillar_Resume"

// Artifact is one exported document, created fresh for a single request.
// Fields are set once by NewArtifact and never mutated afterwards.
type Artifact struct {
	Format       Format
	SourceURL    string
	Content      []byte
	Filename     string
	ContentType  string
	CacheControl string
}

// NewArtifact builds an artifact and enforces its invariants: content is
// non-empty and the filename extension and MIME type both match format.
func NewArtifact(format Format, sourceURL string, content []byte, filename, cacheControl string) (*Artifact, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyArtifact
	}
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimPrefix(path.Ext(filename), "."), format.Extension()) {
		return nil, fmt.Errorf("%w: filename %q for format %s", ErrFormatMismatch, filename, format)
	}

	return &Artifact{
		Format:       format,
		SourceURL:    sourceURL,
		Content:      content,
		Filename:     filename,
		ContentType:  format.ContentType(),
		CacheControl: cacheControl,
	}, nil
}

// Size returns the payload length in bytes.
func (a *Artifact) Size() int {
	return len(a.Content)
}

// ContentDisposition returns the attachment header value for a.
func (a *Artifact) ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", a.Filename)
}

// ValidateFilename rejects names that could break out of the
// Content-Disposition header or address a path.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if strings.ContainsAny(name, "\"\\/\r\n\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidFilename, name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidFilename, name)
		}
	}
	return nil
}
