package cvexport

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultStaticKey is the object name of the pre-built resume.
const DefaultStaticKey = "Neha_Chhillar_Resume.pdf"

// DefaultMaxStaticSize bounds how much of a static object is read.
const DefaultMaxStaticSize = 20 << 20

// StaticSource opens a stored object by key. internal/storage provides
// local-directory and S3 implementations.
type StaticSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// StaticExporter serves a pre-built PDF from a StaticSource instead of
// rendering one. The file is re-read on every request so replacing it on
// disk or in the bucket takes effect without a restart.
type StaticExporter struct {
	source       StaticSource
	key          string
	filenameBase string
	maxSize      int64
}

// StaticOption configures a StaticExporter.
type StaticOption func(*StaticExporter)

// WithStaticFilenameBase sets the download name without extension.
func WithStaticFilenameBase(base string) StaticOption {
	return func(s *StaticExporter) { s.filenameBase = base }
}

// WithMaxStaticSize bounds the object size read into memory.
func WithMaxStaticSize(n int64) StaticOption {
	return func(s *StaticExporter) { s.maxSize = n }
}

// NewStaticExporter returns an exporter serving key from source.
func NewStaticExporter(source StaticSource, key string, opts ...StaticOption) (*StaticExporter, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if key == "" {
		key = DefaultStaticKey
	}

	s := &StaticExporter{
		source:       source,
		key:          key,
		filenameBase: DefaultFilenameBase,
		maxSize:      DefaultMaxStaticSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrStaticUnavailable, s.maxSize)
	}
	if err := ValidateFilename(FormatPDF.Filename(s.filenameBase)); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode reports ModeStatic.
func (s *StaticExporter) Mode() Mode { return ModeStatic }

// Key returns the object name served.
func (s *StaticExporter) Key() string { return s.key }

// Export reads the stored PDF. The origin in req is ignored.
func (s *StaticExporter) Export(ctx context.Context, _ Request) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := s.source.Open(ctx, s.key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStaticUnavailable, s.key, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStaticUnavailable, s.key, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrStaticUnavailable, s.key, s.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrStaticUnavailable, s.key)
	}

	return NewArtifact(FormatPDF, s.key, data, FormatPDF.Filename(s.filenameBase), CacheControlStatic)
}
