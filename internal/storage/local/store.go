package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nchhillar/cvexport/internal/fileutil"
	"github.com/nchhillar/cvexport/internal/storage"
)

// Store implements storage.Store on a local directory.
type Store struct {
	baseDir string
}

// New creates a store rooted at baseDir. The directory is created on the
// first Put, not here.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Open opens the object at key for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", storage.ErrNotFound, key)
	}
	return f, nil
}

// Put writes r to key atomically. contentType is not recorded on disk.
func (s *Store) Put(ctx context.Context, key, _ string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if err := fileutil.WriteFileAtomic(fullPath, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return int64(len(data)), nil
}

// Describe returns the base directory.
func (s *Store) Describe() string {
	return "dir:" + s.baseDir
}

func (s *Store) resolve(key string) (string, error) {
	p, err := fileutil.SafeJoin(s.baseDir, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidKey, err)
	}
	return p, nil
}

var _ storage.Store = (*Store)(nil)
