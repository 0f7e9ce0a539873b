// Package storage defines the object store behind the static export
// variant and the export command's upload step.
package storage

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors shared by store implementations.
var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store saves and retrieves binary objects by key.
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	// Describe names the backing location for logs and diagnostics.
	Describe() string
}
