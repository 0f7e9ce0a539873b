package main

import (
	"context"
	"fmt"
	"io"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/artifactcheck"
	"github.com/nchhillar/cvexport/internal/storage"
)

// checkStatic reads the pre-built artifact and confirms it parses as a PDF.
func checkStatic(ctx context.Context, st storage.Store, key string, maxSize int64) (artifactcheck.Report, error) {
	rc, err := st.Open(ctx, key)
	if err != nil {
		return artifactcheck.Report{}, fmt.Errorf("%w: %s/%s: %v", cvexport.ErrStaticUnavailable, st.Describe(), key, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return artifactcheck.Report{}, fmt.Errorf("%w: reading %s: %v", cvexport.ErrStaticUnavailable, key, err)
	}
	if int64(len(data)) > maxSize {
		return artifactcheck.Report{}, fmt.Errorf("%w: %s exceeds %d bytes", cvexport.ErrStaticUnavailable, key, maxSize)
	}
	return artifactcheck.CheckPDF(data)
}
