package main

import (
	"errors"
	"os"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/artifactcheck"
	"github.com/nchhillar/cvexport/internal/assets"
	"github.com/nchhillar/cvexport/internal/config"
	"github.com/nchhillar/cvexport/internal/storage"
)

// Exit codes follow Unix conventions: 0 success, 1 general, 2 usage, and
// custom codes below 126.
const (
	ExitSuccess = 0 // Export or command succeeded
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File or object not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// errUsage marks flag and argument errors raised by cobra.
var errUsage = errors.New("usage error")

// exitCodeFor maps an error to an exit code. Callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, cvexport.ErrBrowserLaunch) ||
		errors.Is(err, cvexport.ErrNavigation) ||
		errors.Is(err, cvexport.ErrContentNotFound) ||
		errors.Is(err, cvexport.ErrCapture) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, cvexport.ErrStaticUnavailable) ||
		errors.Is(err, artifactcheck.ErrNotPDF) ||
		errors.Is(err, artifactcheck.ErrNotJPEG) ||
		errors.Is(err, errWriteOutput) {
		return ExitIO
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, config.ErrEnvInvalid) ||
		errors.Is(err, cvexport.ErrInvalidFormat) ||
		errors.Is(err, cvexport.ErrInvalidOrigin) ||
		errors.Is(err, cvexport.ErrInvalidSelector) ||
		errors.Is(err, cvexport.ErrInvalidOverride) ||
		errors.Is(err, cvexport.ErrInvalidFilename) ||
		errors.Is(err, cvexport.ErrUnknownEngine) ||
		errors.Is(err, storage.ErrInvalidKey) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrContentNotFound) {
		return ExitUsage
	}

	return ExitGeneral
}
