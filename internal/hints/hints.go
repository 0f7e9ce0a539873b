// Package hints turns common export failures into one-line suggestions.
// Hints are formatted as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"context"
	"errors"
	"os"
	"strings"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/fileutil"
)

// IsInContainer reports whether the process runs inside Docker.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a CI runner environment is detected.
func inCI() bool {
	for _, k := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(k) != "" {
			return true
		}
	}
	return false
}

// Context carries the settings a hint may mention.
type Context struct {
	NoSandbox      bool
	BrowserBin     string
	PageURL        string
	Selector       string
	StaticLocation string
}

// For picks the hint matching err's class, or "" when none applies.
func For(err error, hc Context) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ForTimeout()
	case errors.Is(err, cvexport.ErrBrowserLaunch):
		return ForBrowserLaunch(hc.NoSandbox, hc.BrowserBin)
	case errors.Is(err, cvexport.ErrContentNotFound):
		return ForContentNotFound(hc.Selector)
	case errors.Is(err, cvexport.ErrNavigation):
		return ForNavigation(hc.PageURL)
	case errors.Is(err, cvexport.ErrStaticUnavailable):
		return ForStaticUnavailable(hc.StaticLocation)
	}
	return ""
}

// ForBrowserLaunch returns hints for a Chrome launch failure given the
// effective sandbox and binary settings.
func ForBrowserLaunch(noSandbox bool, bin string) string {
	var hints []string

	if (inCI() || IsInContainer()) && !noSandbox {
		hints = append(hints, "set ROD_NO_SANDBOX=1 (or browser.noSandbox) in containers and CI")
	}
	if bin == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to an installed Chrome or Chromium")
	} else if !fileutil.FileExists(bin) {
		hints = append(hints, "ROD_BROWSER_BIN points to "+bin+", which does not exist")
	}

	return formatHints(hints)
}

// ForNavigation returns a hint for a resume page that failed to load.
func ForNavigation(pageURL string) string {
	if pageURL == "" {
		return format("check that the resume page is reachable from this host")
	}
	return format("check that " + pageURL + " is reachable from this host")
}

// ForContentNotFound returns a hint for a page without the container.
func ForContentNotFound(selector string) string {
	return format("the page must render " + selector + " on first load; try cvexport doctor --origin <url>")
}

// ForTimeout returns a hint for a wait that ran out of time.
func ForTimeout() string {
	return format("raise export.navigationTimeout or CVEXPORT_NAV_TIMEOUT for slow pages")
}

// ForStaticUnavailable returns a hint for a missing pre-built artifact.
func ForStaticUnavailable(location string) string {
	hint := "pre-build it with cvexport export --out <file>"
	if location != "" {
		hint = "no artifact at " + location + "; " + hint
	}
	return format(hint)
}

// ForConfigNotFound suggests --config and the user config location among
// the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, "cvexport") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory returns a hint for output write failures.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
