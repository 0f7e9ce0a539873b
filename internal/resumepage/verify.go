package resumepage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Verification errors.
var (
	ErrContainerMissing   = errors.New("resume container not found")
	ErrContainerAmbiguous = errors.New("resume container matches more than one element")
	ErrContainerEmpty     = errors.New("resume container has no text")
	ErrFetch              = errors.New("fetching resume page failed")
)

const (
	fetchTimeout = 15 * time.Second
	maxPageBytes = 5 << 20
	userAgent    = "cvexport-doctor/1.0"
)

// VerifyContainer checks that selector matches exactly one element with
// visible text in page. It does not run scripts, so content injected
// client-side is not seen.
func VerifyContainer(page []byte, selector string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}
	return verifyDoc(doc, selector)
}

func verifyDoc(doc *goquery.Document, selector string) error {
	sel := doc.Find(selector)
	switch {
	case sel.Length() == 0:
		return fmt.Errorf("%w: %s", ErrContainerMissing, selector)
	case sel.Length() > 1:
		return fmt.Errorf("%w: %s (%d matches)", ErrContainerAmbiguous, selector, sel.Length())
	case strings.TrimSpace(sel.Text()) == "":
		return fmt.Errorf("%w: %s", ErrContainerEmpty, selector)
	}
	return nil
}

// FetchAndVerify downloads pageURL and runs VerifyContainer on it. A nil
// client uses a default client with a timeout.
func FetchAndVerify(ctx context.Context, client *http.Client, pageURL, selector string) error {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrFetch, pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrFetch, pageURL, err)
	}
	return verifyDoc(doc, selector)
}
