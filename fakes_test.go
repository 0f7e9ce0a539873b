package cvexport

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeLauncher hands out fakeSessions and counts how many are still open.
type fakeLauncher struct {
	launchErr error
	session   fakeBehavior

	launched atomic.Int64
	live     atomic.Int64

	mu       sync.Mutex
	lastOpts LaunchOptions
	sessions []*fakeSession
}

// fakeBehavior scripts how a fakeSession responds.
type fakeBehavior struct {
	navigateErr error
	selectorErr error
	injectErr   error
	captureErr  error
	closeErr    error
	pdf         []byte
	jpeg        []byte
	panicOn     string
	blockNav    bool // Navigate waits for ctx to end
}

func (f *fakeLauncher) Name() string { return "fake" }

func (f *fakeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launched.Add(1)
	f.live.Add(1)

	s := &fakeSession{owner: f, behavior: f.session}
	f.mu.Lock()
	f.lastOpts = opts
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s, nil
}

func (f *fakeLauncher) lastSession() *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

// fakeSession records the calls made against it.
type fakeSession struct {
	owner    *fakeLauncher
	behavior fakeBehavior

	mu       sync.Mutex
	calls    []string
	url      string
	selector string
	css      string
	pdf      PDFSettings
	image    ImageSettings
	closed   bool
	closes   int
}

func (s *fakeSession) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.calls = append(s.calls, call)
	if s.behavior.panicOn == call {
		panic("fake " + call + " exploded")
	}
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.record("navigate"); err != nil {
		return err
	}
	s.url = url
	if s.behavior.blockNav {
		<-ctx.Done()
		return errors.Join(ErrNavigation, ctx.Err())
	}
	return s.behavior.navigateErr
}

func (s *fakeSession) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	if err := s.record("wait"); err != nil {
		return err
	}
	s.selector = selector
	return s.behavior.selectorErr
}

func (s *fakeSession) InjectCSS(_ context.Context, css string) error {
	if err := s.record("inject"); err != nil {
		return err
	}
	s.css = css
	return s.behavior.injectErr
}

func (s *fakeSession) PrintPDF(_ context.Context, settings PDFSettings) ([]byte, error) {
	if err := s.record("pdf"); err != nil {
		return nil, err
	}
	s.pdf = settings
	return s.behavior.pdf, s.behavior.captureErr
}

func (s *fakeSession) CaptureElement(_ context.Context, selector string, settings ImageSettings) ([]byte, error) {
	if err := s.record("jpeg"); err != nil {
		return nil, err
	}
	s.selector = selector
	s.image = settings
	return s.behavior.jpeg, s.behavior.captureErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.closed {
		return nil
	}
	s.closed = true
	s.owner.live.Add(-1)
	return s.behavior.closeErr
}

func (s *fakeSession) callLog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.calls, ",")
}

// fakeSource is an in-memory StaticSource.
type fakeSource struct {
	objects map[string][]byte
	openErr error
	opened  atomic.Int64
	closed  atomic.Int64
}

func (f *fakeSource) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	f.opened.Add(1)
	return &countingReadCloser{Reader: strings.NewReader(string(data)), closed: &f.closed}, nil
}

type countingReadCloser struct {
	io.Reader
	closed *atomic.Int64
}

func (c *countingReadCloser) Close() error {
	c.closed.Add(1)
	return nil
}
