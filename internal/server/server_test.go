package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/metrics"
	"github.com/nchhillar/cvexport/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var pdfBody = []byte("%PDF-1.4 fake resume body")

type stubExporter struct {
	mode   cvexport.Mode
	format cvexport.Format
	err    error
	panics bool

	mu      sync.Mutex
	origins []string
}

func (s *stubExporter) Mode() cvexport.Mode     { return s.mode }
func (s *stubExporter) Format() cvexport.Format { return s.format }

func (s *stubExporter) Export(_ context.Context, req cvexport.Request) (*cvexport.Artifact, error) {
	s.mu.Lock()
	s.origins = append(s.origins, req.Origin)
	s.mu.Unlock()

	if s.panics {
		panic("renderer exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	cache := cvexport.CacheControlNoStore
	if s.mode == cvexport.ModeStatic {
		cache = cvexport.CacheControlStatic
	}
	body := pdfBody
	if s.format == cvexport.FormatJPEG {
		body = []byte{0xff, 0xd8, 0xff, 0xe0}
	}
	return cvexport.NewArtifact(s.format, req.Origin+"/resume", body, s.format.Filename(cvexport.DefaultFilenameBase), cache)
}

func (s *stubExporter) lastOrigin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.origins) == 0 {
		return ""
	}
	return s.origins[len(s.origins)-1]
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(nil) })
	return &buf
}

func serve(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDownload_Success(t *testing.T) {
	captureLogs(t)

	tests := []struct {
		name        string
		exp         *stubExporter
		wantType    string
		wantFile    string
		wantCaching string
	}{
		{
			name:        "dynamic pdf",
			exp:         &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF},
			wantType:    "application/pdf",
			wantFile:    `attachment; filename="Neha_Chhillar_Resume.pdf"`,
			wantCaching: "no-cache, no-store, must-revalidate",
		},
		{
			name:        "dynamic jpeg",
			exp:         &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatJPEG},
			wantType:    "image/jpeg",
			wantFile:    `attachment; filename="Neha_Chhillar_Resume.jpg"`,
			wantCaching: "no-cache, no-store, must-revalidate",
		},
		{
			name:        "static pdf",
			exp:         &stubExporter{mode: cvexport.ModeStatic, format: cvexport.FormatPDF},
			wantType:    "application/pdf",
			wantFile:    `attachment; filename="Neha_Chhillar_Resume.pdf"`,
			wantCaching: "public, max-age=3600",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRouter(Options{Exporter: tt.exp})
			require.NoError(t, err)

			rec := serve(t, r, httptest.NewRequest(http.MethodGet, DownloadPath, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantFile, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, tt.wantCaching, rec.Header().Get("Cache-Control"))
			assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
			assert.NotZero(t, rec.Body.Len())
		})
	}
}

func TestDownload_Failure(t *testing.T) {
	tests := []struct {
		name    string
		exp     *stubExporter
		wantMsg string
		wantLog string
	}{
		{
			name:    "dynamic pdf missing container",
			exp:     &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF, err: fmt.Errorf("%w: #cv-content", cvexport.ErrContentNotFound)},
			wantMsg: msgPDFFailed,
			wantLog: `"msg":"export.failed"`,
		},
		{
			name:    "dynamic jpeg launch failure",
			exp:     &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatJPEG, err: cvexport.ErrBrowserLaunch},
			wantMsg: msgImageFailed,
			wantLog: `"hint":`,
		},
		{
			name:    "static missing file",
			exp:     &stubExporter{mode: cvexport.ModeStatic, format: cvexport.FormatPDF, err: cvexport.ErrStaticUnavailable},
			wantMsg: msgStaticFailed,
			wantLog: `"mode":"static"`,
		},
		{
			name:    "client went away",
			exp:     &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF, err: fmt.Errorf("%w: %w", cvexport.ErrNavigation, context.Canceled)},
			wantMsg: msgPDFFailed,
			wantLog: `"msg":"export.cancelled"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)

			r, err := NewRouter(Options{Exporter: tt.exp})
			require.NoError(t, err)
			rec := serve(t, r, httptest.NewRequest(http.MethodGet, DownloadPath, nil))

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			assert.Empty(t, rec.Header().Get("Content-Disposition"))

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.NotContains(t, rec.Body.String(), "#cv-content", "internal detail leaked to client")
			assert.Contains(t, logs.String(), tt.wantLog)
		})
	}
}

func TestDownload_PanicRecovered(t *testing.T) {
	logs := captureLogs(t)

	r, err := NewRouter(Options{Exporter: &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF, panics: true}})
	require.NoError(t, err)
	rec := serve(t, r, httptest.NewRequest(http.MethodGet, DownloadPath, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Unexpected server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), `"msg":"panic"`)
}

func TestDownload_Origin(t *testing.T) {
	captureLogs(t)

	t.Run("request origin", func(t *testing.T) {
		exp := &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF}
		r, err := NewRouter(Options{Exporter: exp})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "http://cv.example.com"+DownloadPath, nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		serve(t, r, req)

		assert.Equal(t, "https://cv.example.com", exp.lastOrigin())
	})

	t.Run("fixed origin", func(t *testing.T) {
		exp := &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF}
		r, err := NewRouter(Options{Exporter: exp, Origin: "http://127.0.0.1:8080"})
		require.NoError(t, err)

		serve(t, r, httptest.NewRequest(http.MethodGet, "http://cv.example.com"+DownloadPath, nil))

		assert.Equal(t, "http://127.0.0.1:8080", exp.lastOrigin())
	})
}

func TestDownload_Metrics(t *testing.T) {
	captureLogs(t)

	reg := metrics.NewRegistry()
	ok := &stubExporter{mode: cvexport.ModeDynamic, format: cvexport.FormatPDF}
	r, err := NewRouter(Options{Exporter: ok, Metrics: reg})
	require.NoError(t, err)

	serve(t, r, httptest.NewRequest(http.MethodGet, DownloadPath, nil))
	ok.err = cvexport.ErrCapture
	serve(t, r, httptest.NewRequest(http.MethodGet, DownloadPath, nil))

	rec := serve(t, r, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cvexport_exports_completed_total 1")
	assert.Contains(t, rec.Body.String(), "cvexport_exports_failed_total 1")
}

func TestRoutes(t *testing.T) {
	captureLogs(t)

	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "cv.pdf"), pdfBody, 0o600))

	exp := &stubExporter{mode: cvexport.ModeStatic, format: cvexport.FormatPDF}
	r, err := NewRouter(Options{
		Exporter:  exp,
		Page:      []byte(`<article id="cv-content">Ada</article>`),
		PublicDir: public,
	})
	require.NoError(t, err)

	rec := serve(t, r, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"mode":"static"}`, rec.Body.String())

	rec = serve(t, r, httptest.NewRequest(http.MethodGet, ResumePath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), `id="cv-content"`)

	rec = serve(t, r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, ResumePath, rec.Header().Get("Location"))

	rec = serve(t, r, httptest.NewRequest(http.MethodGet, PublicPrefix+"/cv.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdfBody, rec.Body.Bytes())

	rec = serve(t, r, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled without a registry")
}

func TestNewRouter_NilExporter(t *testing.T) {
	_, err := NewRouter(Options{})
	assert.Error(t, err)
}

func TestRequestOrigin(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		proto string
		want  string
	}{
		{name: "plain", url: "http://localhost:3000/x", want: "http://localhost:3000"},
		{name: "forwarded https", url: "http://cv.example.com/x", proto: "https", want: "https://cv.example.com"},
		{name: "forwarded list", url: "http://cv.example.com/x", proto: "HTTPS, http", want: "https://cv.example.com"},
		{name: "forwarded junk ignored", url: "http://cv.example.com/x", proto: "gopher", want: "http://cv.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			assert.Equal(t, tt.want, RequestOrigin(req))
		})
	}
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr("", 8080))
	assert.Equal(t, "127.0.0.1:3000", Addr("127.0.0.1", 3000))
	assert.Equal(t, "[::1]:80", Addr("::1", 80))
}
