// Package server exposes the export endpoint and the resume page over
// HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/fileutil"
	"github.com/nchhillar/cvexport/internal/hints"
	"github.com/nchhillar/cvexport/internal/metrics"
	"github.com/nchhillar/cvexport/internal/telemetry"
)

// Routes.
const (
	DownloadPath = "/api/download-resume"
	ResumePath   = "/resume"
	HealthPath   = "/healthz"
	MetricsPath  = "/metrics"
	PublicPrefix = "/public"
)

// Client-facing failure messages. Details stay in the log.
const (
	msgPDFFailed    = "Failed to generate resume PDF"
	msgImageFailed  = "Failed to generate resume image"
	msgStaticFailed = "Resume download is unavailable right now. Please contact the site owner directly."
)

// Options wires the router's dependencies. Exporter is required.
type Options struct {
	Exporter  cvexport.Exporter
	Metrics   *metrics.Registry // nil disables /metrics
	Page      []byte            // built-in resume page, nil disables /resume
	PublicDir string            // served under /public when it exists
	Origin    string            // fixed export origin, empty = request origin
	Hints     hints.Context
}

type errorBody struct {
	Error string `json:"error"`
}

type handler struct {
	opts Options
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Exporter == nil {
		return nil, errors.New("server: nil exporter")
	}

	r := gin.New()
	r.Use(RequestID(), Logging(), Recovery())

	h := &handler{opts: opts}
	r.GET(DownloadPath, h.download)
	r.GET(HealthPath, h.health)
	if opts.Metrics != nil {
		r.GET(MetricsPath, opts.Metrics.Handler())
	}
	if opts.Page != nil {
		r.GET(ResumePath, h.page)
		r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, ResumePath) })
	}
	if opts.PublicDir != "" && fileutil.DirExists(opts.PublicDir) {
		r.Static(PublicPrefix, opts.PublicDir)
	}
	return r, nil
}

func (h *handler) download(c *gin.Context) {
	exp := h.opts.Exporter
	c.Set("exportMode", string(exp.Mode()))

	origin := h.opts.Origin
	if origin == "" {
		origin = RequestOrigin(c.Request)
	}

	var done func(error)
	if h.opts.Metrics != nil {
		done = h.opts.Metrics.ExportStarted()
	}
	art, err := exp.Export(c.Request.Context(), cvexport.Request{Origin: origin})
	if done != nil {
		done(err)
	}
	if err != nil {
		h.fail(c, origin, err)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Disposition", art.ContentDisposition())
	header.Set("Cache-Control", art.CacheControl)
	header.Set("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, art.ContentType, art.Content)

	telemetry.Info("export.complete", map[string]any{
		"request_id": RequestIDFromContext(c),
		"mode":       string(exp.Mode()),
		"format":     string(art.Format),
		"bytes":      art.Size(),
		"source":     art.SourceURL,
	})
}

func (h *handler) fail(c *gin.Context, origin string, err error) {
	exp := h.opts.Exporter

	hc := h.opts.Hints
	if hc.PageURL == "" {
		hc.PageURL = strings.TrimRight(origin, "/") + ResumePath
	}
	fields := map[string]any{
		"request_id": RequestIDFromContext(c),
		"mode":       string(exp.Mode()),
		"origin":     origin,
		"error":      err,
	}
	if hint := hints.For(err, hc); hint != "" {
		fields["hint"] = strings.TrimPrefix(hint, "\n  hint: ")
	}
	if errors.Is(err, context.Canceled) {
		telemetry.Warn("export.cancelled", fields)
	} else {
		telemetry.Error("export.failed", fields)
	}

	c.Header("Cache-Control", cvexport.CacheControlNoStore)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: failureMessage(exp)})
}

// failureMessage picks the generic message for the exporter's variant.
func failureMessage(exp cvexport.Exporter) string {
	if exp.Mode() == cvexport.ModeStatic {
		return msgStaticFailed
	}
	if f, ok := exp.(interface{ Format() cvexport.Format }); ok && f.Format() == cvexport.FormatJPEG {
		return msgImageFailed
	}
	return msgPDFFailed
}

func (h *handler) page(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.opts.Page)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "mode": string(h.opts.Exporter.Mode())})
}

// RequestOrigin returns scheme://host of the request as the client saw
// it, honouring X-Forwarded-Proto from a reverse proxy.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		switch p := strings.ToLower(strings.TrimSpace(first)); p {
		case "http", "https":
			scheme = p
		}
	}
	return scheme + "://" + r.Host
}

// Addr joins host and port into a listen address.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
