// Package metrics keeps export counters and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Registry holds the export metrics for one server.
type Registry struct {
	startedTotal   atomic.Uint64
	completedTotal atomic.Uint64
	failedTotal    atomic.Uint64
	inFlight       atomic.Int64

	duration *histogram
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		duration: newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 20000, 30000, 45000}),
	}
}

// ExportStarted counts an export and returns a func that records its
// outcome and duration.
func (r *Registry) ExportStarted() func(err error) {
	r.startedTotal.Add(1)
	r.inFlight.Add(1)
	start := time.Now()

	return func(err error) {
		r.inFlight.Add(-1)
		if err != nil {
			r.failedTotal.Add(1)
		} else {
			r.completedTotal.Add(1)
		}
		r.ObserveDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	}
}

// ObserveDurationMs records an export duration in milliseconds.
func (r *Registry) ObserveDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	r.duration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func (r *Registry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, r.Render())
	}
}

// Render renders metrics in Prometheus text format.
func (r *Registry) Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "cvexport_exports_started_total", "Total exports started", r.startedTotal.Load())
	writeCounter(&buf, "cvexport_exports_completed_total", "Total exports completed", r.completedTotal.Load())
	writeCounter(&buf, "cvexport_exports_failed_total", "Total exports failed", r.failedTotal.Load())
	writeGauge(&buf, "cvexport_exports_in_flight", "Exports currently running", r.inFlight.Load())
	writeHistogram(&buf, "cvexport_export_duration_ms", "Export duration in milliseconds", r.duration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket it fits; writeHistogram
// makes the counts cumulative.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
