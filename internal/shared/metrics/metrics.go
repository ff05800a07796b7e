package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	triageStartedTotal   atomic.Uint64
	triageCompletedTotal atomic.Uint64
	reportFallbackTotal  atomic.Uint64

	failedMu         sync.Mutex
	triageFailedKind = map[string]uint64{}

	riskMu        sync.Mutex
	triageRiskLvl = map[string]uint64{}

	triageDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncTriageStarted increments the started counter.
func IncTriageStarted() {
	triageStartedTotal.Add(1)
}

// IncTriageCompleted counts a persisted run under its risk level.
func IncTriageCompleted(riskLevel string) {
	triageCompletedTotal.Add(1)
	riskMu.Lock()
	triageRiskLvl[riskLevel]++
	riskMu.Unlock()
}

// IncTriageFailed counts a failed run under its error kind.
func IncTriageFailed(kind string) {
	failedMu.Lock()
	triageFailedKind[kind]++
	failedMu.Unlock()
}

// IncReportFallback counts reports produced by the offline template.
func IncReportFallback() {
	reportFallbackTotal.Add(1)
}

// ObserveTriageDurationMs records a pipeline duration in milliseconds.
func ObserveTriageDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	triageDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "triage_started_total", "Total triage runs started", triageStartedTotal.Load())
	writeCounter(&buf, "triage_completed_total", "Total triage runs persisted", triageCompletedTotal.Load())
	writeLabeledCounter(&buf, "triage_failed_total", "Total triage runs failed by error kind", "kind", snapshot(&failedMu, triageFailedKind))
	writeLabeledCounter(&buf, "triage_risk_level_total", "Persisted triage runs by risk level", "level", snapshot(&riskMu, triageRiskLvl))
	writeCounter(&buf, "report_fallback_total", "Reports produced by the offline template", reportFallbackTotal.Load())
	writeHistogram(&buf, "triage_duration_ms", "Triage duration in milliseconds", triageDuration.Snapshot())
	return buf.String()
}

func snapshot(mu *sync.Mutex, m map[string]uint64) map[string]uint64 {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
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

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
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
