package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports per-operation counters and latency
// histograms. It fulfills MetricsRecorder.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the catalog service collectors on
// reg. A nil registerer uses a private registry so repeated construction in
// tests never collides.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	rec := &PrometheusMetricsRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cheeseshop",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Catalog service operations by outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cheeseshop",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Latency of catalog service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.total, rec.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// JSONTraceEntry represents a serialized span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and keeps them for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w. A nil writer only retains
// spans in memory.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonTraceSpan) End(err error) {
	s.once.Do(func() {
		ended := time.Now().UTC()
		entry := JSONTraceEntry{
			Operation:  s.operation,
			Status:     "success",
			DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
			StartedAt:  s.started,
			EndedAt:    ended,
		}
		if err != nil {
			entry.Status = "error"
			entry.Error = err.Error()
		}
		s.tracer.mu.Lock()
		defer s.tracer.mu.Unlock()
		s.tracer.entries = append(s.tracer.entries, entry)
		if s.tracer.enc != nil {
			_ = s.tracer.enc.Encode(entry)
		}
	})
}
