package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"coffeeroaster/pkg/domain"
)

var expvarSeq atomic.Uint64

type opTally struct {
	totalMS  float64
	outcomes map[Outcome]int64
}

// ExpvarMetricsRecorder keeps per-operation latency totals and outcome
// counts and publishes them as one expvar variable.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*opTally
}

// ExpvarMetricsSnapshot is what the expvar variable renders.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated roaster_service_metrics_N name when empty. expvar panics on
// duplicate names.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("roaster_service_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*opTally)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

func (r *ExpvarMetricsRecorder) Name() string { return r.name }

func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64, len(r.ops)),
		Results:     make(map[string]map[string]int64, len(r.ops)),
		RecordedAt:  time.Now().UTC(),
	}
	for op, tally := range r.ops {
		snap.DurationsMS[op] = tally.totalMS
		counts := make(map[string]int64, len(tally.outcomes))
		for outcome, n := range tally.outcomes {
			counts[string(outcome)] = n
		}
		snap.Results[op] = counts
	}
	return snap
}

func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, outcome Outcome, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tally, ok := r.ops[operation]
	if !ok {
		tally = &opTally{outcomes: make(map[Outcome]int64, 3)}
		r.ops[operation] = tally
	}
	tally.totalMS += float64(duration) / float64(time.Millisecond)
	tally.outcomes[outcome]++
}

// PrometheusMetricsRecorder exports coffeeroaster_service_operations_total
// by operation and outcome, and a latency histogram per operation.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffeeroaster",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Roastery operations by outcome (success, rejected, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coffeeroaster",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Roastery operation latency.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
	}
	if err := reg.Register(r.total); err != nil {
		return nil, fmt.Errorf("register operations counter: %w", err)
	}
	if err := reg.Register(r.duration); err != nil {
		reg.Unregister(r.total)
		return nil, fmt.Errorf("register operation histogram: %w", err)
	}
	return r, nil
}

func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, outcome Outcome, duration time.Duration) {
	if operation == "" {
		return
	}
	r.total.WithLabelValues(operation, string(outcome)).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// MultiMetricsRecorder fans out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, outcome Outcome, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, outcome, duration)
	}
}

// LogAuditRecorder writes audit entries to a logger.
type LogAuditRecorder struct {
	Logger Logger
}

func (r LogAuditRecorder) Record(_ context.Context, e AuditEntry) {
	if r.Logger == nil {
		return
	}
	args := []any{"operation", e.Operation, "entity", e.Entity, "action", e.Action, "id", e.EntityID, "status", e.Status, "duration", e.Duration}
	if e.Error != "" {
		args = append(args, "error", e.Error)
	}
	r.Logger.Info("audit", args...)
}

// JSONTraceEntry is one serialized span.
type JSONTraceEntry struct {
	Operation  string            `json:"operation"`
	Entity     domain.EntityType `json:"entity,omitempty"`
	Document   string            `json:"document,omitempty"`
	Status     Outcome           `json:"status"`
	DurationMS float64           `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    time.Time         `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and keeps them for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w. A nil writer only retains
// the spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{enc: enc}
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Rejected returns the spans that ended with a validation error.
func (t *JSONTraceTracer) Rejected() []JSONTraceEntry {
	var out []JSONTraceEntry
	for _, e := range t.Entries() {
		if e.Status == OutcomeRejected {
			out = append(out, e)
		}
	}
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string, entity domain.EntityType) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, entity: entity, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	entity    domain.EntityType
	started   time.Time
}

func (s *jsonTraceSpan) End(document string, err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Entity:     s.entity,
		Document:   document,
		Status:     OutcomeOf(err),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}
