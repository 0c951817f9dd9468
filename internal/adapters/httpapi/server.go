// Package httpapi exposes the roaster service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coffeeroaster/internal/adapters/exports"
	"coffeeroaster/internal/core"
	"coffeeroaster/internal/geocode"
	"coffeeroaster/internal/machines"
	"coffeeroaster/internal/reports"
	"coffeeroaster/pkg/domain"
)

// Service is the part of the core service reachable over HTTP.
type Service interface {
	IngestMachineExport(ctx context.Context, in core.MachineIngest) (core.IngestResult, error)
	BuildRouteFromRTM(ctx context.Context, req core.RouteRequest) (core.RouteResult, error)
	StartRoast(ctx context.Context, id string) (domain.StockEntry, domain.Result, error)
	SubmitRoastBatch(ctx context.Context, id string) (domain.RoastBatch, domain.Result, error)
	SubmitBatchCost(ctx context.Context, id string) (domain.BatchCost, domain.JournalEntry, domain.Result, error)
	SubmitGreenBeanAssessment(ctx context.Context, id string) (domain.GreenBeanAssessment, domain.Result, error)
	SubmitCuppingAssessment(ctx context.Context, id string) (domain.CuppingAssessment, domain.Result, error)
	PullFromRoastBatch(ctx context.Context, rbID string) (core.RoastLogPull, error)
	ApplyRoastBatchToLog(ctx context.Context, logID string) (domain.CoffeeRoastingLog, error)
	ImportCurve(ctx context.Context, logID, filename string, content []byte, adapter string) (machines.Summary, error)
	ImportCurveFromAttachment(ctx context.Context, logID, adapter string) (machines.Summary, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (geocode.Place, error)
	View(ctx context.Context, fn func(domain.TransactionView) error) error
}

// MaxUploadBytes bounds machine export bodies.
const MaxUploadBytes = 32 << 20

// Option configures the router.
type Option func(*api)

// WithReports serves the report catalog.
func WithReports(c *reports.Catalog) Option { return func(a *api) { a.reports = c } }

// WithExports serves the Sage export queue.
func WithExports(s exports.Scheduler) Option { return func(a *api) { a.exports = s } }

// WithGatherer serves Prometheus metrics from g.
func WithGatherer(g prometheus.Gatherer) Option { return func(a *api) { a.gatherer = g } }

// WithUploadLimit overrides MaxUploadBytes for machine export bodies.
func WithUploadLimit(n int64) Option {
	return func(a *api) {
		if n > 0 {
			a.maxUpload = n
		}
	}
}

// WithLogger sets the access logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *api) {
		if l != nil {
			a.log = l
		}
	}
}

type api struct {
	svc      Service
	reports  *reports.Catalog
	exports  exports.Scheduler
	gatherer prometheus.Gatherer
	log      *zap.Logger

	maxUpload int64
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Service, opts ...Option) http.Handler {
	a := &api{svc: svc, log: zap.NewNop(), maxUpload: MaxUploadBytes}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	r.Handle("/debug/vars", expvar.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/machines/ingest", a.handleIngest)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", a.handleListReports)
			r.Get("/{key}", a.handleRunReport)
		})
		r.Route("/exports", func(r chi.Router) {
			r.Post("/sage", a.handleExportCreate)
			r.Get("/{id}", a.handleExportGet)
		})

		r.Post("/routes/build", a.handleBuildRoute)
		r.Post("/roast-batches/{id}/start", a.handleStartRoast)
		r.Post("/roast-batches/{id}/submit", a.handleSubmitRoastBatch)
		r.Post("/batch-costs/{id}/submit", a.handleSubmitBatchCost)
		r.Post("/assessments/{id}/submit", a.handleSubmitAssessment)

		r.Get("/roasting-logs/{id}/pull", a.handlePullPreview)
		r.Post("/roasting-logs/{id}/pull", a.handlePullApply)
		r.Post("/roasting-logs/{id}/import", a.handleImportCurve)

		r.Get("/geocode/reverse", a.handleReverseGeocode)
	})
	return r
}

func (a *api) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var nf domain.ErrNotFound
	switch {
	case errors.Is(err, core.ErrInvalidToken):
		return http.StatusForbidden
	case errors.As(err, &nf), errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrGeocodingDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if errors.Is(err, core.ErrInvalidToken) {
		msg = "Invalid token"
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, msg)
}

// decodeBody reads an optional JSON body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
