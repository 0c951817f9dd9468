// Package core hosts the roastery back-office service: document lifecycle
// hooks, stock and accounting postings, curve imports and route building,
// all executed inside store transactions guarded by the rules engine.
package core

import (
	"context"
	"time"

	"coffeeroaster/internal/blob"
	"coffeeroaster/internal/geocode"
	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/pkg/domain"
)

type (
	Result          = domain.Result
	Change          = domain.Change
	RulesEngine     = domain.RulesEngine
	Rule            = domain.Rule
	Violation       = domain.Violation
	EntityType      = domain.EntityType
	ErrNotFound     = domain.ErrNotFound
	ValidationError = domain.ValidationError
)

// Logger is the structured logging surface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service exposes transactional document operations.
type Service struct {
	store    domain.PersistentStore
	logger   Logger
	now      func() time.Time
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	blobs    blob.Store
	geocoder geocode.Reverser
	defaults domain.Settings
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for posting dates and names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditRecorder records one entry per operation.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder observes operation outcomes and latency.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer wraps every operation in a span.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithBlobStore sets where attachments are read from and written to.
func WithBlobStore(b blob.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.blobs = b
		}
	}
}

// WithGeocoder enables reverse geocoding of RTM assignments.
func WithGeocoder(g geocode.Reverser) Option {
	return func(s *Service) {
		if g != nil {
			s.geocoder = g
		}
	}
}

// WithSettingsDefaults seeds the settings document on first use.
func WithSettingsDefaults(d domain.Settings) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		now:     func() time.Time { return time.Now().UTC() },
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Logger returns the configured logger.
func (s *Service) Logger() Logger {
	return s.logger
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// View runs fn against a read-only snapshot.
func (s *Service) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// run wraps a transaction with tracing, metrics, audit and logging. id
// returns the affected document name once fn has run.
func (s *Service) run(ctx context.Context, op string, entity EntityType, action domain.Action, fn func(tx domain.Transaction) error, id func() string) (Result, error) {
	ctx, done := s.observe(ctx, op, entity, action)
	res, err := s.store.RunInTransaction(ctx, fn)
	done(id(), err)
	s.logViolations(op, res)
	return res, err
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityBlock:
			s.logger.Debug("rule blocked transaction", "operation", op, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
		case domain.SeverityWarn:
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
		default:
			s.logger.Info("rule note", "operation", op, "rule", v.Rule, "message", v.Message)
		}
	}
}

func constID(id string) func() string {
	return func() string { return id }
}
