package core

import (
	"context"
	"time"

	"coffeeroaster/pkg/domain"
)

// Outcome classifies how an operation ended. Rejected operations failed a
// user-facing check such as a missing account or short stock.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// OutcomeOf maps an operation error to its Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case domain.IsValidation(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// AuditEntry describes one service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    Outcome
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, outcome Outcome, duration time.Duration)
}

// Tracer starts spans around operations on one entity type.
type Tracer interface {
	Start(ctx context.Context, operation string, entity domain.EntityType) (context.Context, TraceSpan)
}

// TraceSpan is ended once with the affected document name (possibly empty)
// and the operation error.
type TraceSpan interface {
	End(document string, err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, Outcome, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ domain.EntityType) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(string, error) {}

// observe starts a span and returns the completion callback that records
// audit, metrics and log output.
func (s *Service) observe(ctx context.Context, op string, entity domain.EntityType, action domain.Action) (context.Context, func(id string, err error)) {
	started := s.now()
	clock := time.Now()
	ctx, span := s.tracer.Start(ctx, op, entity)
	return ctx, func(id string, err error) {
		elapsed := time.Since(clock)
		outcome := OutcomeOf(err)
		span.End(id, err)
		s.metrics.Observe(ctx, op, outcome, elapsed)
		entry := AuditEntry{
			Operation: op,
			Entity:    entity,
			Action:    action,
			EntityID:  id,
			Status:    outcome,
			Duration:  elapsed,
			Timestamp: started,
		}
		switch outcome {
		case OutcomeSuccess:
			s.logger.Debug("operation completed", "operation", op, "entity", entity, "id", id, "duration", elapsed)
		case OutcomeRejected:
			entry.Error = err.Error()
			s.logger.Info("operation rejected", "operation", op, "entity", entity, "id", id, "error", err)
		default:
			entry.Error = err.Error()
			s.logger.Error("operation failed", "operation", op, "entity", entity, "id", id, "error", err)
		}
		s.audit.Record(ctx, entry)
	}
}
