package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// TracingAuditStore wraps a domain.AuditStore with OpenTelemetry tracing.
type TracingAuditStore struct {
	next   domain.AuditStore
	tracer trace.Tracer
}

// Compile-time check: TracingAuditStore implements domain.AuditStore.
var _ domain.AuditStore = (*TracingAuditStore)(nil)

func NewTracingAuditStore(next domain.AuditStore) *TracingAuditStore {
	return &TracingAuditStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingAuditStore) Append(ctx context.Context, rec domain.AuditRecord) error {
	ctx, span := s.tracer.Start(ctx, "AuditStore.Append",
		trace.WithAttributes(
			attribute.String("audit.action", rec.Action),
			attribute.String("audit.actor_id", rec.ActorID),
			attribute.String("entity.id", rec.EntityID),
		),
	)
	defer span.End()

	err := s.next.Append(ctx, rec)
	recordError(span, err)
	return err
}

func (s *TracingAuditStore) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	ctx, span := s.tracer.Start(ctx, "AuditStore.List",
		trace.WithAttributes(
			attribute.String("filter.family", string(filter.Family)),
			attribute.String("filter.entity_id", filter.EntityID),
			attribute.Int("filter.limit", filter.Limit),
		),
	)
	defer span.End()

	records, err := s.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(records)))
	}
	return records, err
}
