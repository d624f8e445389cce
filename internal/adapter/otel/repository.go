package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/goodnews/internal/domain"
)

const tracerName = "github.com/neomorfeo/goodnews/internal/adapter/otel"

// TracingRepository wraps a domain.EntityRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.EntityRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.EntityRepository.
var _ domain.EntityRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.EntityRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Insert(ctx context.Context, e domain.Entity) error {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.Insert",
		trace.WithAttributes(
			attribute.String("entity.family", string(e.Family)),
			attribute.String("entity.id", e.ID),
			attribute.String("entity.slug", e.Slug),
			attribute.String("entity.status", string(e.Status)),
		),
	)
	defer span.End()

	err := r.next.Insert(ctx, e)
	recordError(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, family domain.Family, id string) (domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.GetByID",
		trace.WithAttributes(
			attribute.String("entity.family", string(family)),
			attribute.String("entity.id", id),
		),
	)
	defer span.End()

	e, err := r.next.GetByID(ctx, family, id)
	recordError(span, err)
	return e, err
}

func (r *TracingRepository) GetBySlug(ctx context.Context, family domain.Family, slug string) (domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.GetBySlug",
		trace.WithAttributes(
			attribute.String("entity.family", string(family)),
			attribute.String("entity.slug", slug),
		),
	)
	defer span.End()

	e, err := r.next.GetBySlug(ctx, family, slug)
	recordError(span, err)
	return e, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.List",
		trace.WithAttributes(
			attribute.String("filter.family", string(filter.Family)),
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	entities, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(entities)))
	}
	return entities, err
}

func (r *TracingRepository) UpdateIf(ctx context.Context, e domain.Entity, expected domain.Expected) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.UpdateIf",
		trace.WithAttributes(
			attribute.String("entity.family", string(e.Family)),
			attribute.String("entity.id", e.ID),
			attribute.String("entity.status", string(e.Status)),
			attribute.String("expected.status", string(expected.Status)),
			attribute.Int64("expected.version", expected.Version),
		),
	)
	defer span.End()

	n, err := r.next.UpdateIf(ctx, e, expected)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int64("result.rows", n))
	}
	return n, err
}

func (r *TracingRepository) DeleteIf(ctx context.Context, family domain.Family, id string, expected domain.Expected) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.DeleteIf",
		trace.WithAttributes(
			attribute.String("entity.family", string(family)),
			attribute.String("entity.id", id),
			attribute.Int64("expected.version", expected.Version),
		),
	)
	defer span.End()

	n, err := r.next.DeleteIf(ctx, family, id, expected)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int64("result.rows", n))
	}
	return n, err
}

func (r *TracingRepository) SlugTaken(ctx context.Context, family domain.Family, slug, excludeID string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.SlugTaken",
		trace.WithAttributes(
			attribute.String("entity.family", string(family)),
			attribute.String("entity.slug", slug),
		),
	)
	defer span.End()

	taken, err := r.next.SlugTaken(ctx, family, slug, excludeID)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Bool("result.taken", taken))
	}
	return taken, err
}

func (r *TracingRepository) ApplySweep(ctx context.Context, rule domain.SweepRule, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "EntityRepository.ApplySweep",
		trace.WithAttributes(
			attribute.String("entity.family", string(rule.Family)),
			attribute.String("sweep.target", string(rule.Target)),
			attribute.String("sweep.trigger", string(rule.Trigger)),
		),
	)
	defer span.End()

	n, err := r.next.ApplySweep(ctx, rule, now)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int64("result.rows", n))
	}
	return n, err
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
