package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/goodnews/internal/domain"
)

const meterName = tracerName

// Sweeper is the scheduler pass being instrumented.
type Sweeper interface {
	Sweep(ctx context.Context, family domain.Family) (int64, error)
}

// InstrumentedSweeper traces each sweep and counts the rows it moved.
type InstrumentedSweeper struct {
	next     Sweeper
	tracer   trace.Tracer
	swept    metric.Int64Counter
	failures metric.Int64Counter
}

// NewInstrumentedSweeper creates a tracing and metering decorator around
// the given sweeper.
func NewInstrumentedSweeper(next Sweeper) (*InstrumentedSweeper, error) {
	meter := otel.Meter(meterName)

	swept, err := meter.Int64Counter("goodnews.sweep.rows",
		metric.WithDescription("Entities moved by scheduler sweeps"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sweep rows counter: %w", err)
	}

	failures, err := meter.Int64Counter("goodnews.sweep.failures",
		metric.WithDescription("Scheduler sweeps that failed"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sweep failures counter: %w", err)
	}

	return &InstrumentedSweeper{
		next:     next,
		tracer:   otel.Tracer(tracerName),
		swept:    swept,
		failures: failures,
	}, nil
}

func (s *InstrumentedSweeper) Sweep(ctx context.Context, family domain.Family) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Sweeper.Sweep",
		trace.WithAttributes(attribute.String("entity.family", string(family))),
	)
	defer span.End()

	familyAttr := metric.WithAttributes(attribute.String("family", string(family)))

	n, err := s.next.Sweep(ctx, family)
	if err != nil {
		recordError(span, err)
		s.failures.Add(ctx, 1, familyAttr)
		return n, err
	}

	span.SetAttributes(attribute.Int64("result.rows", n))
	s.swept.Add(ctx, n, familyAttr)
	return n, nil
}
