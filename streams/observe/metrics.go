// Package observe decorates engines with metrics and logging. Decorated
// engines behave exactly like the engine they wrap.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// Metric names recorded by Instrument.
const (
	MetricGraphsBuilt = "streams.graphs.built"
	MetricCompletions = "streams.completions"
	MetricGraphStages = "streams.graph.stages"
)

type instrumented struct {
	next        spi.Engine
	built       metric.Int64Counter
	completions metric.Int64Counter
	stages      metric.Int64Histogram
}

// Instrument wraps engine so that every graph it builds is counted by
// shape, every completion by outcome, and graph sizes are recorded.
func Instrument(engine spi.Engine, meter metric.Meter) (spi.Engine, error) {
	if engine == nil {
		return nil, errors.WithStack(errors.ErrNilEngine)
	}
	if meter == nil {
		return nil, errors.New("meter must not be nil")
	}

	built, err := meter.Int64Counter(MetricGraphsBuilt,
		metric.WithDescription("Graphs successfully built by the engine"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create graphs counter")
	}
	completions, err := meter.Int64Counter(MetricCompletions,
		metric.WithDescription("Settled graph completions"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create completions counter")
	}
	stages, err := meter.Int64Histogram(MetricGraphStages,
		metric.WithDescription("Number of stages per built graph"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stages histogram")
	}

	return &instrumented{next: engine, built: built, completions: completions, stages: stages}, nil
}

func (e *instrumented) record(ctx context.Context, shape spi.Shape, g spi.Graph) {
	attrs := metric.WithAttributes(attribute.String("shape", shape.String()))
	e.built.Add(ctx, 1, attrs)
	e.stages.Record(ctx, int64(g.Len()), attrs)
}

func (e *instrumented) watch(ctx context.Context, f *future.Future) {
	ctx = context.WithoutCancel(ctx)
	f.OnSettle(func(_ any, err error) {
		e.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	})
}

func (e *instrumented) BuildPublisher(ctx context.Context, g spi.Graph) (rs.Publisher[any], error) {
	p, err := e.next.BuildPublisher(ctx, g)
	if err == nil {
		e.record(ctx, spi.ShapePublisher, g)
	}
	return p, err
}

func (e *instrumented) BuildSubscriber(ctx context.Context, g spi.Graph) (spi.CompletionSubscriber, error) {
	cs, err := e.next.BuildSubscriber(ctx, g)
	if err == nil {
		e.record(ctx, spi.ShapeSubscriber, g)
		e.watch(ctx, cs.Completion)
	}
	return cs, err
}

func (e *instrumented) BuildProcessor(ctx context.Context, g spi.Graph) (rs.Processor[any, any], error) {
	p, err := e.next.BuildProcessor(ctx, g)
	if err == nil {
		e.record(ctx, spi.ShapeProcessor, g)
	}
	return p, err
}

func (e *instrumented) BuildCompletion(ctx context.Context, g spi.Graph) (*future.Future, error) {
	f, err := e.next.BuildCompletion(ctx, g)
	if err == nil {
		e.record(ctx, spi.ShapeClosed, g)
		e.watch(ctx, f)
	}
	return f, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.IsAny(err, context.Canceled, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
