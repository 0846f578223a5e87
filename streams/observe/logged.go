package observe

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

type logged struct {
	next spi.Engine
	log  *zap.SugaredLogger
}

// Logged wraps engine so that every build is logged at debug level, with
// a graph ID that is repeated when the graph's completion settles.
// Build failures are logged as warnings.
func Logged(engine spi.Engine, log *zap.SugaredLogger) (spi.Engine, error) {
	if engine == nil {
		return nil, errors.WithStack(errors.ErrNilEngine)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &logged{next: engine, log: log}, nil
}

func (e *logged) built(shape spi.Shape, g spi.Graph, err error) *zap.SugaredLogger {
	log := e.log.With("graph_id", uuid.NewString(), "shape", shape.String())
	if err != nil {
		log.Warnw("graph rejected", "graph", g.String(), "error", err)
		return log
	}
	log.Debugw("graph built", "graph", g.String(), "stages", g.Len())
	return log
}

func watch(log *zap.SugaredLogger, f *future.Future) {
	f.OnSettle(func(_ any, err error) {
		if err != nil {
			log.Debugw("graph failed", "error", err, "outcome", outcome(err))
			return
		}
		log.Debugw("graph completed")
	})
}

func (e *logged) BuildPublisher(ctx context.Context, g spi.Graph) (rs.Publisher[any], error) {
	p, err := e.next.BuildPublisher(ctx, g)
	e.built(spi.ShapePublisher, g, err)
	return p, err
}

func (e *logged) BuildSubscriber(ctx context.Context, g spi.Graph) (spi.CompletionSubscriber, error) {
	cs, err := e.next.BuildSubscriber(ctx, g)
	log := e.built(spi.ShapeSubscriber, g, err)
	if err == nil {
		watch(log, cs.Completion)
	}
	return cs, err
}

func (e *logged) BuildProcessor(ctx context.Context, g spi.Graph) (rs.Processor[any, any], error) {
	p, err := e.next.BuildProcessor(ctx, g)
	e.built(spi.ShapeProcessor, g, err)
	return p, err
}

func (e *logged) BuildCompletion(ctx context.Context, g spi.Graph) (*future.Future, error) {
	f, err := e.next.BuildCompletion(ctx, g)
	log := e.built(spi.ShapeClosed, g, err)
	if err == nil {
		watch(log, f)
	}
	return f, err
}
