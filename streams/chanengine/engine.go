// Package chanengine is a reactive streams engine that runs every stage of
// a graph as a goroutine connected to its neighbours by channels.
//
// Importing the package registers the engine under the name "chan":
//
//	import _ "github.com/lguimbarda/min-streams/streams/chanengine"
//
// Errors are terminal: the first error a stage sees ends the stream.
// Coupled stages are not supported.
package chanengine

import (
	"context"
	"iter"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/logger"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// Name is the name the engine registers under.
const Name = "chan"

func init() {
	spi.Register(Name, func() (spi.Engine, error) {
		return New(WithLogger(logger.Named(Name))), nil
	})
}

// Engine implements spi.Engine. It is safe for concurrent use.
type Engine struct {
	bufferSize int
	log        *zap.SugaredLogger
	runs       atomic.Uint64
}

var _ spi.Engine = (*Engine)(nil)

// New returns an engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		bufferSize: DefaultBufferSize,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildCompletion starts the graph and returns a future that settles with
// the terminal stage's result.
func (e *Engine) BuildCompletion(ctx context.Context, g spi.Graph) (*future.Future, error) {
	if err := g.Validate(spi.ShapeClosed); err != nil {
		return nil, err
	}
	stages := g.Stages()
	src, err := e.publisher(spi.NewGraph(stages[:len(stages)-1]...))
	if err != nil {
		return nil, err
	}
	finish, err := e.sink(stages[len(stages)-1])
	if err != nil {
		return nil, err
	}

	f := future.New()
	run := e.runs.Add(1)
	e.log.Debugw("run started", "run", run, "graph", g.String())
	go func() {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		e.settle(ctx, run, f, finish, src(ctx))
	}()
	return f, nil
}

// BuildPublisher returns a cold publisher: every subscription runs the
// graph afresh.
func (e *Engine) BuildPublisher(ctx context.Context, g spi.Graph) (rs.Publisher[any], error) {
	src, err := e.publisher(g)
	if err != nil {
		return nil, err
	}
	return rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[any, error] {
		return results(ctx, src(ctx))
	}), nil
}

// BuildSubscriber returns a subscriber that runs the graph on whatever it
// is subscribed to. The completion settles when the terminal stage does.
func (e *Engine) BuildSubscriber(ctx context.Context, g spi.Graph) (spi.CompletionSubscriber, error) {
	if err := g.Validate(spi.ShapeSubscriber); err != nil {
		return spi.CompletionSubscriber{}, err
	}
	stages := g.Stages()
	chain, err := e.chain(stages[:len(stages)-1])
	if err != nil {
		return spi.CompletionSubscriber{}, err
	}
	finish, err := e.sink(stages[len(stages)-1])
	if err != nil {
		return spi.CompletionSubscriber{}, err
	}

	in := newInbox(e.bufferSize)
	f := future.New()
	run := e.runs.Add(1)
	e.log.Debugw("subscriber started", "run", run, "graph", g.String())
	go func() {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		e.settle(ctx, run, f, finish, chain(ctx, in.relay(ctx)))
	}()
	return spi.CompletionSubscriber{Subscriber: in, Completion: f}, nil
}

// BuildProcessor returns a processor running the graph. Its outlet
// accepts a single subscriber.
func (e *Engine) BuildProcessor(ctx context.Context, g spi.Graph) (rs.Processor[any, any], error) {
	if err := g.Validate(spi.ShapeProcessor); err != nil {
		return nil, err
	}
	chain, err := e.chain(g.Stages())
	if err != nil {
		return nil, err
	}

	p := &processor{inbox: newInbox(e.bufferSize)}
	p.Publisher = rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[any, error] {
		if !p.used.CompareAndSwap(false, true) {
			return func(yield func(any, error) bool) {
				yield(nil, errors.Wrap(rs.ErrRuleViolation, "processor accepts a single subscriber"))
			}
		}
		return results(ctx, chain(ctx, p.inbox.relay(ctx)))
	})
	return p, nil
}

func (e *Engine) settle(ctx context.Context, run uint64, f *future.Future, finish sink, in <-chan result) {
	v, err := finish(ctx, in)
	if err != nil {
		e.log.Debugw("run failed", "run", run, "error", err)
		f.Fail(err)
		return
	}
	e.log.Debugw("run completed", "run", run)
	f.Complete(v)
}

type processor struct {
	*inbox
	rs.Publisher[any]
	used atomic.Bool
}
