package streams

import (
	"context"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// ErrEmptyStream is returned by FindFirst results when the stream ended
// without an element.
var ErrEmptyStream = errors.New("stream is empty")

// CompletionRunner is a closed graph whose result is a single value of
// type T.
type CompletionRunner[T any] struct {
	b *graphBuilder
	// finish post-processes the raw result in Await. nil means none.
	finish func(any) (any, error)
}

// Run executes the graph on the default engine.
func (r CompletionRunner[T]) Run(ctx context.Context) (*future.Future, error) {
	engine, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return r.RunWith(ctx, engine)
}

// RunWith materializes the graph and hands it to engine. The future the
// engine returns is passed through untouched; execution failures surface
// only through it. Every call materializes and dispatches again.
func (r CompletionRunner[T]) RunWith(ctx context.Context, engine spi.Engine) (*future.Future, error) {
	if engine == nil {
		return nil, errors.WithStack(errors.ErrNilEngine)
	}
	return engine.BuildCompletion(ctx, r.b.toGraph())
}

// Await runs the graph on the default engine and waits for its result.
func (r CompletionRunner[T]) Await(ctx context.Context) (T, error) {
	f, err := r.Run(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return await[T](ctx, f, r.finish)
}

// AwaitWith runs the graph on engine and waits for its result.
func (r CompletionRunner[T]) AwaitWith(ctx context.Context, engine spi.Engine) (T, error) {
	f, err := r.RunWith(ctx, engine)
	if err != nil {
		var zero T
		return zero, err
	}
	return await[T](ctx, f, r.finish)
}

// Graph materializes the builder chain.
func (r CompletionRunner[T]) Graph() spi.Graph {
	return r.b.toGraph()
}

func await[T any](ctx context.Context, f *future.Future, finish func(any) (any, error)) (T, error) {
	if finish != nil {
		f = future.Then(f, finish)
	}
	return future.Get[T](ctx, f)
}

func requireElement(v any) (any, error) {
	if v == nil {
		return nil, ErrEmptyStream
	}
	return v, nil
}
