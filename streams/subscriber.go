package streams

import (
	"context"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// SubscriberBuilder declares a graph that accepts elements of type T and
// completes with a result of type R.
type SubscriberBuilder[T, R any] struct {
	b      *graphBuilder
	finish func(any) (any, error)
}

// FromSubscriber wraps an existing subscriber.
func FromSubscriber[T any](s rs.Subscriber[T]) SubscriberBuilder[T, struct{}] {
	return Builder[T]().To(s)
}

// CompletionSubscriber is a built subscriber together with the future of
// its result.
type CompletionSubscriber[T, R any] struct {
	rs.Subscriber[T]
	// Completion settles when the subscriber's stream ends.
	Completion *future.Future

	finish func(any) (any, error)
}

// Await waits for the subscriber's result.
func (c CompletionSubscriber[T, R]) Await(ctx context.Context) (R, error) {
	return await[R](ctx, c.Completion, c.finish)
}

// Graph materializes the builder chain.
func (s SubscriberBuilder[T, R]) Graph() spi.Graph {
	return s.b.toGraph()
}

// Build turns the graph into a subscriber using the default engine.
func (s SubscriberBuilder[T, R]) Build(ctx context.Context) (CompletionSubscriber[T, R], error) {
	engine, err := DefaultEngine()
	if err != nil {
		return CompletionSubscriber[T, R]{}, err
	}
	return s.BuildWith(ctx, engine)
}

// BuildWith turns the graph into a subscriber using engine.
func (s SubscriberBuilder[T, R]) BuildWith(ctx context.Context, engine spi.Engine) (CompletionSubscriber[T, R], error) {
	if engine == nil {
		return CompletionSubscriber[T, R]{}, errors.WithStack(errors.ErrNilEngine)
	}
	cs, err := engine.BuildSubscriber(ctx, s.b.toGraph())
	if err != nil {
		return CompletionSubscriber[T, R]{}, err
	}
	return CompletionSubscriber[T, R]{
		Subscriber: rs.NarrowSubscriber[T](cs.Subscriber),
		Completion: cs.Completion,
		finish:     s.finish,
	}, nil
}
