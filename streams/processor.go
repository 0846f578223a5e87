package streams

import (
	"context"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// ProcessorBuilder declares a graph that accepts elements of type T and
// emits elements of type R.
type ProcessorBuilder[T, R any] struct {
	b *graphBuilder
}

// Builder starts an identity processor chain for elements of type T.
func Builder[T any]() ProcessorBuilder[T, T] {
	return ProcessorBuilder[T, T]{b: identity()}
}

// FromProcessor wraps an existing processor.
func FromProcessor[T, R any](p rs.Processor[T, R]) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(spi.ProcessorStage{Processor: rs.EraseProcessor(p)})}
}

// Coupled joins a subscriber and a publisher into a processor: elements
// sent to the processor go to sub, and elements the processor emits come
// from pub. Termination of either side cancels or completes the other.
func Coupled[T, X, R any](sub SubscriberBuilder[T, X], pub PublisherBuilder[R]) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(spi.Coupled{
		Subscriber: sub.b.toGraph(),
		Publisher:  pub.b.toGraph(),
	})}
}

func (p ProcessorBuilder[T, R]) then(stage spi.Stage) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: p.b.then(stage)}
}

func (p ProcessorBuilder[T, R]) subscriber(stage spi.Stage) SubscriberBuilder[T, struct{}] {
	return SubscriberBuilder[T, struct{}]{b: p.b.then(stage)}
}

// Filter keeps elements matching pred.
func (p ProcessorBuilder[T, R]) Filter(pred func(R) bool) ProcessorBuilder[T, R] {
	return p.then(spi.Filter{Pred: predicate(pred)})
}

// Limit truncates the stream after n elements. It panics if n is
// negative.
func (p ProcessorBuilder[T, R]) Limit(n int64) ProcessorBuilder[T, R] {
	return p.then(spi.Limit{N: count("Limit", n)})
}

// Skip drops the first n elements. It panics if n is negative.
func (p ProcessorBuilder[T, R]) Skip(n int64) ProcessorBuilder[T, R] {
	return p.then(spi.Skip{N: count("Skip", n)})
}

// TakeWhile emits elements while pred holds.
func (p ProcessorBuilder[T, R]) TakeWhile(pred func(R) bool) ProcessorBuilder[T, R] {
	return p.then(spi.TakeWhile{Pred: predicate(pred)})
}

// DropWhile drops elements while pred holds.
func (p ProcessorBuilder[T, R]) DropWhile(pred func(R) bool) ProcessorBuilder[T, R] {
	return p.then(spi.DropWhile{Pred: predicate(pred)})
}

// Distinct drops repeated elements.
func (p ProcessorBuilder[T, R]) Distinct() ProcessorBuilder[T, R] {
	return p.then(spi.Distinct{})
}

// Peek calls fn with every element.
func (p ProcessorBuilder[T, R]) Peek(fn func(R)) ProcessorBuilder[T, R] {
	return p.then(peekStage(fn))
}

// OnError calls fn if the stream fails.
func (p ProcessorBuilder[T, R]) OnError(fn func(error)) ProcessorBuilder[T, R] {
	return p.then(spi.OnError{Fn: fn})
}

// OnComplete calls fn if the stream completes normally.
func (p ProcessorBuilder[T, R]) OnComplete(fn func()) ProcessorBuilder[T, R] {
	return p.then(spi.OnComplete{Fn: fn})
}

// OnTerminate calls fn when the stream ends for any reason.
func (p ProcessorBuilder[T, R]) OnTerminate(fn func()) ProcessorBuilder[T, R] {
	return p.then(spi.OnTerminate{Fn: fn})
}

// OnErrorResume replaces a failure with one final element.
func (p ProcessorBuilder[T, R]) OnErrorResume(fn func(error) R) ProcessorBuilder[T, R] {
	return p.then(resumeStage(fn))
}

// OnErrorResumeWith replaces a failure with the elements of another stream.
func (p ProcessorBuilder[T, R]) OnErrorResumeWith(fn func(error) PublisherBuilder[R]) ProcessorBuilder[T, R] {
	return p.then(resumeWithStage(fn))
}

// ToSlice completes with all elements in order.
func (p ProcessorBuilder[T, R]) ToSlice() SubscriberBuilder[T, []R] {
	return CollectSubscriber(p, SliceCollector[R]())
}

// FindFirst completes with the first element.
func (p ProcessorBuilder[T, R]) FindFirst() SubscriberBuilder[T, R] {
	return SubscriberBuilder[T, R]{b: p.b.then(spi.FindFirst{}), finish: requireElement}
}

// Reduce folds elements with acc, starting from identity.
func (p ProcessorBuilder[T, R]) Reduce(identity R, acc func(R, R) R) SubscriberBuilder[T, R] {
	return CollectSubscriber(p, foldCollector(identity, acc))
}

// ForEach calls fn with every element.
func (p ProcessorBuilder[T, R]) ForEach(fn func(R)) SubscriberBuilder[T, struct{}] {
	return p.subscriber(forEachStage(fn))
}

// Ignore discards every element.
func (p ProcessorBuilder[T, R]) Ignore() SubscriberBuilder[T, struct{}] {
	return p.subscriber(ignoreStage())
}

// Cancel cancels upstream as soon as the subscriber is subscribed.
func (p ProcessorBuilder[T, R]) Cancel() SubscriberBuilder[T, struct{}] {
	return p.subscriber(spi.Cancel{})
}

// To delivers the processor's output to s.
func (p ProcessorBuilder[T, R]) To(s rs.Subscriber[R]) SubscriberBuilder[T, struct{}] {
	return p.subscriber(spi.SubscriberStage{Subscriber: rs.EraseSubscriber(s)})
}

// Graph materializes the builder chain.
func (p ProcessorBuilder[T, R]) Graph() spi.Graph {
	return p.b.toGraph()
}

// Build turns the graph into a processor using the default engine.
func (p ProcessorBuilder[T, R]) Build(ctx context.Context) (rs.Processor[T, R], error) {
	engine, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return p.BuildWith(ctx, engine)
}

// BuildWith turns the graph into a processor using engine.
func (p ProcessorBuilder[T, R]) BuildWith(ctx context.Context, engine spi.Engine) (rs.Processor[T, R], error) {
	if engine == nil {
		return nil, errors.WithStack(errors.ErrNilEngine)
	}
	proc, err := engine.BuildProcessor(ctx, p.b.toGraph())
	if err != nil {
		return nil, err
	}
	return rs.NarrowProcessor[T, R](proc), nil
}
