package streams

import (
	"context"
	"iter"
	"slices"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// PublisherBuilder declares a graph that starts with a source and emits
// elements of type T.
type PublisherBuilder[T any] struct {
	b *graphBuilder
}

func newPublisher[T any](stage spi.Stage) PublisherBuilder[T] {
	return PublisherBuilder[T]{b: &graphBuilder{stage: stage}}
}

func (p PublisherBuilder[T]) then(stage spi.Stage) PublisherBuilder[T] {
	return PublisherBuilder[T]{b: p.b.then(stage)}
}

// Sources.

// Of emits values in order, then completes.
func Of[T any](values ...T) PublisherBuilder[T] {
	return FromSlice(values)
}

// FromSlice emits the elements of a copy of items.
func FromSlice[T any](items []T) PublisherBuilder[T] {
	return newPublisher[T](ofStage(slices.Values(slices.Clone(items))))
}

// FromSeq emits the elements of seq. seq is iterated once per run.
func FromSeq[T any](seq iter.Seq[T]) PublisherBuilder[T] {
	return newPublisher[T](ofStage(seq))
}

// Empty completes without emitting.
func Empty[T any]() PublisherBuilder[T] {
	return FromSlice[T](nil)
}

// Failed signals err without emitting.
func Failed[T any](err error) PublisherBuilder[T] {
	return newPublisher[T](spi.Failed{Err: err})
}

// Iterate emits seed, next(seed), next(next(seed)), and so on, forever.
// Bound it with Limit or TakeWhile.
func Iterate[T any](seed T, next func(T) T) PublisherBuilder[T] {
	return FromSeq(func(yield func(T) bool) {
		for v := seed; yield(v); v = next(v) {
		}
	})
}

// Generate emits the results of calling fn, forever.
func Generate[T any](fn func() T) PublisherBuilder[T] {
	return FromSeq(func(yield func(T) bool) {
		for yield(fn()) {
		}
	})
}

// FromPublisher emits what p emits.
func FromPublisher[T any](p rs.Publisher[T]) PublisherBuilder[T] {
	return newPublisher[T](spi.PublisherStage{Publisher: rs.Erase(p)})
}

// FromFuture emits the value f settles with. A nil value fails the stream
// with spi.ErrNilElement.
func FromFuture[T any](f *future.Future) PublisherBuilder[T] {
	return newPublisher[T](spi.FromFuture{Future: f})
}

// FromFutureNullable is FromFuture, except a nil value completes the
// stream empty.
func FromFutureNullable[T any](f *future.Future) PublisherBuilder[T] {
	return newPublisher[T](spi.FromFuture{Future: f, Nullable: true})
}

// Concat emits all elements of a, then all elements of b.
func Concat[T any](a, b PublisherBuilder[T]) PublisherBuilder[T] {
	return newPublisher[T](spi.Concat{First: a.b.toGraph(), Second: b.b.toGraph()})
}

// Same-type operations.

// Filter keeps elements matching pred.
func (p PublisherBuilder[T]) Filter(pred func(T) bool) PublisherBuilder[T] {
	return p.then(spi.Filter{Pred: predicate(pred)})
}

// Limit truncates the stream after n elements. It panics if n is
// negative.
func (p PublisherBuilder[T]) Limit(n int64) PublisherBuilder[T] {
	return p.then(spi.Limit{N: count("Limit", n)})
}

// Skip drops the first n elements. It panics if n is negative.
func (p PublisherBuilder[T]) Skip(n int64) PublisherBuilder[T] {
	return p.then(spi.Skip{N: count("Skip", n)})
}

// TakeWhile emits elements while pred holds and completes at the first
// element that fails it.
func (p PublisherBuilder[T]) TakeWhile(pred func(T) bool) PublisherBuilder[T] {
	return p.then(spi.TakeWhile{Pred: predicate(pred)})
}

// DropWhile drops elements while pred holds.
func (p PublisherBuilder[T]) DropWhile(pred func(T) bool) PublisherBuilder[T] {
	return p.then(spi.DropWhile{Pred: predicate(pred)})
}

// Distinct drops repeated elements. Elements must be comparable.
func (p PublisherBuilder[T]) Distinct() PublisherBuilder[T] {
	return p.then(spi.Distinct{})
}

// Peek calls fn with every element.
func (p PublisherBuilder[T]) Peek(fn func(T)) PublisherBuilder[T] {
	return p.then(peekStage(fn))
}

// OnError calls fn if the stream fails.
func (p PublisherBuilder[T]) OnError(fn func(error)) PublisherBuilder[T] {
	return p.then(spi.OnError{Fn: fn})
}

// OnComplete calls fn if the stream completes normally.
func (p PublisherBuilder[T]) OnComplete(fn func()) PublisherBuilder[T] {
	return p.then(spi.OnComplete{Fn: fn})
}

// OnTerminate calls fn when the stream completes, fails or is cancelled.
func (p PublisherBuilder[T]) OnTerminate(fn func()) PublisherBuilder[T] {
	return p.then(spi.OnTerminate{Fn: fn})
}

// OnErrorResume replaces a failure with one final element.
func (p PublisherBuilder[T]) OnErrorResume(fn func(error) T) PublisherBuilder[T] {
	return p.then(resumeStage(fn))
}

// OnErrorResumeWith replaces a failure with the elements of another stream.
func (p PublisherBuilder[T]) OnErrorResumeWith(fn func(error) PublisherBuilder[T]) PublisherBuilder[T] {
	return p.then(resumeWithStage(fn))
}

// Terminal operations.

// ToSlice completes with all elements in order.
func (p PublisherBuilder[T]) ToSlice() CompletionRunner[[]T] {
	return Collect(p, SliceCollector[T]())
}

// FindFirst completes with the first element. Await reports ErrEmptyStream
// when there is none.
func (p PublisherBuilder[T]) FindFirst() CompletionRunner[T] {
	return CompletionRunner[T]{b: p.b.then(spi.FindFirst{}), finish: requireElement}
}

// Reduce folds elements with acc, starting from identity.
func (p PublisherBuilder[T]) Reduce(identity T, acc func(T, T) T) CompletionRunner[T] {
	return Fold(p, identity, acc)
}

// ForEach calls fn with every element and completes when the stream does.
func (p PublisherBuilder[T]) ForEach(fn func(T)) CompletionRunner[struct{}] {
	return CompletionRunner[struct{}]{b: p.b.then(forEachStage(fn))}
}

// Ignore discards every element and completes when the stream does.
func (p PublisherBuilder[T]) Ignore() CompletionRunner[struct{}] {
	return CompletionRunner[struct{}]{b: p.b.then(ignoreStage())}
}

// Cancel cancels the stream as soon as it starts.
func (p PublisherBuilder[T]) Cancel() CompletionRunner[struct{}] {
	return CompletionRunner[struct{}]{b: p.b.then(spi.Cancel{})}
}

// To delivers the stream to s. The completion settles when the stream ends.
func (p PublisherBuilder[T]) To(s rs.Subscriber[T]) CompletionRunner[struct{}] {
	return CompletionRunner[struct{}]{b: p.b.then(spi.SubscriberStage{Subscriber: rs.EraseSubscriber(s)})}
}

// Graph materializes the builder chain.
func (p PublisherBuilder[T]) Graph() spi.Graph {
	return p.b.toGraph()
}

// Build turns the graph into a publisher using the default engine.
func (p PublisherBuilder[T]) Build(ctx context.Context) (rs.Publisher[T], error) {
	engine, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return p.BuildWith(ctx, engine)
}

// BuildWith turns the graph into a publisher using engine.
func (p PublisherBuilder[T]) BuildWith(ctx context.Context, engine spi.Engine) (rs.Publisher[T], error) {
	if engine == nil {
		return nil, errors.WithStack(errors.ErrNilEngine)
	}
	pub, err := engine.BuildPublisher(ctx, p.b.toGraph())
	if err != nil {
		return nil, err
	}
	return rs.Narrow[T](pub), nil
}
