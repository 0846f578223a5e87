package streams

import (
	"iter"

	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
)

// Operations that change the element type.

// Map transforms each element with fn. An error from fn fails the stream.
func Map[T, R any](p PublisherBuilder[T], fn func(T) (R, error)) PublisherBuilder[R] {
	return Via(p, Mapping(fn))
}

// FlatMap replaces each element with the elements of the stream fn returns.
// Inner streams run one at a time, in order.
func FlatMap[T, R any](p PublisherBuilder[T], fn func(T) PublisherBuilder[R]) PublisherBuilder[R] {
	return Via(p, FlatMapping(fn))
}

// FlatMapSlice replaces each element with the elements of the slice fn
// returns.
func FlatMapSlice[T, R any](p PublisherBuilder[T], fn func(T) ([]R, error)) PublisherBuilder[R] {
	return Via(p, FlatMappingSlice(fn))
}

// FlatMapSeq replaces each element with the elements of the sequence fn
// returns.
func FlatMapSeq[T, R any](p PublisherBuilder[T], fn func(T) iter.Seq[R]) PublisherBuilder[R] {
	return Via(p, FlatMappingSeq(fn))
}

// FlatMapFuture replaces each element with the value of the future fn
// returns. Futures are awaited one at a time, preserving order.
func FlatMapFuture[T, R any](p PublisherBuilder[T], fn func(T) *future.Future) PublisherBuilder[R] {
	return Via(p, FlatMappingFuture[T, R](fn))
}

// Via routes p through the processor chain proc.
func Via[T, R any](p PublisherBuilder[T], proc ProcessorBuilder[T, R]) PublisherBuilder[R] {
	return PublisherBuilder[R]{b: p.b.nest(proc.b)}
}

// ViaProcessor routes p through an existing processor.
func ViaProcessor[T, R any](p PublisherBuilder[T], proc rs.Processor[T, R]) PublisherBuilder[R] {
	return Via(p, FromProcessor(proc))
}

// Collect reduces p with c.
func Collect[T, A, R any](p PublisherBuilder[T], c Collector[T, A, R]) CompletionRunner[R] {
	return CompletionRunner[R]{b: p.b.then(collectStage(c))}
}

// Fold folds the elements of p left to right, starting from initial.
func Fold[T, R any](p PublisherBuilder[T], initial R, acc func(R, T) R) CompletionRunner[R] {
	return Collect(p, foldCollector(initial, acc))
}

// To delivers p to the subscriber chain s and completes with its result.
func To[T, R any](p PublisherBuilder[T], s SubscriberBuilder[T, R]) CompletionRunner[R] {
	return CompletionRunner[R]{b: p.b.nest(s.b), finish: s.finish}
}

// Processor factories. Combine them with Then and Via.

// Mapping is a processor applying fn to each element.
func Mapping[T, R any](fn func(T) (R, error)) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(mapStage(fn))}
}

// FlatMapping is a processor replacing each element with a stream.
func FlatMapping[T, R any](fn func(T) PublisherBuilder[R]) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(flatMapStage(fn))}
}

// FlatMappingSlice is a processor replacing each element with a slice.
func FlatMappingSlice[T, R any](fn func(T) ([]R, error)) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(flatMapSliceStage(fn))}
}

// FlatMappingSeq is a processor replacing each element with a sequence.
func FlatMappingSeq[T, R any](fn func(T) iter.Seq[R]) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(flatMapSeqStage(fn))}
}

// FlatMappingFuture is a processor replacing each element with the value of
// a future.
func FlatMappingFuture[T, R any](fn func(T) *future.Future) ProcessorBuilder[T, R] {
	return ProcessorBuilder[T, R]{b: identity().then(flatMapFutureStage(fn))}
}

// Then appends next to p.
func Then[T, R, S any](p ProcessorBuilder[T, R], next ProcessorBuilder[R, S]) ProcessorBuilder[T, S] {
	return ProcessorBuilder[T, S]{b: p.b.nest(next.b)}
}

// CollectSubscriber completes a processor chain by reducing its output
// with c.
func CollectSubscriber[T, R, A, X any](p ProcessorBuilder[T, R], c Collector[R, A, X]) SubscriberBuilder[T, X] {
	return SubscriberBuilder[T, X]{b: p.b.then(collectStage(c))}
}

// ThenSubscriber appends a subscriber chain to a processor chain.
func ThenSubscriber[T, R, X any](p ProcessorBuilder[T, R], s SubscriberBuilder[R, X]) SubscriberBuilder[T, X] {
	return SubscriberBuilder[T, X]{b: p.b.nest(s.b), finish: s.finish}
}
