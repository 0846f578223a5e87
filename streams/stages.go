package streams

import (
	"iter"

	"github.com/lguimbarda/min-streams/errors"

	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// Typed constructors for erased stages, shared by the publisher,
// processor and subscriber builders.

func ofStage[T any](seq iter.Seq[T]) spi.Of {
	return spi.Of{Elements: func(yield func(any) bool) {
		for v := range seq {
			if !yield(v) {
				return
			}
		}
	}}
}

func mapStage[T, R any](fn func(T) (R, error)) spi.Map {
	return spi.Map{Fn: func(v any) (any, error) {
		r, err := fn(as[T](v))
		if err != nil {
			return nil, err
		}
		return r, nil
	}}
}

func predicate[T any](pred func(T) bool) func(any) bool {
	return func(v any) bool { return pred(as[T](v)) }
}

func flatMapStage[T, R any](fn func(T) PublisherBuilder[R]) spi.FlatMap {
	return spi.FlatMap{Fn: func(v any) (spi.Graph, error) {
		return fn(as[T](v)).b.toGraph(), nil
	}}
}

func flatMapSliceStage[T, R any](fn func(T) ([]R, error)) spi.FlatMapIterable {
	return spi.FlatMapIterable{Fn: func(v any) (iter.Seq[any], error) {
		items, err := fn(as[T](v))
		if err != nil {
			return nil, err
		}
		return func(yield func(any) bool) {
			for _, item := range items {
				if !yield(item) {
					return
				}
			}
		}, nil
	}}
}

func flatMapSeqStage[T, R any](fn func(T) iter.Seq[R]) spi.FlatMapIterable {
	return spi.FlatMapIterable{Fn: func(v any) (iter.Seq[any], error) {
		return ofStage(fn(as[T](v))).Elements, nil
	}}
}

func flatMapFutureStage[T any](fn func(T) *future.Future) spi.FlatMapFuture {
	return spi.FlatMapFuture{Fn: func(v any) (*future.Future, error) {
		return fn(as[T](v)), nil
	}}
}

func peekStage[T any](fn func(T)) spi.Peek {
	return spi.Peek{Fn: func(v any) { fn(as[T](v)) }}
}

func resumeStage[T any](fn func(error) T) spi.OnErrorResume {
	return spi.OnErrorResume{Fn: func(err error) any { return fn(err) }}
}

func resumeWithStage[T any](fn func(error) PublisherBuilder[T]) spi.OnErrorResumeWith {
	return spi.OnErrorResumeWith{Fn: func(err error) spi.Graph {
		return fn(err).b.toGraph()
	}}
}

func collectStage[T, A, R any](c Collector[T, A, R]) spi.Collect {
	erased := spi.Collector{
		Supplier: func() any { return c.Supplier() },
		Accumulator: func(acc, element any) (any, error) {
			return c.Accumulator(as[A](acc), as[T](element))
		},
	}
	if c.Finisher != nil {
		erased.Finisher = func(acc any) (any, error) {
			return c.Finisher(as[A](acc))
		}
	}
	return spi.Collect{Collector: erased}
}

// forEachStage runs fn for every element and completes with nil.
func forEachStage[T any](fn func(T)) spi.Collect {
	return spi.Collect{Collector: spi.Collector{
		Supplier: func() any { return nil },
		Accumulator: func(_, element any) (any, error) {
			fn(as[T](element))
			return nil, nil
		},
	}}
}

func ignoreStage() spi.Collect {
	return spi.Collect{Collector: spi.Collector{
		Supplier:    func() any { return nil },
		Accumulator: func(_, _ any) (any, error) { return nil, nil },
	}}
}

// count rejects a negative element count for op.
func count(op string, n int64) int64 {
	if n < 0 {
		panic(errors.AssertionFailedf("%s: count must not be negative, got %d", op, n))
	}
	return n
}
