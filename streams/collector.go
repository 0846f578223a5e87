package streams

// Collector reduces a stream of T into a result R through an accumulation
// of type A. Finisher may be nil only when A and R are the same type.
type Collector[T, A, R any] struct {
	Supplier    func() A
	Accumulator func(acc A, element T) (A, error)
	Finisher    func(acc A) (R, error)
}

// SliceCollector gathers elements into a slice in stream order.
func SliceCollector[T any]() Collector[T, []T, []T] {
	return Collector[T, []T, []T]{
		Supplier: func() []T { return nil },
		Accumulator: func(acc []T, element T) ([]T, error) {
			return append(acc, element), nil
		},
	}
}

// CountingCollector counts elements.
func CountingCollector[T any]() Collector[T, int64, int64] {
	return Collector[T, int64, int64]{
		Supplier: func() int64 { return 0 },
		Accumulator: func(acc int64, _ T) (int64, error) {
			return acc + 1, nil
		},
	}
}

// MapCollector indexes elements by key. A later element with the same key
// replaces an earlier one.
func MapCollector[T any, K comparable, V any](key func(T) K, value func(T) V) Collector[T, map[K]V, map[K]V] {
	return Collector[T, map[K]V, map[K]V]{
		Supplier: func() map[K]V { return make(map[K]V) },
		Accumulator: func(acc map[K]V, element T) (map[K]V, error) {
			acc[key(element)] = value(element)
			return acc, nil
		},
	}
}

// foldCollector folds elements left to right starting from initial.
func foldCollector[T, R any](initial R, acc func(R, T) R) Collector[T, R, R] {
	return Collector[T, R, R]{
		Supplier: func() R { return initial },
		Accumulator: func(r R, element T) (R, error) {
			return acc(r, element), nil
		},
	}
}
