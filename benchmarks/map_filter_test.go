package benchmarks

import (
	"testing"

	"github.com/ahmetb/go-linq/v3"
	"github.com/destel/rill"
	"github.com/samber/lo"

	"github.com/lguimbarda/min-streams/streams"
)

// =============================================================================
// Map Benchmarks
// =============================================================================

func BenchmarkMap_MinStreams(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		graph := streams.Map(streams.FromSlice(data), squareWithErr).ToSlice()
		for i := 0; i < b.N; i++ {
			_, _ = graph.AwaitWith(ctx, engine)
		}
	})
}

func BenchmarkMap_Rill(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			mapped := rill.Map(rill.FromSlice(data, nil), 1, squareWithErr)
			_, _ = rill.ToSlice(mapped)
		}
	})
}

func BenchmarkMap_Lo(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			_ = lo.Map(data, func(x int, _ int) int { return square(x) })
		}
	})
}

func BenchmarkMap_GoLinq(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			var result []int
			linq.From(data).SelectT(square).ToSlice(&result)
		}
	})
}

// Baseline: raw for loop
func BenchmarkMap_RawLoop(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			result := make([]int, len(data))
			for j, x := range data {
				result[j] = square(x)
			}
			_ = result
		}
	})
}

// =============================================================================
// Filter Benchmarks
// =============================================================================

func BenchmarkFilter_MinStreams(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		graph := streams.FromSlice(data).Filter(isEven).ToSlice()
		for i := 0; i < b.N; i++ {
			_, _ = graph.AwaitWith(ctx, engine)
		}
	})
}

func BenchmarkFilter_Rill(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			filtered := rill.Filter(rill.FromSlice(data, nil), 1, func(x int) (bool, error) {
				return isEven(x), nil
			})
			_, _ = rill.ToSlice(filtered)
		}
	})
}

func BenchmarkFilter_Lo(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			_ = lo.Filter(data, func(x int, _ int) bool { return isEven(x) })
		}
	})
}

func BenchmarkFilter_GoLinq(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			var result []int
			linq.From(data).WhereT(isEven).ToSlice(&result)
		}
	})
}

// =============================================================================
// Map + Filter + Limit
// =============================================================================

func BenchmarkPipeline_MinStreams(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		graph := streams.Map(streams.FromSlice(data).Filter(isEven), squareWithErr).Limit(50).ToSlice()
		for i := 0; i < b.N; i++ {
			_, _ = graph.AwaitWith(ctx, engine)
		}
	})
}

func BenchmarkPipeline_Rill(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			evens := rill.Filter(rill.FromSlice(data, nil), 1, func(x int) (bool, error) {
				return isEven(x), nil
			})
			squared := rill.Map(evens, 1, squareWithErr)
			var out []int
			_ = rill.ForEach(squared, 1, func(x int) error {
				if len(out) == 50 {
					return errLimit
				}
				out = append(out, x)
				return nil
			})
		}
	})
}

func BenchmarkPipeline_Lo(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			squared := lo.Map(lo.Filter(data, func(x int, _ int) bool { return isEven(x) }),
				func(x int, _ int) int { return square(x) })
			_ = squared[:min(50, len(squared))]
		}
	})
}

func BenchmarkPipeline_GoLinq(b *testing.B) {
	bySize(b, func(b *testing.B, data []int) {
		for i := 0; i < b.N; i++ {
			var result []int
			linq.From(data).WhereT(isEven).SelectT(square).Take(50).ToSlice(&result)
		}
	})
}
