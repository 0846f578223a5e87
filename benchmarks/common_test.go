// Package benchmarks compares min-streams graphs run on the channel engine
// with popular Go stream processing libraries.
package benchmarks

import (
	"context"
	"strconv"
	"testing"

	"github.com/lguimbarda/min-streams/streams/chanengine"
)

// Test data sizes
var sizes = []struct {
	name string
	n    int
}{
	{"Small", 100},
	{"Medium", 1_000},
	{"Large", 10_000},
}

// Background context for benchmarks
var ctx = context.Background()

var engine = chanengine.New()

// generateInts creates a slice of integers for benchmarking.
func generateInts(n int) []int {
	data := make([]int, n)
	for i := range data {
		data[i] = i
	}
	return data
}

func generateStrings(n int) []string {
	data := make([]string, n)
	for i := range data {
		data[i] = strconv.Itoa(i)
	}
	return data
}

// bySize runs fn as one sub-benchmark per data size.
func bySize(b *testing.B, fn func(b *testing.B, data []int)) {
	for _, s := range sizes {
		data := generateInts(s.n)
		b.Run(s.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			fn(b, data)
		})
	}
}

// squareWithErr is the stage function form used by min-streams and rill.
func squareWithErr(x int) (int, error) {
	return x * x, nil
}

func square(x int) int {
	return x * x
}

func isEven(x int) bool {
	return x%2 == 0
}

func add(a, b int) int {
	return a + b
}
