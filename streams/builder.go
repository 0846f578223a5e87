// Package streams is the builder API for reactive stream graphs.
//
// A pipeline is declared by chaining builder calls. Nothing runs while
// building: each call returns a new immutable builder that remembers one
// stage and its predecessor. A terminal call such as Run or Build
// materializes the chain into an spi.Graph and hands it to an engine.
//
//	sum, err := streams.Fold(
//	    streams.Map(streams.Of(1, 2, 3), double),
//	    0, func(acc, n int) int { return acc + n },
//	).Await(ctx)
//
// Operations that keep the element type are methods; operations that change
// it (Map, FlatMap, Via, Collect, Fold) are functions, since Go methods
// cannot introduce type parameters.
package streams

import (
	"fmt"
	"slices"

	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// graphBuilder is one link of a builder chain. Links are never mutated, so
// chains can be shared and extended from any point.
type graphBuilder struct {
	stage    spi.Stage
	previous *graphBuilder
}

// then returns a new link holding stage after b.
func (b *graphBuilder) then(stage spi.Stage) *graphBuilder {
	return &graphBuilder{stage: stage, previous: b}
}

// nest returns a new link that splices the whole of inner after b.
func (b *graphBuilder) nest(inner *graphBuilder) *graphBuilder {
	return b.then(nestedStage{builder: inner})
}

// toGraph materializes the chain into a fresh graph. Identity links are
// dropped and nested chains are inlined in order. It never modifies the
// chain, so calling it again yields an equal graph.
func (b *graphBuilder) toGraph() spi.Graph {
	var reversed []spi.Stage
	b.collectReversed(&reversed)
	slices.Reverse(reversed)
	return spi.NewGraph(reversed...)
}

func (b *graphBuilder) collectReversed(out *[]spi.Stage) {
	for link := b; link != nil; link = link.previous {
		switch s := link.stage.(type) {
		case identityStage:
		case nestedStage:
			s.builder.collectReversed(out)
		default:
			*out = append(*out, link.stage)
		}
	}
}

// identityStage starts processor and subscriber chains.
type identityStage struct{}

func (identityStage) Kind() spi.Kind  { return "identity" }
func (identityStage) HasInlet() bool  { return true }
func (identityStage) HasOutlet() bool { return true }

// nestedStage splices another chain into this one.
type nestedStage struct {
	builder *graphBuilder
}

func (nestedStage) Kind() spi.Kind { return "nested" }

func (n nestedStage) HasInlet() bool  { return n.builder.toGraph().HasInlet() }
func (n nestedStage) HasOutlet() bool { return n.builder.toGraph().HasOutlet() }

func identity() *graphBuilder {
	return &graphBuilder{stage: identityStage{}}
}

// as converts an erased element back to T. A nil element becomes the zero
// T. A mismatch panics with *rs.TypeError, which engines recover and signal
// as a stream failure.
func as[T any](v any) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(&rs.TypeError{Want: fmt.Sprintf("%T", zero), Got: v})
	}
	return t
}
