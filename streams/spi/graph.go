package spi

import (
	"fmt"
	"iter"
	"strings"

	"github.com/lguimbarda/min-streams/errors"
)

// ErrMalformedGraph is wrapped by every graph validation failure.
var ErrMalformedGraph = errors.New("malformed graph")

// ErrNilElement is signalled when a nil value appears where the stream
// requires an element.
var ErrNilElement = errors.New("nil element")

// Shape classifies a graph by its open ends.
type Shape int

const (
	// ShapeProcessor has an inlet and an outlet. The empty graph is an
	// identity processor.
	ShapeProcessor Shape = iota
	// ShapePublisher starts with a source and has an outlet.
	ShapePublisher
	// ShapeSubscriber ends with a terminal and has an inlet.
	ShapeSubscriber
	// ShapeClosed starts with a source and ends with a terminal.
	ShapeClosed
)

func (s Shape) String() string {
	switch s {
	case ShapeProcessor:
		return "processor"
	case ShapePublisher:
		return "publisher"
	case ShapeSubscriber:
		return "subscriber"
	case ShapeClosed:
		return "closed"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Graph is an ordered, immutable sequence of stages. The zero value is the
// empty graph.
type Graph struct {
	stages []Stage
}

// NewGraph returns a graph over a copy of stages.
func NewGraph(stages ...Stage) Graph {
	if len(stages) == 0 {
		return Graph{}
	}
	return Graph{stages: append([]Stage(nil), stages...)}
}

// Stages returns a copy of the graph's stages in order.
func (g Graph) Stages() []Stage {
	return append([]Stage(nil), g.stages...)
}

// All iterates over the stages in order.
func (g Graph) All() iter.Seq2[int, Stage] {
	return func(yield func(int, Stage) bool) {
		for i, s := range g.stages {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Len returns the number of stages.
func (g Graph) Len() int { return len(g.stages) }

// Kinds returns the kind of every stage in order.
func (g Graph) Kinds() []Kind {
	kinds := make([]Kind, len(g.stages))
	for i, s := range g.stages {
		kinds[i] = s.Kind()
	}
	return kinds
}

// HasInlet reports whether the graph accepts upstream elements.
func (g Graph) HasInlet() bool {
	return len(g.stages) == 0 || g.stages[0].HasInlet()
}

// HasOutlet reports whether the graph emits elements downstream.
func (g Graph) HasOutlet() bool {
	return len(g.stages) == 0 || g.stages[len(g.stages)-1].HasOutlet()
}

// Shape validates the graph and reports its shape. Sources may only
// appear first and terminals only last.
func (g Graph) Shape() (Shape, error) {
	for i, s := range g.stages {
		if s == nil {
			return 0, errors.Wrapf(ErrMalformedGraph, "stage %d is nil", i)
		}
		if i > 0 && !s.HasInlet() {
			return 0, errors.Wrapf(ErrMalformedGraph, "source stage %q at position %d", s.Kind(), i)
		}
		if i < len(g.stages)-1 && !s.HasOutlet() {
			return 0, errors.Wrapf(ErrMalformedGraph, "terminal stage %q at position %d", s.Kind(), i)
		}
	}

	switch in, out := g.HasInlet(), g.HasOutlet(); {
	case in && out:
		return ShapeProcessor, nil
	case !in && out:
		return ShapePublisher, nil
	case in && !out:
		return ShapeSubscriber, nil
	default:
		return ShapeClosed, nil
	}
}

// Validate checks that the graph is well formed and has the given shape.
func (g Graph) Validate(want Shape) error {
	got, err := g.Shape()
	if err != nil {
		return err
	}
	if got != want {
		return errors.Wrapf(ErrMalformedGraph, "graph [%s] is a %s, want a %s", g, got, want)
	}
	return nil
}

// String lists stage kinds, e.g. "of -> map -> collect".
func (g Graph) String() string {
	parts := make([]string, len(g.stages))
	for i, s := range g.stages {
		if s == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = string(s.Kind())
	}
	return strings.Join(parts, " -> ")
}
