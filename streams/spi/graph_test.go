package spi

import (
	"errors"
	"slices"
	"testing"
)

func TestGraphShape(t *testing.T) {
	tests := []struct {
		name    string
		stages  []Stage
		want    Shape
		wantErr bool
	}{
		{name: "empty is identity processor", stages: nil, want: ShapeProcessor},
		{name: "publisher", stages: []Stage{Of{}, Map{}}, want: ShapePublisher},
		{name: "processor", stages: []Stage{Map{}, Filter{}}, want: ShapeProcessor},
		{name: "subscriber", stages: []Stage{Filter{}, Collect{}}, want: ShapeSubscriber},
		{name: "closed", stages: []Stage{Of{}, Map{}, Collect{}}, want: ShapeClosed},
		{name: "closed without transforms", stages: []Stage{Failed{}, Cancel{}}, want: ShapeClosed},
		{name: "source in the middle", stages: []Stage{Of{}, Of{}, Collect{}}, wantErr: true},
		{name: "terminal in the middle", stages: []Stage{Of{}, Cancel{}, Collect{}}, wantErr: true},
		{name: "nil stage", stages: []Stage{Of{}, nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGraph(tt.stages...).Shape()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Shape() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedGraph) {
					t.Errorf("Shape() error = %v, want ErrMalformedGraph", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Shape() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGraphValidate(t *testing.T) {
	g := NewGraph(Of{}, Map{}, Collect{})
	if err := g.Validate(ShapeClosed); err != nil {
		t.Fatalf("Validate(closed) = %v", err)
	}
	if err := g.Validate(ShapePublisher); !errors.Is(err, ErrMalformedGraph) {
		t.Fatalf("Validate(publisher) = %v, want ErrMalformedGraph", err)
	}
}

func TestGraphIsImmutable(t *testing.T) {
	stages := []Stage{Of{}, Map{}, Collect{}}
	g := NewGraph(stages...)

	stages[1] = Filter{}
	if g.Kinds()[1] != KindMap {
		t.Fatal("mutating the input slice changed the graph")
	}

	out := g.Stages()
	out[1] = Filter{}
	if g.Kinds()[1] != KindMap {
		t.Fatal("mutating Stages() changed the graph")
	}
}

func TestGraphKindsAndString(t *testing.T) {
	g := NewGraph(Of{}, Map{}, Collect{})
	want := []Kind{KindOf, KindMap, KindCollect}
	if !slices.Equal(g.Kinds(), want) {
		t.Errorf("Kinds() = %v, want %v", g.Kinds(), want)
	}
	if g.String() != "of -> map -> collect" {
		t.Errorf("String() = %q", g.String())
	}

	var seen []Kind
	for _, s := range g.All() {
		seen = append(seen, s.Kind())
	}
	if !slices.Equal(seen, want) {
		t.Errorf("All() yielded %v, want %v", seen, want)
	}
}

func TestUnsupportedStageError(t *testing.T) {
	var err error = &UnsupportedStageError{Stage: Coupled{}}
	if !errors.Is(err, ErrUnsupportedStage) {
		t.Fatal("UnsupportedStageError does not match ErrUnsupportedStage")
	}
	if err.Error() != "unsupported stage: coupled (spi.Coupled)" {
		t.Errorf("Error() = %q", err.Error())
	}
}
