package tck

import (
	"context"
	"reflect"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/spi"
)

var errBoom = errors.New("tck: induced failure")

// expect runs r on engine and compares its result with want.
func expect[T any](ctx context.Context, engine spi.Engine, r streams.CompletionRunner[T], want T) error {
	got, err := r.AwaitWith(ctx, engine)
	if err != nil {
		return errors.Wrapf(err, "graph [%s]", r.Graph())
	}
	return equal(got, want)
}

// expectErr runs r on engine and checks that it fails with target.
func expectErr[T any](ctx context.Context, engine spi.Engine, r streams.CompletionRunner[T], target error) error {
	got, err := r.AwaitWith(ctx, engine)
	if err == nil {
		return errors.Newf("graph [%s] completed with %v, want error %v", r.Graph(), got, target)
	}
	if target != nil && !errors.Is(err, target) {
		return errors.Newf("graph [%s] failed with %v, want %v", r.Graph(), err, target)
	}
	return nil
}

func equal(got, want any) error {
	if !reflect.DeepEqual(got, want) {
		return errors.Newf("got %#v, want %#v", got, want)
	}
	return nil
}

func all(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func double(n int) (int, error) { return n * 2, nil }

func isEven(n int) bool { return n%2 == 0 }

func inc(n int) int { return n + 1 }
