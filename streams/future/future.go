// Package future provides the write-once result handle returned when a
// closed graph is run. An engine settles the handle exactly once, with a
// value or an error, from whichever goroutine finishes the work.
package future

import (
	"context"
	"fmt"
	"sync"

	"github.com/lguimbarda/min-streams/errors"
)

// Future is a write-once handle to the eventual outcome of a computation.
// The zero value is not usable; create one with New, Completed or Failed.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     any
	err       error
	callbacks []func(any, error)
}

// New returns a pending Future.
func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Completed returns a Future already settled with value.
func Completed(value any) *Future {
	f := New()
	f.Complete(value)
	return f
}

// Failed returns a Future already settled with err.
func Failed(err error) *Future {
	f := New()
	f.Fail(err)
	return f
}

// Complete settles the future with value. It reports false if the future
// was already settled, in which case nothing changes.
func (f *Future) Complete(value any) bool {
	return f.settle(value, nil)
}

// Fail settles the future with err. A nil err is replaced with
// ErrNilFailure so that a failed future never looks successful.
func (f *Future) Fail(err error) bool {
	if err == nil {
		err = ErrNilFailure
	}
	return f.settle(nil, err)
}

func (f *Future) settle(value any, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	return true
}

// Done returns a channel closed once the future is settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has been settled.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnSettle registers fn to run once the future settles. If it already has,
// fn runs immediately on the calling goroutine.
func (f *Future) OnSettle(fn func(value any, err error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}

// Get awaits f and asserts its value to T. A nil value yields the zero T.
func Get[T any](ctx context.Context, f *Future) (T, error) {
	var zero T
	v, err := f.Await(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeError{Want: fmt.Sprintf("%T", zero), Got: v}
	}
	return t, nil
}

// Then returns a future settled with fn applied to f's value, or with f's
// error. A panic in fn fails the returned future.
func Then(f *Future, fn func(any) (any, error)) *Future {
	next := New()
	f.OnSettle(func(v any, err error) {
		if err != nil {
			next.Fail(err)
			return
		}
		defer func() {
			if r := recover(); r != nil {
				next.Fail(errors.Newf("panic in future continuation: %v", r))
			}
		}()
		out, err := fn(v)
		if err != nil {
			next.Fail(err)
			return
		}
		next.Complete(out)
	})
	return next
}
