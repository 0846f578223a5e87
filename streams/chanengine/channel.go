package chanengine

import (
	"context"
	"iter"
)

// emitter produces a stream of results. Each call starts a fresh run
// bounded by ctx.
type emitter func(context.Context) <-chan result

// transmitter transforms one stream of results into another.
type transmitter func(context.Context, <-chan result) <-chan result

// then returns the emitter that feeds e through t.
func (e emitter) then(t transmitter) emitter {
	return func(ctx context.Context) <-chan result {
		return t(ctx, e(ctx))
	}
}

// then composes two transmitters.
func (t transmitter) then(next transmitter) transmitter {
	return func(ctx context.Context, in <-chan result) <-chan result {
		return next(ctx, t(ctx, in))
	}
}

func passThrough(_ context.Context, in <-chan result) <-chan result {
	return in
}

// send delivers r unless ctx is done first.
func send(ctx context.Context, out chan<- result, r result) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- r:
		return true
	}
}

// emit sends v as an element and reports whether the stream may go on.
func emit(ctx context.Context, out chan<- result, v any) bool {
	r := element(v)
	return send(ctx, out, r) && !r.isError()
}

// abort sends err and reports that the stream is over.
func abort(ctx context.Context, out chan<- result, err error) bool {
	send(ctx, out, fail(err))
	return false
}

// forward runs src and relays everything it emits into out. It reports
// false when the relayed stream failed or ctx ended.
func forward(ctx context.Context, src emitter, out chan<- result) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for r := range src(ctx) {
		if !send(ctx, out, r) || r.isError() {
			return false
		}
	}
	return ctx.Err() == nil
}

// results adapts a result channel to a sequence for rs.FromSeq2. Ending
// ctx surfaces as ctx.Err().
func results(ctx context.Context, in <-chan result) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case r, open := <-in:
				if !open {
					return
				}
				if !yield(r.value, r.err) || r.isError() {
					return
				}
			}
		}
	}
}

// handler holds the per-run behaviour of a transform. next is called for
// every upstream signal and returns false to end the stream. done is
// called once when upstream completes normally. stop, if set, is called
// once when the run ends, whether it completed, failed or was cut short by
// downstream or ctx.
type handler struct {
	next func(ctx context.Context, r result, out chan<- result) bool
	done func(ctx context.Context, out chan<- result)
	stop func()
}

// transmit builds a transmitter that runs one goroutine per run. newHandler
// is called per run so handlers may keep state.
func (e *Engine) transmit(newHandler func() handler) transmitter {
	return func(ctx context.Context, in <-chan result) <-chan result {
		out := make(chan result, e.bufferSize)
		h := newHandler()
		go func() {
			defer close(out)
			if h.stop != nil {
				defer h.stop()
			}
			for r := range in {
				if !h.next(ctx, r, out) {
					return
				}
			}
			if h.done != nil && ctx.Err() == nil {
				h.done(ctx, out)
			}
		}()
		return out
	}
}

// generate builds an emitter that runs produce in its own goroutine and
// turns panics into stream failures.
func (e *Engine) generate(produce func(ctx context.Context, out chan<- result)) emitter {
	return func(ctx context.Context) <-chan result {
		out := make(chan result, e.bufferSize)
		go func() {
			defer close(out)
			defer func() {
				if r := recover(); r != nil {
					send(ctx, out, fail(newPanicError(r)))
				}
			}()
			produce(ctx, out)
		}()
		return out
	}
}
