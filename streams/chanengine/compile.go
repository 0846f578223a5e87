package chanengine

import (
	"context"
	"iter"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// sink consumes a stream and produces the value a closed graph completes
// with.
type sink func(ctx context.Context, in <-chan result) (any, error)

// publisher compiles a publisher-shaped graph.
func (e *Engine) publisher(g spi.Graph) (emitter, error) {
	if err := g.Validate(spi.ShapePublisher); err != nil {
		return nil, err
	}
	stages := g.Stages()
	src, err := e.source(stages[0])
	if err != nil {
		return nil, err
	}
	chain, err := e.chain(stages[1:])
	if err != nil {
		return nil, err
	}
	return src.then(chain), nil
}

// chain compiles a run of transforms into one transmitter.
func (e *Engine) chain(stages []spi.Stage) (transmitter, error) {
	t := transmitter(passThrough)
	for _, stage := range stages {
		next, err := e.transform(stage)
		if err != nil {
			return nil, err
		}
		t = t.then(next)
	}
	return t, nil
}

func (e *Engine) source(stage spi.Stage) (emitter, error) {
	switch s := stage.(type) {
	case spi.Of:
		return e.generate(func(ctx context.Context, out chan<- result) {
			if s.Elements == nil {
				return
			}
			for v := range s.Elements {
				if !emit(ctx, out, v) {
					return
				}
			}
		}), nil

	case spi.Failed:
		err := s.Err
		if err == nil {
			err = errors.AssertionFailedf("failed stage without an error")
		}
		return e.generate(func(ctx context.Context, out chan<- result) {
			abort(ctx, out, err)
		}), nil

	case spi.PublisherStage:
		if s.Publisher == nil {
			return nil, errors.Wrap(spi.ErrMalformedGraph, "publisher stage without a publisher")
		}
		return e.drain(s.Publisher), nil

	case spi.FromFuture:
		return e.generate(func(ctx context.Context, out chan<- result) {
			if s.Future == nil {
				abort(ctx, out, spi.ErrNilElement)
				return
			}
			v, err := s.Future.Await(ctx)
			switch {
			case err != nil:
				abort(ctx, out, err)
			case v == nil && s.Nullable:
			default:
				emit(ctx, out, v)
			}
		}), nil

	case spi.Concat:
		first, err := e.publisher(s.First)
		if err != nil {
			return nil, errors.Wrap(err, "concat: first graph")
		}
		second, err := e.publisher(s.Second)
		if err != nil {
			return nil, errors.Wrap(err, "concat: second graph")
		}
		return e.generate(func(ctx context.Context, out chan<- result) {
			if forward(ctx, first, out) {
				forward(ctx, second, out)
			}
		}), nil

	default:
		return nil, &spi.UnsupportedStageError{Stage: stage}
	}
}

func (e *Engine) transform(stage spi.Stage) (transmitter, error) {
	switch s := stage.(type) {
	case spi.Map:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				mapped, err := call(s.Fn, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				return emit(ctx, out, mapped)
			})}
		}), nil

	case spi.Filter:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				keep, err := callPred(s.Pred, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				return !keep || send(ctx, out, ok(v))
			})}
		}), nil

	case spi.Limit:
		if s.N <= 0 {
			return func(context.Context, <-chan result) <-chan result {
				out := make(chan result)
				close(out)
				return out
			}, nil
		}
		return e.transmit(func() handler {
			var n int64
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				n++
				return send(ctx, out, ok(v)) && n < s.N
			})}
		}), nil

	case spi.Skip:
		return e.transmit(func() handler {
			var n int64
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				if n < s.N {
					n++
					return true
				}
				return send(ctx, out, ok(v))
			})}
		}), nil

	case spi.TakeWhile:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				take, err := callPred(s.Pred, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				return take && send(ctx, out, ok(v))
			})}
		}), nil

	case spi.DropWhile:
		return e.transmit(func() handler {
			dropping := true
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				if dropping {
					drop, err := callPred(s.Pred, v)
					if err != nil {
						return abort(ctx, out, err)
					}
					if drop {
						return true
					}
					dropping = false
				}
				return send(ctx, out, ok(v))
			})}
		}), nil

	case spi.Distinct:
		return e.transmit(func() handler {
			seen := make(map[any]struct{})
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				var fresh bool
				err := callFunc(func() {
					if _, dup := seen[v]; !dup {
						seen[v] = struct{}{}
						fresh = true
					}
				})
				if err != nil {
					return abort(ctx, out, err)
				}
				return !fresh || send(ctx, out, ok(v))
			})}
		}), nil

	case spi.Peek:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				if err := callFunc(func() { s.Fn(v) }); err != nil {
					return abort(ctx, out, err)
				}
				return send(ctx, out, ok(v))
			})}
		}), nil

	case spi.OnError:
		return e.transmit(func() handler {
			return handler{next: func(ctx context.Context, r result, out chan<- result) bool {
				if r.isError() {
					if err := callFunc(func() { s.Fn(r.err) }); err != nil {
						return abort(ctx, out, err)
					}
					return abort(ctx, out, r.err)
				}
				return send(ctx, out, r)
			}}
		}), nil

	case spi.OnComplete:
		return e.transmit(func() handler {
			return handler{
				next: relayValues,
				done: func(ctx context.Context, out chan<- result) {
					if err := callFunc(s.Fn); err != nil {
						abort(ctx, out, err)
					}
				},
			}
		}), nil

	case spi.OnTerminate:
		return e.transmit(func() handler {
			// Set once fn has run on completion or failure, so stop does not
			// run it again.
			var terminated bool
			terminate := func() error {
				terminated = true
				return callFunc(s.Fn)
			}
			return handler{
				next: func(ctx context.Context, r result, out chan<- result) bool {
					if r.isError() {
						if err := terminate(); err != nil {
							return abort(ctx, out, err)
						}
						return abort(ctx, out, r.err)
					}
					return send(ctx, out, r)
				},
				done: func(ctx context.Context, out chan<- result) {
					if err := terminate(); err != nil {
						abort(ctx, out, err)
					}
				},
				stop: func() {
					if terminated {
						return
					}
					if err := terminate(); err != nil {
						e.log.Debugw("terminate callback failed after cancellation", "error", err)
					}
				},
			}
		}), nil

	case spi.OnErrorResume:
		return e.transmit(func() handler {
			return handler{next: func(ctx context.Context, r result, out chan<- result) bool {
				if !r.isError() {
					return send(ctx, out, r)
				}
				var v any
				if err := callFunc(func() { v = s.Fn(r.err) }); err != nil {
					return abort(ctx, out, err)
				}
				emit(ctx, out, v)
				return false
			}}
		}), nil

	case spi.OnErrorResumeWith:
		return e.transmit(func() handler {
			return handler{next: func(ctx context.Context, r result, out chan<- result) bool {
				if !r.isError() {
					return send(ctx, out, r)
				}
				var g spi.Graph
				if err := callFunc(func() { g = s.Fn(r.err) }); err != nil {
					return abort(ctx, out, err)
				}
				src, err := e.publisher(g)
				if err != nil {
					return abort(ctx, out, errors.Wrap(err, "on-error-resume-with"))
				}
				forward(ctx, src, out)
				return false
			}}
		}), nil

	case spi.FlatMap:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				g, err := call(s.Fn, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				src, err := e.publisher(g)
				if err != nil {
					return abort(ctx, out, errors.Wrap(err, "flat-map"))
				}
				return forward(ctx, src, out)
			})}
		}), nil

	case spi.FlatMapIterable:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				seq, err := call(s.Fn, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				more := true
				err = callFunc(func() {
					if seq == nil {
						return
					}
					for item := range seq {
						if more = emit(ctx, out, item); !more {
							return
						}
					}
				})
				if err != nil {
					return abort(ctx, out, err)
				}
				return more
			})}
		}), nil

	case spi.FlatMapFuture:
		return e.transmit(func() handler {
			return handler{next: values(func(ctx context.Context, v any, out chan<- result) bool {
				f, err := call(s.Fn, v)
				if err != nil {
					return abort(ctx, out, err)
				}
				if f == nil {
					return abort(ctx, out, spi.ErrNilElement)
				}
				settled, err := f.Await(ctx)
				if err != nil {
					return abort(ctx, out, err)
				}
				return emit(ctx, out, settled)
			})}
		}), nil

	case spi.ProcessorStage:
		if s.Processor == nil {
			return nil, errors.Wrap(spi.ErrMalformedGraph, "processor stage without a processor")
		}
		return func(ctx context.Context, in <-chan result) <-chan result {
			outlet := e.drain(s.Processor)(ctx)
			rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[any, error] {
				return results(ctx, in)
			}).Subscribe(s.Processor)
			return outlet
		}, nil

	default:
		return nil, &spi.UnsupportedStageError{Stage: stage}
	}
}

func (e *Engine) sink(stage spi.Stage) (sink, error) {
	switch s := stage.(type) {
	case spi.Collect:
		c := s.Collector
		if c.Supplier == nil || c.Accumulator == nil {
			return nil, errors.Wrap(spi.ErrMalformedGraph, "collector without supplier or accumulator")
		}
		return func(ctx context.Context, in <-chan result) (_ any, err error) {
			defer protect(&err)
			acc := c.Supplier()
			for r := range in {
				if r.isError() {
					return nil, r.err
				}
				if acc, err = c.Accumulator(acc, r.value); err != nil {
					return nil, err
				}
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if c.Finisher == nil {
				return acc, nil
			}
			return c.Finisher(acc)
		}, nil

	case spi.FindFirst:
		return func(ctx context.Context, in <-chan result) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case r, open := <-in:
				if !open {
					return nil, ctx.Err()
				}
				return r.value, r.err
			}
		}, nil

	case spi.Cancel:
		return func(context.Context, <-chan result) (any, error) {
			return nil, nil
		}, nil

	case spi.SubscriberStage:
		if s.Subscriber == nil {
			return nil, errors.Wrap(spi.ErrMalformedGraph, "subscriber stage without a subscriber")
		}
		return func(ctx context.Context, in <-chan result) (any, error) {
			w := &watcher{Subscriber: s.Subscriber, done: make(chan error, 1)}
			rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[any, error] {
				return results(ctx, in)
			}).Subscribe(w)
			select {
			case err := <-w.done:
				return nil, err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}, nil

	default:
		return nil, &spi.UnsupportedStageError{Stage: stage}
	}
}

// values adapts an element handler to a handler that ends the stream on
// the first error.
func values(fn func(ctx context.Context, v any, out chan<- result) bool) func(context.Context, result, chan<- result) bool {
	return func(ctx context.Context, r result, out chan<- result) bool {
		if r.isError() {
			return abort(ctx, out, r.err)
		}
		return fn(ctx, r.value, out)
	}
}

func relayValues(ctx context.Context, r result, out chan<- result) bool {
	return send(ctx, out, r) && !r.isError()
}

// watcher reports when a user subscriber reaches a terminal signal or
// cancels its subscription.
type watcher struct {
	rs.Subscriber[any]
	done chan error
}

func (w *watcher) OnSubscribe(s rs.Subscription) {
	w.Subscriber.OnSubscribe(&watchedSubscription{Subscription: s, w: w})
}

func (w *watcher) OnError(err error) {
	w.Subscriber.OnError(err)
	w.report(err)
}

func (w *watcher) OnComplete() {
	w.Subscriber.OnComplete()
	w.report(nil)
}

func (w *watcher) report(err error) {
	select {
	case w.done <- err:
	default:
	}
}

type watchedSubscription struct {
	rs.Subscription
	w *watcher
}

func (s *watchedSubscription) Cancel() {
	s.Subscription.Cancel()
	s.w.report(nil)
}
