package tck

import (
	"context"
	"iter"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// DefaultFactories returns the built-in fixtures: one per stage family
// plus the publisher, subscriber and processor protocol checks.
func DefaultFactories() []Factory {
	return []Factory{
		SourceStages,
		TransformStages,
		ErrorStages,
		TerminalStages,
		CoupledStage,
		PublisherRules,
		SubscriberRules,
		ProcessorRules,
	}
}

// SourceStages checks every source stage.
func SourceStages(engine spi.Engine) Fixture {
	return Fixture{Name: "SourceStages", Cases: []Case{
		{"of", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2, 3).ToSlice(), []int{1, 2, 3})
		}},
		{"empty", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Empty[int]().ToSlice(), []int(nil))
		}},
		{"failed", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.Failed[int](errBoom).ToSlice(), errBoom)
		}},
		{"iterate", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Iterate(1, inc).Limit(4).ToSlice(), []int{1, 2, 3, 4})
		}},
		{"generate", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Generate(func() string { return "x" }).Limit(2).ToSlice(), []string{"x", "x"})
		}},
		{"fromPublisher", func(ctx context.Context) error {
			pub := rs.FromSeq(ctx, slices.Values([]int{4, 5}))
			return expect(ctx, engine, streams.FromPublisher(pub).ToSlice(), []int{4, 5})
		}},
		{"fromFuture", func(ctx context.Context) error {
			f := future.New()
			go func() {
				time.Sleep(time.Millisecond)
				f.Complete(9)
			}()
			return expect(ctx, engine, streams.FromFuture[int](f).ToSlice(), []int{9})
		}},
		{"fromFutureNil", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.FromFuture[int](future.Completed(nil)).ToSlice(), spi.ErrNilElement)
		}},
		{"fromFutureNullable", func(ctx context.Context) error {
			return expect(ctx, engine, streams.FromFutureNullable[int](future.Completed(nil)).ToSlice(), []int(nil))
		}},
		{"fromFailedFuture", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.FromFuture[int](future.Failed(errBoom)).ToSlice(), errBoom)
		}},
		{"concat", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Concat(streams.Of(1), streams.Of(2, 3)).ToSlice(), []int{1, 2, 3})
		}},
		{"concatFailureSkipsSecond", func(ctx context.Context) error {
			var second atomic.Bool
			tail := streams.Of(2).Peek(func(int) { second.Store(true) })
			if err := expectErr(ctx, engine, streams.Concat(streams.Failed[int](errBoom), tail).ToSlice(), errBoom); err != nil {
				return err
			}
			if second.Load() {
				return errors.New("second stream ran after the first failed")
			}
			return nil
		}},
	}}
}

// TransformStages checks every stage with an inlet and an outlet.
func TransformStages(engine spi.Engine) Fixture {
	return Fixture{Name: "TransformStages", Cases: []Case{
		{"map", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Map(streams.Of(1, 2, 3), double).ToSlice(), []int{2, 4, 6})
		}},
		{"mapChangesType", func(ctx context.Context) error {
			toString := func(n int) (string, error) { return strconv.Itoa(n), nil }
			return expect(ctx, engine, streams.Map(streams.Of(1, 2), toString).ToSlice(), []string{"1", "2"})
		}},
		{"filter", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2, 3, 4).Filter(isEven).ToSlice(), []int{2, 4})
		}},
		{"flatMap", func(ctx context.Context) error {
			r := streams.FlatMap(streams.Of(1, 2), func(n int) streams.PublisherBuilder[int] {
				return streams.Of(n, n)
			})
			return expect(ctx, engine, r.ToSlice(), []int{1, 1, 2, 2})
		}},
		{"flatMapEmptyInner", func(ctx context.Context) error {
			r := streams.FlatMap(streams.Of(1, 2), func(int) streams.PublisherBuilder[int] {
				return streams.Empty[int]()
			})
			return expect(ctx, engine, r.ToSlice(), []int(nil))
		}},
		{"flatMapSlice", func(ctx context.Context) error {
			r := streams.FlatMapSlice(streams.Of(2, 3), func(n int) ([]int, error) {
				return []int{n, n * 10}, nil
			})
			return expect(ctx, engine, r.ToSlice(), []int{2, 20, 3, 30})
		}},
		{"flatMapSeq", func(ctx context.Context) error {
			r := streams.FlatMapSeq(streams.Of("ab", "c"), func(s string) iter.Seq[string] {
				return slices.Values([]string{s, s})
			})
			return expect(ctx, engine, r.ToSlice(), []string{"ab", "ab", "c", "c"})
		}},
		{"flatMapFuture", func(ctx context.Context) error {
			r := streams.FlatMapFuture[int, int](streams.Of(1, 2), func(n int) *future.Future {
				return future.Completed(n * 100)
			})
			return expect(ctx, engine, r.ToSlice(), []int{100, 200})
		}},
		{"limit", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2, 3).Limit(2).ToSlice(), []int{1, 2})
		}},
		{"limitZero", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Generate(func() int { return 1 }).Limit(0).ToSlice(), []int(nil))
		}},
		{"skip", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2, 3).Skip(2).ToSlice(), []int{3})
		}},
		{"takeWhile", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Iterate(0, inc).TakeWhile(func(n int) bool { return n < 3 }).ToSlice(), []int{0, 1, 2})
		}},
		{"dropWhile", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2, 3, 1).DropWhile(func(n int) bool { return n < 2 }).ToSlice(), []int{2, 3, 1})
		}},
		{"distinct", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of("a", "b", "a", "c", "b").Distinct().ToSlice(), []string{"a", "b", "c"})
		}},
		{"peek", func(ctx context.Context) error {
			var mu sync.Mutex
			var seen []int
			r := streams.Of(1, 2).Peek(func(n int) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, n)
			}).ToSlice()
			if err := expect(ctx, engine, r, []int{1, 2}); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return equal(seen, []int{1, 2})
		}},
		{"via", func(ctx context.Context) error {
			proc := streams.Then(streams.Mapping(double), streams.Builder[int]().Filter(func(n int) bool { return n > 2 }))
			return expect(ctx, engine, streams.Via(streams.Of(1, 2, 3), proc).ToSlice(), []int{4, 6})
		}},
	}}
}

// ErrorStages checks failure propagation and the error handling stages.
func ErrorStages(engine spi.Engine) Fixture {
	failOn := func(bad int) func(int) (int, error) {
		return func(n int) (int, error) {
			if n == bad {
				return 0, errBoom
			}
			return n, nil
		}
	}

	return Fixture{Name: "ErrorStages", Cases: []Case{
		{"mapErrorFails", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.Map(streams.Of(1, 2, 3), failOn(2)).ToSlice(), errBoom)
		}},
		{"errorIsTerminal", func(ctx context.Context) error {
			var after atomic.Int32
			r := streams.Map(streams.Of(1, 2, 3), failOn(1)).Peek(func(int) { after.Add(1) }).Ignore()
			if err := expectErr(ctx, engine, r, errBoom); err != nil {
				return err
			}
			return equal(after.Load(), int32(0))
		}},
		{"panicFails", func(ctx context.Context) error {
			r := streams.Map(streams.Of(1), func(int) (int, error) { panic("tck") })
			return expectErr(ctx, engine, r.ToSlice(), nil)
		}},
		{"nilElementFails", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.Of[any](nil).ToSlice(), spi.ErrNilElement)
		}},
		{"onError", func(ctx context.Context) error {
			seen := make(chan error, 1)
			r := streams.Failed[int](errBoom).OnError(func(err error) { seen <- err }).Ignore()
			if err := expectErr(ctx, engine, r, errBoom); err != nil {
				return err
			}
			select {
			case err := <-seen:
				if !errors.Is(err, errBoom) {
					return errors.Newf("OnError saw %v", err)
				}
				return nil
			default:
				return errors.New("OnError callback did not run")
			}
		}},
		{"onComplete", func(ctx context.Context) error {
			var calls atomic.Int32
			r := streams.Of(1).OnComplete(func() { calls.Add(1) }).Ignore()
			if err := expect(ctx, engine, r, struct{}{}); err != nil {
				return err
			}
			return equal(calls.Load(), int32(1))
		}},
		{"onCompleteNotOnError", func(ctx context.Context) error {
			var calls atomic.Int32
			r := streams.Failed[int](errBoom).OnComplete(func() { calls.Add(1) }).Ignore()
			if err := expectErr(ctx, engine, r, errBoom); err != nil {
				return err
			}
			return equal(calls.Load(), int32(0))
		}},
		{"onTerminate", func(ctx context.Context) error {
			var calls atomic.Int32
			ok := streams.Of(1).OnTerminate(func() { calls.Add(1) }).Ignore()
			failed := streams.Failed[int](errBoom).OnTerminate(func() { calls.Add(1) }).Ignore()
			return all(
				expect(ctx, engine, ok, struct{}{}),
				expectErr(ctx, engine, failed, errBoom),
				equal(calls.Load(), int32(2)),
			)
		}},
		{"onErrorResume", func(ctx context.Context) error {
			r := streams.Map(streams.Of(1, 2, 3), failOn(2)).OnErrorResume(func(error) int { return -1 })
			return expect(ctx, engine, r.ToSlice(), []int{1, -1})
		}},
		{"onErrorResumeWith", func(ctx context.Context) error {
			r := streams.Failed[int](errBoom).OnErrorResumeWith(func(error) streams.PublisherBuilder[int] {
				return streams.Of(7, 8)
			})
			return expect(ctx, engine, r.ToSlice(), []int{7, 8})
		}},
		{"flatMapInnerFailure", func(ctx context.Context) error {
			r := streams.FlatMap(streams.Of(1, 2), func(n int) streams.PublisherBuilder[int] {
				if n == 2 {
					return streams.Failed[int](errBoom)
				}
				return streams.Of(n)
			})
			return expectErr(ctx, engine, r.ToSlice(), errBoom)
		}},
	}}
}

// TerminalStages checks every terminal stage.
func TerminalStages(engine spi.Engine) Fixture {
	return Fixture{Name: "TerminalStages", Cases: []Case{
		{"toSlice", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of("a", "b").ToSlice(), []string{"a", "b"})
		}},
		{"findFirst", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Iterate(5, inc).FindFirst(), 5)
		}},
		{"findFirstEmpty", func(ctx context.Context) error {
			return expectErr(ctx, engine, streams.Empty[int]().FindFirst(), streams.ErrEmptyStream)
		}},
		{"reduce", func(ctx context.Context) error {
			sum := func(a, b int) int { return a + b }
			return expect(ctx, engine, streams.Of(1, 2, 3).Reduce(0, sum), 6)
		}},
		{"fold", func(ctx context.Context) error {
			r := streams.Fold(streams.Of("a", "bb"), 0, func(n int, s string) int { return n + len(s) })
			return expect(ctx, engine, r, 3)
		}},
		{"collect", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Collect(streams.Of(1, 2, 3), streams.CountingCollector[int]()), int64(3))
		}},
		{"forEach", func(ctx context.Context) error {
			var sum atomic.Int64
			r := streams.Of(1, 2, 3).ForEach(func(n int) { sum.Add(int64(n)) })
			return all(expect(ctx, engine, r, struct{}{}), equal(sum.Load(), int64(6)))
		}},
		{"ignore", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Of(1, 2).Ignore(), struct{}{})
		}},
		{"cancel", func(ctx context.Context) error {
			return expect(ctx, engine, streams.Generate(func() int { return 1 }).Cancel(), struct{}{})
		}},
		{"subscriber", func(ctx context.Context) error {
			got := make(chan int, 3)
			completed := make(chan struct{})
			sub := rs.SubscriberFuncs[int]{
				Subscribe: func(s rs.Subscription) { s.Request(rs.Unbounded) },
				Next:      func(n int) { got <- n },
				Complete:  func() { close(completed) },
			}
			if err := expect(ctx, engine, streams.Of(1, 2, 3).To(sub), struct{}{}); err != nil {
				return err
			}
			select {
			case <-completed:
			case <-ctx.Done():
				return errors.New("subscriber was not completed")
			}
			close(got)
			var values []int
			for v := range got {
				values = append(values, v)
			}
			return equal(values, []int{1, 2, 3})
		}},
	}}
}

// CoupledStage checks coupled subscriber/publisher pairs. Engines that do
// not support them are expected to refuse the graph at build time.
func CoupledStage(engine spi.Engine) Fixture {
	return Fixture{Name: "CoupledStage", Cases: []Case{
		{"coupled", func(ctx context.Context) error {
			r := streams.Via(streams.Of(1, 2), streams.Coupled(streams.Builder[int]().Ignore(), streams.Of("a"))).ToSlice()
			f, err := r.RunWith(ctx, engine)
			if errors.Is(err, spi.ErrUnsupportedStage) {
				return Skip("engine does not support coupled stages")
			}
			if err != nil {
				return err
			}
			got, err := future.Get[[]string](ctx, f)
			if err != nil {
				return err
			}
			return equal(got, []string{"a"})
		}},
	}}
}

// recorder is a subscriber that requests a fixed number of elements and
// records every signal.
type recorder struct {
	initial int64

	mu        sync.Mutex
	sub       rs.Subscription
	values    []any
	err       error
	completed bool
	signal    chan struct{}
}

func newRecorder(initial int64) *recorder {
	return &recorder{initial: initial, signal: make(chan struct{}, 64)}
}

func (r *recorder) OnSubscribe(s rs.Subscription) {
	r.mu.Lock()
	r.sub = s
	r.mu.Unlock()
	if r.initial != 0 {
		s.Request(r.initial)
	}
}

func (r *recorder) OnNext(v any) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.notify()
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.notify()
}

func (r *recorder) OnComplete() {
	r.mu.Lock()
	r.completed = true
	r.mu.Unlock()
	r.notify()
}

func (r *recorder) notify() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// await waits until cond holds or ctx ends.
func (r *recorder) await(ctx context.Context, cond func(r *recorder) bool) error {
	for {
		r.mu.Lock()
		ok := cond(r)
		r.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-r.signal:
		case <-ctx.Done():
			r.mu.Lock()
			defer r.mu.Unlock()
			return errors.Newf("timed out: values=%v err=%v completed=%v", r.values, r.err, r.completed)
		}
	}
}

func (r *recorder) snapshot() (values []any, completed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.values...), r.completed, r.err
}

// quiet waits briefly so that signals sent in violation of demand have a
// chance to arrive.
func quiet(ctx context.Context) {
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
	}
}

// PublisherRules checks the demand protocol of built publishers.
func PublisherRules(engine spi.Engine) Fixture {
	build := func(ctx context.Context, p streams.PublisherBuilder[int]) (rs.Publisher[any], error) {
		return engine.BuildPublisher(ctx, p.Graph())
	}

	return Fixture{Name: "PublisherRules", Cases: []Case{
		{"noElementsWithoutDemand", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Of(1, 2, 3))
			if err != nil {
				return err
			}
			rec := newRecorder(0)
			pub.Subscribe(rec)
			quiet(ctx)
			values, _, _ := rec.snapshot()
			return equal(len(values), 0)
		}},
		{"honoursDemand", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Iterate(0, inc))
			if err != nil {
				return err
			}
			rec := newRecorder(2)
			pub.Subscribe(rec)
			if err := rec.await(ctx, func(r *recorder) bool { return len(r.values) >= 2 }); err != nil {
				return err
			}
			quiet(ctx)
			values, _, _ := rec.snapshot()
			rec.sub.Cancel()
			return equal(values, []any{0, 1})
		}},
		{"completesAfterLastElement", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Of(1, 2))
			if err != nil {
				return err
			}
			rec := newRecorder(rs.Unbounded)
			pub.Subscribe(rec)
			if err := rec.await(ctx, func(r *recorder) bool { return r.completed || r.err != nil }); err != nil {
				return err
			}
			values, _, err := rec.snapshot()
			return all(err, equal(values, []any{1, 2}))
		}},
		{"emptyCompletesWithoutDemand", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Empty[int]())
			if err != nil {
				return err
			}
			rec := newRecorder(0)
			pub.Subscribe(rec)
			return rec.await(ctx, func(r *recorder) bool { return r.completed })
		}},
		{"signalsFailure", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Failed[int](errBoom))
			if err != nil {
				return err
			}
			rec := newRecorder(1)
			pub.Subscribe(rec)
			if err := rec.await(ctx, func(r *recorder) bool { return r.err != nil }); err != nil {
				return err
			}
			_, _, got := rec.snapshot()
			if !errors.Is(got, errBoom) {
				return errors.Newf("OnError(%v), want %v", got, errBoom)
			}
			return nil
		}},
		{"nonPositiveRequestFails", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Of(1))
			if err != nil {
				return err
			}
			rec := newRecorder(-1)
			pub.Subscribe(rec)
			if err := rec.await(ctx, func(r *recorder) bool { return r.err != nil }); err != nil {
				return err
			}
			_, _, got := rec.snapshot()
			if !errors.Is(got, rs.ErrRuleViolation) {
				return errors.Newf("OnError(%v), want a rule violation", got)
			}
			return nil
		}},
		{"cancelStopsElements", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Iterate(0, inc))
			if err != nil {
				return err
			}
			rec := newRecorder(1)
			pub.Subscribe(rec)
			if err := rec.await(ctx, func(r *recorder) bool { return len(r.values) == 1 }); err != nil {
				return err
			}
			rec.sub.Cancel()
			rec.sub.Request(10)
			quiet(ctx)
			values, completed, _ := rec.snapshot()
			if completed {
				return errors.New("cancelled subscription was completed")
			}
			return equal(len(values), 1)
		}},
		{"resubscribe", func(ctx context.Context) error {
			pub, err := build(ctx, streams.Of(1, 2))
			if err != nil {
				return err
			}
			for range 2 {
				got, err := rs.Collect(ctx, pub)
				if err != nil {
					return err
				}
				if err := equal(got, []any{1, 2}); err != nil {
					return err
				}
			}
			return nil
		}},
	}}
}

// SubscriberRules checks built subscribers.
func SubscriberRules(engine spi.Engine) Fixture {
	return Fixture{Name: "SubscriberRules", Cases: []Case{
		{"consumesUpstream", func(ctx context.Context) error {
			sub, err := streams.Builder[int]().Filter(isEven).ToSlice().BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			rs.FromSeq(ctx, slices.Values([]int{1, 2, 3, 4})).Subscribe(sub)
			got, err := sub.Await(ctx)
			return all(err, equal(got, []int{2, 4}))
		}},
		{"upstreamFailure", func(ctx context.Context) error {
			sub, err := streams.Builder[int]().Ignore().BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			rs.FromSeq2(ctx, func(context.Context) iter.Seq2[int, error] {
				return func(yield func(int, error) bool) { yield(0, errBoom) }
			}).Subscribe(sub)
			_, err = sub.Await(ctx)
			if !errors.Is(err, errBoom) {
				return errors.Newf("Await() error = %v, want %v", err, errBoom)
			}
			return nil
		}},
		{"cancelsUpstreamWhenDone", func(ctx context.Context) error {
			sub, err := streams.Builder[int]().FindFirst().BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			rs.FromSeq[int](ctx, func(yield func(int) bool) {
				for i := 0; ; i++ {
					if !yield(i) {
						return
					}
				}
			}).Subscribe(sub)
			got, err := sub.Await(ctx)
			if err != nil {
				return err
			}
			return equal(got, 0)
		}},
	}}
}

// ProcessorRules checks built processors.
func ProcessorRules(engine spi.Engine) Fixture {
	return Fixture{Name: "ProcessorRules", Cases: []Case{
		{"transforms", func(ctx context.Context) error {
			proc, err := streams.Mapping(double).BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			return expect(ctx, engine, streams.ViaProcessor(streams.Of(1, 2), proc).ToSlice(), []int{2, 4})
		}},
		{"identity", func(ctx context.Context) error {
			proc, err := streams.Builder[string]().BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			return expect(ctx, engine, streams.ViaProcessor(streams.Of("a"), proc).ToSlice(), []string{"a"})
		}},
		{"propagatesFailure", func(ctx context.Context) error {
			proc, err := streams.Builder[int]().Limit(5).BuildWith(ctx, engine)
			if err != nil {
				return err
			}
			return expectErr(ctx, engine, streams.ViaProcessor(streams.Failed[int](errBoom), proc).ToSlice(), errBoom)
		}},
	}}
}
