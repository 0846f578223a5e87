package chanengine_test

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/chanengine"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

var errBoom = errors.New("boom")

func double(n int) (int, error) { return n * 2, nil }

func isEven(n int) bool { return n%2 == 0 }

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSliceResults(t *testing.T) {
	tests := []struct {
		name   string
		runner streams.CompletionRunner[[]int]
		want   []int
	}{
		{
			name:   "of map collect",
			runner: streams.Map(streams.Of(1, 2, 3), double).ToSlice(),
			want:   []int{2, 4, 6},
		},
		{
			name:   "empty",
			runner: streams.Empty[int]().ToSlice(),
			want:   nil,
		},
		{
			name:   "filter",
			runner: streams.Of(1, 2, 3, 4, 5, 6).Filter(isEven).ToSlice(),
			want:   []int{2, 4, 6},
		},
		{
			name:   "limit bounds an infinite source",
			runner: streams.Iterate(1, func(n int) int { return n + 1 }).Limit(3).ToSlice(),
			want:   []int{1, 2, 3},
		},
		{
			name:   "limit zero",
			runner: streams.Of(1, 2).Limit(0).ToSlice(),
			want:   nil,
		},
		{
			name:   "skip",
			runner: streams.Of(1, 2, 3, 4).Skip(2).ToSlice(),
			want:   []int{3, 4},
		},
		{
			name:   "take while",
			runner: streams.Of(2, 4, 5, 6).TakeWhile(isEven).ToSlice(),
			want:   []int{2, 4},
		},
		{
			name:   "drop while",
			runner: streams.Of(2, 4, 5, 6).DropWhile(isEven).ToSlice(),
			want:   []int{5, 6},
		},
		{
			name:   "distinct",
			runner: streams.Of(1, 2, 1, 3, 2).Distinct().ToSlice(),
			want:   []int{1, 2, 3},
		},
		{
			name:   "concat",
			runner: streams.Concat(streams.Of(1, 2), streams.Of(3)).ToSlice(),
			want:   []int{1, 2, 3},
		},
		{
			name: "flat map",
			runner: streams.FlatMap(streams.Of(1, 2), func(n int) streams.PublisherBuilder[int] {
				return streams.Of(n, n*10)
			}).ToSlice(),
			want: []int{1, 10, 2, 20},
		},
		{
			name: "flat map slice",
			runner: streams.FlatMapSlice(streams.Of(1, 2), func(n int) ([]int, error) {
				return slices.Repeat([]int{n}, n), nil
			}).ToSlice(),
			want: []int{1, 2, 2},
		},
		{
			name: "flat map future",
			runner: streams.FlatMapFuture[int, int](streams.Of(3, 4), func(n int) *future.Future {
				return future.Completed(n + 1)
			}).ToSlice(),
			want: []int{4, 5},
		},
		{
			name:   "from future",
			runner: streams.FromFuture[int](future.Completed(7)).ToSlice(),
			want:   []int{7},
		},
		{
			name:   "from nullable future",
			runner: streams.FromFutureNullable[int](future.Completed(nil)).ToSlice(),
			want:   nil,
		},
		{
			name:   "on error resume",
			runner: streams.Concat(streams.Of(1), streams.Failed[int](errBoom)).OnErrorResume(func(error) int { return -1 }).ToSlice(),
			want:   []int{1, -1},
		},
		{
			name: "on error resume with",
			runner: streams.Failed[int](errBoom).OnErrorResumeWith(func(error) streams.PublisherBuilder[int] {
				return streams.Of(8, 9)
			}).ToSlice(),
			want: []int{8, 9},
		},
		{
			name:   "via processor builder",
			runner: streams.Via(streams.Of(1, 2), streams.Then(streams.Mapping(double), streams.Builder[int]().Limit(1))).ToSlice(),
			want:   []int{2},
		},
		{
			name:   "from publisher",
			runner: streams.FromPublisher(rs.FromSeq(context.Background(), slices.Values([]int{5, 6, 7}))).ToSlice(),
			want:   []int{5, 6, 7},
		},
	}

	engine := chanengine.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.runner.AwaitWith(testContext(t), engine)
			if err != nil {
				t.Fatalf("AwaitWith() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("AwaitWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsAreTerminal(t *testing.T) {
	var seen []int
	fail := func(n int) (int, error) {
		if n == 2 {
			return 0, errBoom
		}
		return n, nil
	}
	runner := streams.Map(streams.Of(1, 2, 3), fail).
		Peek(func(n int) { seen = append(seen, n) }).
		ToSlice()

	_, err := runner.AwaitWith(testContext(t), chanengine.New(chanengine.WithBufferSize(0)))
	if !errors.Is(err, errBoom) {
		t.Fatalf("AwaitWith() error = %v, want errBoom", err)
	}
	if !slices.Equal(seen, []int{1}) {
		t.Errorf("elements after the error were processed: %v", seen)
	}
}

func TestPanicsBecomeErrors(t *testing.T) {
	runner := streams.Map(streams.Of(1), func(int) (int, error) { panic("bad mapper") }).ToSlice()

	_, err := runner.AwaitWith(testContext(t), chanengine.New())
	var p chanengine.ErrPanic
	if !errors.As(err, &p) {
		t.Fatalf("AwaitWith() error = %v, want ErrPanic", err)
	}
	if p.Value != "bad mapper" {
		t.Errorf("ErrPanic.Value = %v", p.Value)
	}
}

func TestTerminals(t *testing.T) {
	engine := chanengine.New()

	t.Run("find first", func(t *testing.T) {
		got, err := streams.Generate(func() int { return 4 }).FindFirst().AwaitWith(testContext(t), engine)
		if err != nil || got != 4 {
			t.Errorf("FindFirst() = %v, %v, want 4", got, err)
		}
	})

	t.Run("find first empty", func(t *testing.T) {
		_, err := streams.Empty[int]().FindFirst().AwaitWith(testContext(t), engine)
		if !errors.Is(err, streams.ErrEmptyStream) {
			t.Errorf("FindFirst() error = %v, want ErrEmptyStream", err)
		}
	})

	t.Run("reduce", func(t *testing.T) {
		got, err := streams.Of(1, 2, 3, 4).Reduce(0, func(a, b int) int { return a + b }).AwaitWith(testContext(t), engine)
		if err != nil || got != 10 {
			t.Errorf("Reduce() = %v, %v, want 10", got, err)
		}
	})

	t.Run("collect", func(t *testing.T) {
		got, err := streams.Collect(streams.Of("a", "bb", "a"), streams.MapCollector(
			func(s string) string { return s },
			func(s string) int { return len(s) },
		)).AwaitWith(testContext(t), engine)
		if err != nil || len(got) != 2 || got["bb"] != 2 {
			t.Errorf("Collect() = %v, %v", got, err)
		}
	})

	t.Run("for each", func(t *testing.T) {
		var sum atomic.Int64
		_, err := streams.Of(1, 2, 3).ForEach(func(n int) { sum.Add(int64(n)) }).AwaitWith(testContext(t), engine)
		if err != nil || sum.Load() != 6 {
			t.Errorf("ForEach() sum = %d, err = %v", sum.Load(), err)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		_, err := streams.Generate(func() int { return 1 }).Cancel().AwaitWith(testContext(t), engine)
		if err != nil {
			t.Errorf("Cancel() error = %v", err)
		}
	})

	t.Run("subscriber", func(t *testing.T) {
		var got []int
		done := make(chan struct{})
		sub := rs.SubscriberFuncs[int]{
			Subscribe: func(s rs.Subscription) { s.Request(rs.Unbounded) },
			Next:      func(n int) { got = append(got, n) },
			Complete:  func() { close(done) },
		}
		if _, err := streams.Of(1, 2).To(sub).AwaitWith(testContext(t), engine); err != nil {
			t.Fatalf("To() error = %v", err)
		}
		<-done
		if !slices.Equal(got, []int{1, 2}) {
			t.Errorf("subscriber got %v", got)
		}
	})
}

func TestLifecycleCallbacks(t *testing.T) {
	var events []string
	record := func(name string) func() { return func() { events = append(events, name) } }

	_, err := streams.Of(1).
		OnComplete(record("complete")).
		OnTerminate(record("terminate")).
		Ignore().
		AwaitWith(testContext(t), chanengine.New())
	if err != nil {
		t.Fatalf("AwaitWith() error = %v", err)
	}

	_, err = streams.Failed[int](errBoom).
		OnError(func(error) { events = append(events, "error") }).
		OnTerminate(record("terminate")).
		Ignore().
		AwaitWith(testContext(t), chanengine.New())
	if !errors.Is(err, errBoom) {
		t.Fatalf("AwaitWith() error = %v, want errBoom", err)
	}

	want := []string{"complete", "terminate", "error", "terminate"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOnTerminateRunsOnCancellation(t *testing.T) {
	ones := func() int { return 1 }
	tests := []struct {
		name string
		run  func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error
	}{
		{"limit", func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error {
			_, err := src.Limit(1).ToSlice().AwaitWith(ctx, engine)
			return err
		}},
		{"takeWhile", func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error {
			_, err := src.TakeWhile(func(n int) bool { return n < 1 }).ToSlice().AwaitWith(ctx, engine)
			return err
		}},
		{"findFirst", func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error {
			_, err := src.FindFirst().AwaitWith(ctx, engine)
			return err
		}},
		{"cancel", func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error {
			_, err := src.Cancel().AwaitWith(ctx, engine)
			return err
		}},
		{"contextDone", func(ctx context.Context, src streams.PublisherBuilder[int], engine spi.Engine) error {
			ctx, cancel := context.WithCancel(ctx)
			f, err := src.Ignore().RunWith(ctx, engine)
			if err != nil {
				return err
			}
			cancel()
			_, err = f.Await(context.Background())
			if !errors.Is(err, context.Canceled) {
				return errors.Join(errors.New("want context.Canceled"), err)
			}
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			src := streams.Generate(ones).OnTerminate(func() { calls.Add(1) })
			engine := chanengine.New(chanengine.WithBufferSize(0))

			if err := tt.run(testContext(t), src, engine); err != nil {
				t.Fatalf("run error = %v", err)
			}

			// The callback runs as the stage shuts down, after the result settles.
			deadline := time.Now().Add(5 * time.Second)
			for calls.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			time.Sleep(10 * time.Millisecond)
			if got := calls.Load(); got != 1 {
				t.Errorf("OnTerminate calls = %d, want 1", got)
			}
		})
	}
}

func TestOnTerminateRunsOnce(t *testing.T) {
	var calls atomic.Int32
	_, err := streams.Of(1, 2, 3).
		OnTerminate(func() { calls.Add(1) }).
		ToSlice().
		AwaitWith(testContext(t), chanengine.New(chanengine.WithBufferSize(0)))
	if err != nil {
		t.Fatalf("AwaitWith() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("OnTerminate calls = %d, want 1", got)
	}
}

func TestNilElementFails(t *testing.T) {
	_, err := streams.Of[any](1, nil).ToSlice().AwaitWith(testContext(t), chanengine.New())
	if !errors.Is(err, spi.ErrNilElement) {
		t.Errorf("AwaitWith() error = %v, want ErrNilElement", err)
	}
}

func TestCoupledIsUnsupported(t *testing.T) {
	runner := streams.Via(streams.Of(1), streams.Coupled(streams.Builder[int]().Ignore(), streams.Of(2))).ToSlice()

	f, err := runner.RunWith(testContext(t), chanengine.New())
	var unsupported *spi.UnsupportedStageError
	if !errors.As(err, &unsupported) {
		t.Fatalf("RunWith() error = %v, want *spi.UnsupportedStageError", err)
	}
	if unsupported.Stage.Kind() != spi.KindCoupled {
		t.Errorf("unsupported stage = %s", unsupported.Stage.Kind())
	}
	if f != nil {
		t.Error("RunWith() returned a future for an unsupported graph")
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f, err := streams.Generate(func() int { return 1 }).Ignore().RunWith(ctx, chanengine.New())
	if err != nil {
		t.Fatalf("RunWith() error = %v", err)
	}
	cancel()

	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	select {
	case <-f.Done():
	case <-wait.Done():
		t.Fatal("future did not settle after cancellation")
	}
	if _, err := f.Await(wait); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}
}

func TestBuildPublisher(t *testing.T) {
	ctx := testContext(t)
	pub, err := streams.Map(streams.Of(1, 2, 3), func(n int) (string, error) {
		return strconv.Itoa(n), nil
	}).BuildWith(ctx, chanengine.New())
	if err != nil {
		t.Fatalf("BuildWith() error = %v", err)
	}

	for range 2 {
		got, err := rs.Collect(ctx, pub)
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if !slices.Equal(got, []string{"1", "2", "3"}) {
			t.Errorf("Collect() = %v", got)
		}
	}
}

func TestBuildSubscriber(t *testing.T) {
	ctx := testContext(t)
	sub, err := streams.CollectSubscriber(
		streams.Builder[int]().Filter(isEven),
		streams.SliceCollector[int](),
	).BuildWith(ctx, chanengine.New(chanengine.WithBufferSize(1)))
	if err != nil {
		t.Fatalf("BuildWith() error = %v", err)
	}

	rs.FromSeq(ctx, slices.Values([]int{1, 2, 3, 4, 5, 6})).Subscribe(sub)

	got, err := sub.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("Await() = %v", got)
	}
}

func TestBuildProcessor(t *testing.T) {
	ctx := testContext(t)
	engine := chanengine.New()
	proc, err := streams.Mapping(double).BuildWith(ctx, engine)
	if err != nil {
		t.Fatalf("BuildWith() error = %v", err)
	}

	got, err := streams.ViaProcessor(streams.Of(1, 2, 3), proc).ToSlice().AwaitWith(ctx, engine)
	if err != nil {
		t.Fatalf("AwaitWith() error = %v", err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("AwaitWith() = %v", got)
	}
}

func TestMalformedGraphs(t *testing.T) {
	engine := chanengine.New()
	ctx := testContext(t)

	if _, err := engine.BuildCompletion(ctx, streams.Of(1).Graph()); !errors.Is(err, spi.ErrMalformedGraph) {
		t.Errorf("BuildCompletion(publisher graph) error = %v", err)
	}
	if _, err := engine.BuildPublisher(ctx, spi.Graph{}); !errors.Is(err, spi.ErrMalformedGraph) {
		t.Errorf("BuildPublisher(empty graph) error = %v", err)
	}
	if _, err := engine.BuildProcessor(ctx, spi.Graph{}); err != nil {
		t.Errorf("BuildProcessor(empty graph) error = %v", err)
	}
}

func TestRegistered(t *testing.T) {
	provider, ok := spi.Lookup(chanengine.Name)
	if !ok {
		t.Fatalf("engine %q is not registered", chanengine.Name)
	}
	engine, err := provider()
	if err != nil {
		t.Fatalf("provider() error = %v", err)
	}
	if _, isChan := engine.(*chanengine.Engine); !isChan {
		t.Errorf("provider() = %T", engine)
	}
}

func TestDefaultEngineRun(t *testing.T) {
	t.Setenv("MINSTREAMS_ENGINE", chanengine.Name)

	got, err := streams.Map(streams.Of(1, 2, 3), double).ToSlice().Await(testContext(t))
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("Await() = %v", got)
	}
	if name := streams.DefaultEngineName(); name != chanengine.Name {
		t.Errorf("DefaultEngineName() = %q", name)
	}
}
