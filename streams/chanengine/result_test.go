package chanengine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

func TestCleanStack(t *testing.T) {
	stack := strings.Join([]string{
		"main.handler",
		"\t/app/main.go:12",
		"github.com/lguimbarda/min-streams/streams/chanengine.(*Engine).transform.func1",
		"\t/src/chanengine/compile.go:80",
		"github.com/lguimbarda/min-streams/streams.mapStage[...].func1",
		"\t/src/streams/stages.go:25",
		"runtime.goexit",
		"\t/go/src/runtime/asm_amd64.s:1700",
	}, "\n")

	got := cleanStack(stack)
	want := "main.handler\n\t/app/main.go:12\nruntime.goexit\n\t/go/src/runtime/asm_amd64.s:1700"
	if got != want {
		t.Errorf("cleanStack() =\n%s\nwant\n%s", got, want)
	}
}

func TestErrPanicUnwrap(t *testing.T) {
	typeErr := &rs.TypeError{Want: "int", Got: "x"}
	err := error(ErrPanic{Value: typeErr})

	var target *rs.TypeError
	if !errors.As(err, &target) {
		t.Error("errors.As did not find the recovered error")
	}
	if (ErrPanic{Value: "text"}).Unwrap() != nil {
		t.Error("Unwrap() of a non-error value should be nil")
	}
}

func TestCallRecovers(t *testing.T) {
	_, err := call(func(any) (any, error) { panic("mapper") }, 1)
	var p ErrPanic
	if !errors.As(err, &p) || p.Value != "mapper" {
		t.Errorf("call() error = %v, want ErrPanic(mapper)", err)
	}

	if err := callFunc(func() {}); err != nil {
		t.Errorf("callFunc() error = %v", err)
	}
}

func TestElement(t *testing.T) {
	if r := element(nil); !errors.Is(r.err, spi.ErrNilElement) {
		t.Errorf("element(nil) = %+v, want ErrNilElement", r)
	}
	if r := element(0); r.isError() || r.value != 0 {
		t.Errorf("element(0) = %+v", r)
	}
}

// countingSubscription records demand and feeds elements synchronously.
type countingSubscription struct {
	mu        sync.Mutex
	requested []int64
	cancelled bool
}

func (s *countingSubscription) Request(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = append(s.requested, n)
}

func (s *countingSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

func (s *countingSubscription) snapshot() ([]int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.requested...), s.cancelled
}

func TestInboxDemand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := newInbox(2)
	sub := &countingSubscription{}
	in.OnSubscribe(sub)

	out := in.relay(ctx)
	in.OnNext("a")
	in.OnNext("b")
	in.OnComplete()

	var got []any
	for r := range out {
		got = append(got, r.value)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("relayed %v, want [a b]", got)
	}

	requested, _ := sub.snapshot()
	if len(requested) != 3 || requested[0] != 2 || requested[1] != 1 || requested[2] != 1 {
		t.Errorf("requests = %v, want [2 1 1]", requested)
	}
}

func TestInboxRejectsSecondSubscription(t *testing.T) {
	in := newInbox(1)
	first, second := &countingSubscription{}, &countingSubscription{}
	in.OnSubscribe(first)
	in.OnSubscribe(second)

	if _, cancelled := second.snapshot(); !cancelled {
		t.Error("second subscription was not cancelled")
	}
	if _, cancelled := first.snapshot(); cancelled {
		t.Error("first subscription was cancelled")
	}
}

func TestInboxCancelsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := newInbox(1)
	sub := &countingSubscription{}
	in.OnSubscribe(sub)

	out := in.relay(ctx)
	cancel()
	for range out {
	}

	if _, cancelled := sub.snapshot(); !cancelled {
		t.Error("subscription was not cancelled with the context")
	}
}
