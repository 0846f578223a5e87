package chanengine

import (
	"context"
	"sync"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/rs"
)

// inbox is the subscriber through which external publishers feed a graph.
// It requests a window of elements up front and one more for every
// element relayed downstream, so it never buffers more than the window.
type inbox struct {
	window int64
	ch     chan result
	ended  chan struct{}
	quit   chan struct{}

	mu        sync.Mutex
	sub       rs.Subscription
	cancelled bool
	finished  bool
	quitOnce  sync.Once
}

func newInbox(bufferSize int) *inbox {
	window := max(bufferSize, 1)
	return &inbox{
		window: int64(window),
		ch:     make(chan result, window+1),
		ended:  make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (i *inbox) OnSubscribe(s rs.Subscription) {
	i.mu.Lock()
	if i.sub != nil || i.cancelled {
		i.mu.Unlock()
		s.Cancel()
		return
	}
	i.sub = s
	i.mu.Unlock()
	s.Request(i.window)
}

func (i *inbox) OnNext(v any) {
	i.deliver(element(v))
}

func (i *inbox) OnError(err error) {
	if err == nil {
		err = errors.Wrap(rs.ErrRuleViolation, "OnError called with nil")
	}
	i.deliver(fail(err))
	i.finish()
}

func (i *inbox) OnComplete() {
	i.finish()
}

func (i *inbox) deliver(r result) {
	i.mu.Lock()
	done := i.finished
	i.mu.Unlock()
	if done {
		return
	}
	select {
	case i.ch <- r:
	case <-i.quit:
	}
}

func (i *inbox) finish() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.finished {
		i.finished = true
		close(i.ended)
	}
}

// cancel stops the upstream subscription, now or as soon as it arrives.
func (i *inbox) cancel() {
	i.quitOnce.Do(func() { close(i.quit) })
	i.mu.Lock()
	i.cancelled = true
	sub := i.sub
	i.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

func (i *inbox) request() {
	i.mu.Lock()
	sub := i.sub
	i.mu.Unlock()
	if sub != nil {
		sub.Request(1)
	}
}

// relay is the emitter side of the inbox. It may run once.
func (i *inbox) relay(ctx context.Context) <-chan result {
	out := make(chan result)
	go func() {
		defer close(out)
		for {
			select {
			case r := <-i.ch:
				if !i.pass(ctx, out, r) {
					return
				}
			case <-i.ended:
				// Signals before the terminal one are already queued.
				for {
					select {
					case r := <-i.ch:
						if !i.pass(ctx, out, r) {
							return
						}
					default:
						return
					}
				}
			case <-ctx.Done():
				i.cancel()
				return
			}
		}
	}()
	return out
}

func (i *inbox) pass(ctx context.Context, out chan<- result, r result) bool {
	if !send(ctx, out, r) {
		i.cancel()
		return false
	}
	if r.isError() {
		i.cancel()
		return false
	}
	i.request()
	return true
}

// drain subscribes to p and relays what it emits.
func (e *Engine) drain(p rs.Publisher[any]) emitter {
	return func(ctx context.Context) <-chan result {
		in := newInbox(e.bufferSize)
		p.Subscribe(in)
		return in.relay(ctx)
	}
}
