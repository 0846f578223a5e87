package rs

import (
	"context"
	"sync"
)

// Collect subscribes to p with unbounded demand and gathers every element
// until completion, failure or ctx cancellation.
func Collect[T any](ctx context.Context, p Publisher[T]) ([]T, error) {
	c := &collector[T]{done: make(chan struct{})}
	p.Subscribe(c)

	select {
	case <-c.done:
	case <-ctx.Done():
		c.mu.Lock()
		sub := c.sub
		c.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items, c.err
}

type collector[T any] struct {
	mu    sync.Mutex
	sub   Subscription
	items []T
	err   error
	once  sync.Once
	done  chan struct{}
}

func (c *collector[T]) OnSubscribe(s Subscription) {
	c.mu.Lock()
	c.sub = s
	c.mu.Unlock()
	s.Request(Unbounded)
}

func (c *collector[T]) OnNext(v T) {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
}

func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

func (c *collector[T]) OnComplete() {
	c.once.Do(func() { close(c.done) })
}
