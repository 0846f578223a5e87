package rs

import (
	"context"
	"iter"
	"sync"
)

// FromSeq2 returns a Publisher that pulls elements from a fresh sequence per
// subscriber and delivers them only against outstanding demand. The
// sequence yields (value, nil) per element; a non-nil error terminates the
// subscription with OnError. Cancelling ctx or the subscription stops the
// sequence and releases it.
func FromSeq2[T any](ctx context.Context, open func(context.Context) iter.Seq2[T, error]) Publisher[T] {
	return &seqPublisher[T]{ctx: ctx, open: open}
}

// FromSeq is FromSeq2 for sequences that cannot fail.
func FromSeq[T any](ctx context.Context, seq iter.Seq[T]) Publisher[T] {
	return FromSeq2(ctx, func(context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for v := range seq {
				if !yield(v, nil) {
					return
				}
			}
		}
	})
}

type seqPublisher[T any] struct {
	ctx  context.Context
	open func(context.Context) iter.Seq2[T, error]
}

func (p *seqPublisher[T]) Subscribe(s Subscriber[T]) {
	ctx, cancel := context.WithCancel(p.ctx)
	sub := &demandSubscription{
		wake:   make(chan struct{}, 1),
		cancel: cancel,
	}
	s.OnSubscribe(sub)
	go runSeq(ctx, sub, s, p.open(ctx))
}

// demandSubscription counts outstanding demand for a single producer
// goroutine. Request and Cancel may be called from any goroutine, including
// from inside OnNext.
type demandSubscription struct {
	mu        sync.Mutex
	demand    int64
	cancelled bool
	violation error
	wake      chan struct{}
	cancel    context.CancelFunc
}

func (d *demandSubscription) Request(n int64) {
	d.mu.Lock()
	if n <= 0 {
		if d.violation == nil {
			d.violation = nonPositiveRequest(n)
		}
	} else {
		d.demand = addDemand(d.demand, n)
	}
	d.mu.Unlock()
	d.signal()
}

func (d *demandSubscription) Cancel() {
	d.mu.Lock()
	d.cancelled = true
	d.mu.Unlock()
	d.cancel()
	d.signal()
}

func (d *demandSubscription) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// take blocks until one unit of demand is available. It returns false when
// the subscription was cancelled or ctx is done, and a non-nil error when
// the subscriber broke the protocol.
func (d *demandSubscription) take(ctx context.Context) (bool, error) {
	for {
		d.mu.Lock()
		switch {
		case d.cancelled:
			d.mu.Unlock()
			return false, nil
		case d.violation != nil:
			err := d.violation
			d.mu.Unlock()
			return false, err
		case d.demand > 0:
			if d.demand != Unbounded {
				d.demand--
			}
			d.mu.Unlock()
			return true, nil
		}
		d.mu.Unlock()

		select {
		case <-d.wake:
		case <-ctx.Done():
			return false, nil
		}
	}
}

func (d *demandSubscription) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

func runSeq[T any](ctx context.Context, d *demandSubscription, s Subscriber[T], seq iter.Seq2[T, error]) {
	defer d.cancel()

	next, stop := iter.Pull2(seq)
	defer stop()

	for {
		// Pull ahead of demand so completion is signalled without a request.
		v, err, ok := next()
		if !ok {
			if !d.isCancelled() {
				s.OnComplete()
			}
			return
		}
		if err != nil {
			if !d.isCancelled() {
				s.OnError(err)
			}
			return
		}

		granted, violation := d.take(ctx)
		if violation != nil {
			s.OnError(violation)
			return
		}
		if !granted {
			if !d.isCancelled() && ctx.Err() != nil {
				s.OnError(ctx.Err())
			}
			return
		}
		s.OnNext(v)
	}
}
