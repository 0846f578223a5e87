// Package rs defines the reactive-streams contract in Go: publishers emit
// elements to subscribers only as fast as subscribers request them.
//
// Engines speak the type-erased form (Publisher[any], Subscriber[any]);
// the builder API narrows those back to element types with the adapters in
// this package.
package rs

import (
	"math"

	"github.com/lguimbarda/min-streams/errors"
)

// Unbounded is the demand that means "send everything".
const Unbounded = math.MaxInt64

// ErrRuleViolation is wrapped by errors signalled for broken protocol use,
// such as requesting a non-positive number of elements.
var ErrRuleViolation = errors.New("reactive streams rule violation")

// Subscription links one Subscriber to one Publisher.
type Subscription interface {
	// Request adds n to the outstanding demand. n must be positive.
	Request(n int64)
	// Cancel asks the publisher to stop. It may still deliver elements
	// already in flight.
	Cancel()
}

// Subscriber receives the signals of a single subscription. Calls are
// serialized: OnSubscribe first, then any number of OnNext, then at most
// one of OnError or OnComplete.
type Subscriber[T any] interface {
	OnSubscribe(Subscription)
	OnNext(T)
	OnError(error)
	OnComplete()
}

// Publisher is a possibly unbounded source of elements.
type Publisher[T any] interface {
	Subscribe(Subscriber[T])
}

// Processor is both a Subscriber and a Publisher.
type Processor[T, R any] interface {
	Subscriber[T]
	Publisher[R]
}

// SubscriberFuncs adapts plain functions to a Subscriber. Nil fields are
// ignored.
type SubscriberFuncs[T any] struct {
	Subscribe func(Subscription)
	Next      func(T)
	Error     func(error)
	Complete  func()
}

func (f SubscriberFuncs[T]) OnSubscribe(s Subscription) {
	if f.Subscribe != nil {
		f.Subscribe(s)
	}
}

func (f SubscriberFuncs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f SubscriberFuncs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f SubscriberFuncs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// nonPositiveRequest builds the error signalled for Request(n <= 0).
func nonPositiveRequest(n int64) error {
	return errors.Wrapf(ErrRuleViolation, "request(%d): demand must be positive", n)
}

// addDemand adds n to current without overflowing past Unbounded.
func addDemand(current, n int64) int64 {
	if current > Unbounded-n {
		return Unbounded
	}
	return current + n
}
