package rs

import (
	"fmt"
)

// TypeError is signalled when an erased element cannot be narrowed.
type TypeError struct {
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("element has type %T, want %s", e.Got, e.Want)
}

// narrow converts an erased element to T. nil becomes the zero T.
func narrow[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeError{Want: fmt.Sprintf("%T", zero), Got: v}
	}
	return t, nil
}

// Erase views a typed publisher as a Publisher[any].
func Erase[T any](p Publisher[T]) Publisher[any] {
	if e, ok := p.(narrowedPublisher[T]); ok {
		return e.Publisher
	}
	return erasedPublisher[T]{p}
}

type erasedPublisher[T any] struct{ Publisher[T] }

func (p erasedPublisher[T]) Subscribe(s Subscriber[any]) {
	p.Publisher.Subscribe(NarrowSubscriber[T](s))
}

// Narrow views an erased publisher as a Publisher[T]. An element that is not
// a T cancels the upstream subscription and is signalled as a *TypeError.
func Narrow[T any](p Publisher[any]) Publisher[T] {
	if e, ok := p.(erasedPublisher[T]); ok {
		return e.Publisher
	}
	return narrowedPublisher[T]{p}
}

type narrowedPublisher[T any] struct{ Publisher[any] }

func (p narrowedPublisher[T]) Subscribe(s Subscriber[T]) {
	p.Publisher.Subscribe(EraseSubscriber(s))
}

// EraseSubscriber views a typed subscriber as a Subscriber[any].
func EraseSubscriber[T any](s Subscriber[T]) Subscriber[any] {
	if n, ok := s.(*narrowedSubscriber[T]); ok {
		return n.Subscriber
	}
	return &erasedSubscriber[T]{Subscriber: s}
}

type erasedSubscriber[T any] struct {
	Subscriber[T]
	sub  Subscription
	done bool
}

func (s *erasedSubscriber[T]) OnSubscribe(sub Subscription) {
	s.sub = sub
	s.Subscriber.OnSubscribe(sub)
}

func (s *erasedSubscriber[T]) OnNext(v any) {
	if s.done {
		return
	}
	t, err := narrow[T](v)
	if err != nil {
		s.done = true
		if s.sub != nil {
			s.sub.Cancel()
		}
		s.Subscriber.OnError(err)
		return
	}
	s.Subscriber.OnNext(t)
}

func (s *erasedSubscriber[T]) OnError(err error) {
	if s.done {
		return
	}
	s.done = true
	s.Subscriber.OnError(err)
}

func (s *erasedSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.Subscriber.OnComplete()
}

// NarrowSubscriber views an erased subscriber as a Subscriber[T].
func NarrowSubscriber[T any](s Subscriber[any]) Subscriber[T] {
	if e, ok := s.(*erasedSubscriber[T]); ok {
		return e.Subscriber
	}
	return &narrowedSubscriber[T]{s}
}

type narrowedSubscriber[T any] struct{ Subscriber[any] }

func (s *narrowedSubscriber[T]) OnNext(v T) { s.Subscriber.OnNext(v) }

// EraseProcessor views a typed processor as a Processor[any, any].
func EraseProcessor[T, R any](p Processor[T, R]) Processor[any, any] {
	return erasedProcessor[T, R]{
		Subscriber: EraseSubscriber[T](p),
		pub:        Erase[R](p),
	}
}

type erasedProcessor[T, R any] struct {
	Subscriber[any]
	pub Publisher[any]
}

func (p erasedProcessor[T, R]) Subscribe(s Subscriber[any]) { p.pub.Subscribe(s) }

// NarrowProcessor views an erased processor as a Processor[T, R].
func NarrowProcessor[T, R any](p Processor[any, any]) Processor[T, R] {
	return narrowedProcessor[T, R]{
		Subscriber: NarrowSubscriber[T](p),
		pub:        Narrow[R](p),
	}
}

type narrowedProcessor[T, R any] struct {
	Subscriber[T]
	pub Publisher[R]
}

func (p narrowedProcessor[T, R]) Subscribe(s Subscriber[R]) { p.pub.Subscribe(s) }
