// Package spi is the contract between the builder API and execution
// engines. Builders describe a pipeline as an immutable Graph of Stage
// values; an Engine turns a Graph into running machinery.
//
// Stages are type-erased: element values travel as any and functions take
// and return any. The builder API wraps user functions so that engines
// never see generic types.
package spi

import (
	"iter"

	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
)

// Kind names a stage type.
type Kind string

const (
	KindOf                Kind = "of"
	KindFailed            Kind = "failed"
	KindPublisher         Kind = "publisher"
	KindFromFuture        Kind = "from-future"
	KindConcat            Kind = "concat"
	KindMap               Kind = "map"
	KindFilter            Kind = "filter"
	KindFlatMap           Kind = "flat-map"
	KindFlatMapIterable   Kind = "flat-map-iterable"
	KindFlatMapFuture     Kind = "flat-map-future"
	KindLimit             Kind = "limit"
	KindSkip              Kind = "skip"
	KindTakeWhile         Kind = "take-while"
	KindDropWhile         Kind = "drop-while"
	KindDistinct          Kind = "distinct"
	KindPeek              Kind = "peek"
	KindOnError           Kind = "on-error"
	KindOnComplete        Kind = "on-complete"
	KindOnTerminate       Kind = "on-terminate"
	KindOnErrorResume     Kind = "on-error-resume"
	KindOnErrorResumeWith Kind = "on-error-resume-with"
	KindProcessor         Kind = "processor"
	KindCoupled           Kind = "coupled"
	KindCollect           Kind = "collect"
	KindFindFirst         Kind = "find-first"
	KindCancel            Kind = "cancel"
	KindSubscriber        Kind = "subscriber"
)

// Stage describes one pipeline operation. Implementations are immutable.
//
// A source has no inlet, a terminal has no outlet, and everything in
// between has both.
type Stage interface {
	Kind() Kind
	HasInlet() bool
	HasOutlet() bool
}

type source struct{}

func (source) HasInlet() bool  { return false }
func (source) HasOutlet() bool { return true }

type transform struct{}

func (transform) HasInlet() bool  { return true }
func (transform) HasOutlet() bool { return true }

type terminal struct{}

func (terminal) HasInlet() bool  { return true }
func (terminal) HasOutlet() bool { return false }

// Sources.

// Of emits every element of Elements, then completes.
type Of struct {
	source
	Elements iter.Seq[any]
}

// Failed signals Err immediately.
type Failed struct {
	source
	Err error
}

// PublisherStage emits whatever Publisher emits.
type PublisherStage struct {
	source
	Publisher rs.Publisher[any]
}

// FromFuture emits the value of Future once it settles. A nil value fails
// the stream with ErrNilElement unless Nullable is set, in which case the
// stream completes empty.
type FromFuture struct {
	source
	Future   *future.Future
	Nullable bool
}

// Concat emits all of First followed by all of Second. Both are
// publisher-shaped graphs. Second is not started before First completes.
type Concat struct {
	source
	First, Second Graph
}

// Transforms.

// Map applies Fn to each element.
type Map struct {
	transform
	Fn func(any) (any, error)
}

// Filter keeps elements for which Pred returns true.
type Filter struct {
	transform
	Pred func(any) bool
}

// FlatMap maps each element to a publisher-shaped graph and emits that
// graph's elements, one inner graph at a time.
type FlatMap struct {
	transform
	Fn func(any) (Graph, error)
}

// FlatMapIterable maps each element to a sequence and emits its elements.
type FlatMapIterable struct {
	transform
	Fn func(any) (iter.Seq[any], error)
}

// FlatMapFuture maps each element to a future and emits its value.
// Futures are awaited one at a time, preserving order.
type FlatMapFuture struct {
	transform
	Fn func(any) (*future.Future, error)
}

// Limit emits at most N elements, then cancels upstream and completes.
type Limit struct {
	transform
	N int64
}

// Skip drops the first N elements.
type Skip struct {
	transform
	N int64
}

// TakeWhile emits elements until Pred first returns false, then completes.
type TakeWhile struct {
	transform
	Pred func(any) bool
}

// DropWhile drops elements until Pred first returns false.
type DropWhile struct {
	transform
	Pred func(any) bool
}

// Distinct drops elements equal to one already emitted.
type Distinct struct {
	transform
}

// Peek calls Fn with each element and passes it on unchanged.
type Peek struct {
	transform
	Fn func(any)
}

// OnError calls Fn when the stream fails.
type OnError struct {
	transform
	Fn func(error)
}

// OnComplete calls Fn when the stream completes normally.
type OnComplete struct {
	transform
	Fn func()
}

// OnTerminate calls Fn on completion, failure or cancellation.
type OnTerminate struct {
	transform
	Fn func()
}

// OnErrorResume replaces a failure with the single element Fn returns,
// then completes.
type OnErrorResume struct {
	transform
	Fn func(error) any
}

// OnErrorResumeWith replaces a failure with the elements of the
// publisher-shaped graph Fn returns.
type OnErrorResumeWith struct {
	transform
	Fn func(error) Graph
}

// ProcessorStage routes elements through Processor.
type ProcessorStage struct {
	transform
	Processor rs.Processor[any, any]
}

// Coupled joins a subscriber-shaped graph and a publisher-shaped graph
// into a processor whose termination is linked in both directions.
type Coupled struct {
	transform
	Subscriber Graph
	Publisher  Graph
}

// Terminals.

// Collector is a type-erased reduction: Supplier creates the initial
// accumulation, Accumulator folds each element into it, and Finisher turns
// it into the result. A nil Finisher returns the accumulation unchanged.
type Collector struct {
	Supplier    func() any
	Accumulator func(acc, element any) (any, error)
	Finisher    func(acc any) (any, error)
}

// Collect reduces all elements with Collector and completes with the result.
type Collect struct {
	terminal
	Collector Collector
}

// FindFirst completes with the first element, or nil if there is none.
type FindFirst struct {
	terminal
}

// Cancel cancels upstream immediately and completes with nil.
type Cancel struct {
	terminal
}

// SubscriberStage delivers elements to Subscriber. The completion settles
// with nil when the stream completes, or with the stream's error.
type SubscriberStage struct {
	terminal
	Subscriber rs.Subscriber[any]
}

func (Of) Kind() Kind                { return KindOf }
func (Failed) Kind() Kind            { return KindFailed }
func (PublisherStage) Kind() Kind    { return KindPublisher }
func (FromFuture) Kind() Kind        { return KindFromFuture }
func (Concat) Kind() Kind            { return KindConcat }
func (Map) Kind() Kind               { return KindMap }
func (Filter) Kind() Kind            { return KindFilter }
func (FlatMap) Kind() Kind           { return KindFlatMap }
func (FlatMapIterable) Kind() Kind   { return KindFlatMapIterable }
func (FlatMapFuture) Kind() Kind     { return KindFlatMapFuture }
func (Limit) Kind() Kind             { return KindLimit }
func (Skip) Kind() Kind              { return KindSkip }
func (TakeWhile) Kind() Kind         { return KindTakeWhile }
func (DropWhile) Kind() Kind         { return KindDropWhile }
func (Distinct) Kind() Kind          { return KindDistinct }
func (Peek) Kind() Kind              { return KindPeek }
func (OnError) Kind() Kind           { return KindOnError }
func (OnComplete) Kind() Kind        { return KindOnComplete }
func (OnTerminate) Kind() Kind       { return KindOnTerminate }
func (OnErrorResume) Kind() Kind     { return KindOnErrorResume }
func (OnErrorResumeWith) Kind() Kind { return KindOnErrorResumeWith }
func (ProcessorStage) Kind() Kind    { return KindProcessor }
func (Coupled) Kind() Kind           { return KindCoupled }
func (Collect) Kind() Kind           { return KindCollect }
func (FindFirst) Kind() Kind         { return KindFindFirst }
func (Cancel) Kind() Kind            { return KindCancel }
func (SubscriberStage) Kind() Kind   { return KindSubscriber }
