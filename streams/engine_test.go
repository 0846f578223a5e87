package streams

import (
	"context"
	"sync"

	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// recordingEngine records every graph it is handed and answers with
// preset results.
type recordingEngine struct {
	mu     sync.Mutex
	graphs []spi.Graph
	calls  []string

	completion *future.Future
	err        error
}

func newRecordingEngine(result any) *recordingEngine {
	return &recordingEngine{completion: future.Completed(result)}
}

func (e *recordingEngine) record(call string, g spi.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	e.graphs = append(e.graphs, g)
}

func (e *recordingEngine) BuildPublisher(_ context.Context, g spi.Graph) (rs.Publisher[any], error) {
	e.record("publisher", g)
	if e.err != nil {
		return nil, e.err
	}
	return rs.FromSeq(context.Background(), func(yield func(any) bool) {
		for _, v := range []any{1, 2, 3} {
			if !yield(v) {
				return
			}
		}
	}), nil
}

func (e *recordingEngine) BuildSubscriber(_ context.Context, g spi.Graph) (spi.CompletionSubscriber, error) {
	e.record("subscriber", g)
	if e.err != nil {
		return spi.CompletionSubscriber{}, e.err
	}
	return spi.CompletionSubscriber{
		Subscriber: rs.SubscriberFuncs[any]{},
		Completion: e.completion,
	}, nil
}

func (e *recordingEngine) BuildProcessor(_ context.Context, g spi.Graph) (rs.Processor[any, any], error) {
	e.record("processor", g)
	return nil, e.err
}

func (e *recordingEngine) BuildCompletion(_ context.Context, g spi.Graph) (*future.Future, error) {
	e.record("completion", g)
	if e.err != nil {
		return nil, e.err
	}
	return e.completion, nil
}

func (e *recordingEngine) snapshot() ([]string, []spi.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...), append([]spi.Graph(nil), e.graphs...)
}
