package spi

import (
	"context"
	"fmt"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/future"
	"github.com/lguimbarda/min-streams/streams/rs"
)

// Engine executes graphs. Build methods validate the graph and fail
// synchronously for graphs they cannot run; failures that happen while the
// graph runs are signalled through the returned publisher, subscriber or
// future. ctx bounds the lifetime of the running graph.
type Engine interface {
	BuildPublisher(ctx context.Context, graph Graph) (rs.Publisher[any], error)
	BuildSubscriber(ctx context.Context, graph Graph) (CompletionSubscriber, error)
	BuildProcessor(ctx context.Context, graph Graph) (rs.Processor[any, any], error)
	BuildCompletion(ctx context.Context, graph Graph) (*future.Future, error)
}

// CompletionSubscriber is a subscriber paired with the future that settles
// when the subscriber's graph finishes.
type CompletionSubscriber struct {
	Subscriber rs.Subscriber[any]
	Completion *future.Future
}

// ErrUnsupportedStage is matched by every *UnsupportedStageError.
var ErrUnsupportedStage = errors.New("unsupported stage")

// UnsupportedStageError reports a stage an engine cannot execute.
type UnsupportedStageError struct {
	Stage Stage
}

func (e *UnsupportedStageError) Error() string {
	return fmt.Sprintf("unsupported stage: %s (%T)", e.Stage.Kind(), e.Stage)
}

// Is makes errors.Is(err, ErrUnsupportedStage) match.
func (e *UnsupportedStageError) Is(target error) bool {
	return target == ErrUnsupportedStage
}
