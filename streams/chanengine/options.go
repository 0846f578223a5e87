package chanengine

import "go.uber.org/zap"

// DefaultBufferSize is the capacity of the channel between two stages.
const DefaultBufferSize = 64

// Option configures an Engine.
type Option func(*Engine)

// WithBufferSize sets the capacity of the channels between stages and the
// demand window requested from external publishers. Use 0 for unbuffered
// channels; the demand window never drops below one.
func WithBufferSize(size int) Option {
	return func(e *Engine) {
		if size >= 0 {
			e.bufferSize = size
		}
	}
}

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}
