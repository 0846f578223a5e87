// Package logger holds the process-wide structured logger.
//
// Library packages default to a no-op logger so that importing them never
// produces output. Binaries call Initialize once at startup. The global
// logger may be read and replaced from any goroutine.
package logger

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	current    atomic.Pointer[zap.SugaredLogger]
	jsonOutput atomic.Bool
)

func init() {
	// Safe no-op until Initialize is called
	current.Store(zap.NewNop().Sugar())
}

// Initialize sets up the global logger based on the JSON output preference.
func Initialize(json bool) error {
	var zapLogger *zap.Logger
	var err error

	if json {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err = config.Build()
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.TimeKey = ""
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				zap.InfoLevel,
			),
		)
	}

	if err != nil {
		return err
	}

	Set(zapLogger.Sugar())
	jsonOutput.Store(json)
	return nil
}

// Get returns the global logger.
func Get() *zap.SugaredLogger {
	return current.Load()
}

// Set replaces the global logger. A nil logger installs a no-op one.
func Set(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	current.Store(l)
}

// JSONOutput reports whether Initialize selected JSON output.
func JSONOutput() bool {
	return jsonOutput.Load()
}

// Named returns a child of the global logger scoped to a component. The
// child keeps the logger that was global at the time of the call.
func Named(name string) *zap.SugaredLogger {
	return Get().Named(name)
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	_ = Get().Sync()
}
