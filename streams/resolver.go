package streams

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lguimbarda/min-streams/config"
	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/logger"
	"github.com/lguimbarda/min-streams/streams/spi"
)

type resolvedEngine struct {
	name   string
	engine spi.Engine
}

var (
	resolveMu     sync.Mutex
	defaultEngine atomic.Pointer[resolvedEngine]
)

// DefaultEngine returns the process-wide engine used by Run and Build.
//
// The first successful call chooses among the engines registered with
// spi.Register: the one named by the "engine" setting (MINSTREAMS_ENGINE)
// if set, otherwise the only one, otherwise the first by name. The choice
// is cached for the life of the process. A failed lookup is not cached.
func DefaultEngine() (spi.Engine, error) {
	if r := defaultEngine.Load(); r != nil {
		return r.engine, nil
	}

	resolveMu.Lock()
	defer resolveMu.Unlock()
	if r := defaultEngine.Load(); r != nil {
		return r.engine, nil
	}

	name, err := selectEngine(config.New().GetString("engine"))
	if err != nil {
		return nil, err
	}
	provider, ok := spi.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNoEngine, "engine %q was unregistered during lookup", name)
	}
	engine, err := provider()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine %q", name)
	}
	if engine == nil {
		return nil, errors.Wrapf(errors.ErrNoEngine, "provider for engine %q returned nil", name)
	}

	defaultEngine.Store(&resolvedEngine{name: name, engine: engine})
	logger.Named("streams").Debugw("resolved default engine", "engine", name)
	return engine, nil
}

// DefaultEngineName returns the name of the resolved default engine, or ""
// if none has been resolved yet.
func DefaultEngineName() string {
	if r := defaultEngine.Load(); r != nil {
		return r.name
	}
	return ""
}

func selectEngine(preferred string) (string, error) {
	names := spi.Engines()

	if preferred != "" {
		if _, ok := spi.Lookup(preferred); !ok {
			err := errors.Wrapf(errors.ErrNoEngine, "engine %q is not registered", preferred)
			return "", errors.WithHintf(err, "registered engines: [%s]", strings.Join(names, ", "))
		}
		return preferred, nil
	}

	switch len(names) {
	case 0:
		return "", errors.WithHint(errors.WithStack(errors.ErrNoEngine),
			`import an engine for its side effects, e.g. _ "github.com/lguimbarda/min-streams/streams/chanengine"`)
	case 1:
		return names[0], nil
	default:
		logger.Named("streams").Warnw("several engines registered, picking the first by name",
			"engines", names, "picked", names[0])
		return names[0], nil
	}
}
