package tck

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lguimbarda/min-streams/config"
	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// Defaults used when no option overrides them.
const (
	DefaultParallel = 4
	DefaultTimeout  = 5 * time.Second
)

// Runner runs fixtures against one engine.
type Runner struct {
	engine    spi.Engine
	factories []Factory
	overrides []Fixture
	console   bool
	parallel  int
	timeout   time.Duration
	out       io.Writer
	log       *zap.SugaredLogger
}

// Option configures a Runner.
type Option func(*Runner)

// WithEngine runs the suite against engine instead of the default engine.
func WithEngine(engine spi.Engine) Option {
	return func(r *Runner) { r.engine = engine }
}

// WithFixture uses f in place of the fixture built for the same name. A
// fixture whose name matches no factory is added to the suite.
func WithFixture(f Fixture) Option {
	return func(r *Runner) { r.overrides = append(r.overrides, f) }
}

// WithFactories replaces the default fixture set.
func WithFactories(factories ...Factory) Option {
	return func(r *Runner) { r.factories = factories }
}

// WithConsole turns per-case reporting on or off. It is on by default;
// the summary is always written.
func WithConsole(on bool) Option {
	return func(r *Runner) { r.console = on }
}

// WithParallel bounds how many fixtures run at once.
func WithParallel(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallel = n
		}
	}
}

// WithTimeout bounds each case.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithOutput sets where reports are written. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithLogger sets the logger for run lifecycle messages.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithConfig applies the harness settings of cfg.
func WithConfig(cfg config.TCKConfig) Option {
	return func(r *Runner) {
		WithParallel(cfg.Parallel)(r)
		WithTimeout(cfg.Timeout)(r)
		r.console = cfg.Console
	}
}

// New returns a runner over the default fixtures.
func New(opts ...Option) *Runner {
	r := &Runner{
		factories: DefaultFactories(),
		console:   true,
		parallel:  DefaultParallel,
		timeout:   DefaultTimeout,
		out:       os.Stdout,
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs the suite, writes the summary and returns the error of the last
// failed case, or nil when nothing failed.
func (r *Runner) Run(ctx context.Context) error {
	_, err := r.RunSummary(ctx)
	return err
}

// RunSummary is Run that also returns the tally.
func (r *Runner) RunSummary(ctx context.Context) (Summary, error) {
	engine := r.engine
	if engine == nil {
		var err error
		if engine, err = streams.DefaultEngine(); err != nil {
			return Summary{}, errors.Wrap(err, "resolve engine for conformance run")
		}
	}

	fixtures := r.fixtures(engine)
	runID := uuid.NewString()
	log := r.log.With("run_id", runID)
	log.Infow("conformance run started", "engine", fmt.Sprintf("%T", engine), "fixtures", len(fixtures))

	l := newListener(r.out, r.console)
	g := new(errgroup.Group)
	g.SetLimit(r.parallel)
	for _, f := range fixtures {
		g.Go(func() error {
			r.runFixture(ctx, f, l)
			return nil
		})
	}
	_ = g.Wait()

	s := l.summary()
	if err := s.Write(r.out); err != nil {
		return s, errors.Wrap(err, "write summary")
	}
	log.Infow("conformance run finished",
		"total", s.Total, "passed", s.Passed, "failed", s.Failed, "skipped", s.Skipped)
	return s, l.result()
}

// fixtures instantiates the suite, applying overrides by name, and orders
// it by fixture name.
func (r *Runner) fixtures(engine spi.Engine) []Fixture {
	byName := make(map[string]Fixture, len(r.overrides))
	for _, f := range r.overrides {
		byName[f.Name] = f
	}

	fixtures := make([]Fixture, 0, len(r.factories)+len(r.overrides))
	for _, factory := range r.factories {
		f := factory(engine)
		if override, ok := byName[f.Name]; ok {
			f = override
			delete(byName, f.Name)
		}
		fixtures = append(fixtures, f)
	}
	for _, f := range r.overrides {
		if _, extra := byName[f.Name]; extra {
			fixtures = append(fixtures, f)
			delete(byName, f.Name)
		}
	}

	slices.SortStableFunc(fixtures, func(a, b Fixture) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return fixtures
}

func (r *Runner) runFixture(ctx context.Context, f Fixture, l *listener) {
	l.fixtureStarted(f.Name)
	for _, c := range f.Cases {
		err := r.runCase(ctx, c)
		if skip, ok := isSkip(err); ok {
			l.caseSkipped(f.Name, c.Name, skip.Reason)
			continue
		}
		if err != nil {
			r.log.Debugw("case failed", "fixture", f.Name, "case", c.Name, "error", err)
			l.caseFailed(f.Name, c.Name, err)
			continue
		}
		l.casePassed(f.Name, c.Name)
	}
}

// runCase runs c with the case timeout. A case that ignores its context
// is abandoned when the timeout expires.
func (r *Runner) runCase(ctx context.Context, c Case) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeRun(ctx, c)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "case %q did not finish", c.Name)
	}
}

func safeRun(ctx context.Context, c Case) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %v", r)
		}
	}()
	if c.Run == nil {
		return Skip("no test body")
	}
	return c.Run(ctx)
}
