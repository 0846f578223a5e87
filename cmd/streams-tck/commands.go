package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/lguimbarda/min-streams/config"
	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/logger"
	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/observe"
	"github.com/lguimbarda/min-streams/streams/spi"
	"github.com/lguimbarda/min-streams/tck"

	// Engines available to the harness.
	_ "github.com/lguimbarda/min-streams/streams/chanengine"
)

type options struct {
	configPath string
	engine     string
	quiet      bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "streams-tck",
		Short:         "Reactive streams engine conformance kit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Cleanup()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (toml, yaml or json)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance suite and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(cmd, opts)
		},
	}
	run.Flags().StringVarP(&opts.engine, "engine", "e", "", "engine to test (default from config)")
	run.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print only the summary")

	engines := &cobra.Command{
		Use:   "engines",
		Short: "List registered engines",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range spi.Engines() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	root.AddCommand(run, engines)
	return root
}

func (o *options) load() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFromFile(o.configPath)
	} else {
		o.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	return logger.Initialize(o.cfg.Log.JSON)
}

func runSuite(cmd *cobra.Command, opts *options) error {
	engine, name, err := resolveEngine(opts.engine, opts.cfg.Engine)
	if err != nil {
		return err
	}
	log := logger.Named("tck")

	engine, err = observe.Instrument(engine, otel.Meter("github.com/lguimbarda/min-streams"))
	if err != nil {
		return err
	}
	if engine, err = observe.Logged(engine, logger.Named("engine")); err != nil {
		return err
	}

	log.Infow("testing engine", "engine", name)
	runner := tck.New(
		tck.WithEngine(engine),
		tck.WithConfig(opts.cfg.TCK),
		tck.WithConsole(opts.cfg.TCK.Console && !opts.quiet),
		tck.WithOutput(cmd.OutOrStdout()),
		tck.WithLogger(log),
	)
	if err := runner.Run(cmd.Context()); err != nil {
		return errors.Wrapf(err, "engine %q failed conformance", name)
	}
	return nil
}

// resolveEngine instantiates the engine named by flag or configuration,
// falling back to the default engine.
func resolveEngine(flag, configured string) (spi.Engine, string, error) {
	name := flag
	if name == "" {
		name = configured
	}
	if name == "" {
		engine, err := streams.DefaultEngine()
		if err != nil {
			return nil, "", err
		}
		return engine, streams.DefaultEngineName(), nil
	}

	provider, ok := spi.Lookup(name)
	if !ok {
		err := errors.Wrapf(errors.ErrNoEngine, "engine %q is not registered", name)
		return nil, "", errors.WithHintf(err, "registered engines: [%s]", strings.Join(spi.Engines(), ", "))
	}
	engine, err := provider()
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to create engine %q", name)
	}
	return engine, name, nil
}
