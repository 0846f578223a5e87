// Package config loads min-streams configuration using Viper.
//
// Precedence (lowest to highest): defaults < config file < MINSTREAMS_* env vars.
// Nested keys map to env vars with "." replaced by "_", so tck.parallel is
// read from MINSTREAMS_TCK_PARALLEL.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "MINSTREAMS"

// Config is the root configuration.
type Config struct {
	// Engine names the registered engine used when no engine is passed
	// explicitly. Empty means "pick the registered one".
	Engine string    `mapstructure:"engine"`
	Log    LogConfig `mapstructure:"log"`
	TCK    TCKConfig `mapstructure:"tck"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// TCKConfig controls the compliance harness.
type TCKConfig struct {
	// Parallel bounds how many fixtures run at once.
	Parallel int           `mapstructure:"parallel"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Console  bool          `mapstructure:"console"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine", "")
	v.SetDefault("log.json", false)
	v.SetDefault("tck.parallel", 4)
	v.SetDefault("tck.timeout", 5*time.Second)
	v.SetDefault("tck.console", true)
}

// New returns a Viper instance with defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file, with env overrides.
func LoadFromFile(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return LoadWithViper(v)
}

var (
	loadOnce sync.Once
	loaded   *Config
	loadErr  error
)

// Load returns the process configuration built from defaults and environment.
// The result is computed once.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		loaded, loadErr = LoadWithViper(New())
	})
	return loaded, loadErr
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.TCK.Parallel < 1 {
		return errors.Newf("tck.parallel must be at least 1, got %d", c.TCK.Parallel)
	}
	if c.TCK.Timeout <= 0 {
		return errors.Newf("tck.timeout must be positive, got %s", c.TCK.Timeout)
	}
	return nil
}
