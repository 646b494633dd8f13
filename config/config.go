// Package config loads the options of a dataset pipeline from a yaml file, a
// .env file and DATASET_ environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/fogfactory/dataset/internal/logger"
	"github.com/fogfactory/dataset/iterator"
)

// EnvPrefix prefixes the environment variables overriding options.
const EnvPrefix = "DATASET"

var ErrInvalidOptions = errors.New("invalid options")

// Options tune a dataset pipeline.
type Options struct {
	// Prefetch is the number of pulls kept in flight ahead of the consumer.
	Prefetch int `mapstructure:"prefetch" validate:"gte=1"`
	// ShuffleBuffer is the size of the shuffling window.
	ShuffleBuffer int `mapstructure:"shuffle_buffer" validate:"gte=1"`
	// Seed of the shuffle. 0 picks a random seed.
	Seed      uint64 `mapstructure:"seed"`
	Reshuffle bool   `mapstructure:"reshuffle"`
	BatchSize int    `mapstructure:"batch_size" validate:"gte=1"`
	// Workers bounds the worker pool. 0 means unbounded.
	Workers      int           `mapstructure:"workers" validate:"gte=0"`
	WorkerExpiry time.Duration `mapstructure:"worker_expiry" validate:"gte=0"`
	Log          logger.Config `mapstructure:"log"`
}

// Defaults returns the options used when nothing overrides them.
func Defaults() Options {
	return Options{
		Prefetch:      4,
		ShuffleBuffer: 1000,
		Reshuffle:     true,
		BatchSize:     32,
		WorkerExpiry:  10 * time.Second,
		Log:           logger.Config{Level: "info", Format: "console", Output: "stderr", Timestamp: true},
	}
}

// NewViper returns a viper instance knowing every option key, reading
// DATASET_ prefixed environment variables. Flags may be bound to it before
// calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("prefetch", d.Prefetch)
	v.SetDefault("shuffle_buffer", d.ShuffleBuffer)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("reshuffle", d.Reshuffle)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("worker_expiry", d.WorkerExpiry)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("log.timestamp", d.Log.Timestamp)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets the yaml config file to read.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets a .env file to load into the environment. Variables already
// set are not overridden.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads the options known to v, from lowest to highest priority:
// defaults, config file, .env file and environment, then the flags bound to v.
func Load(v *viper.Viper, opts ...LoaderOption) (Options, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("failed to load config file %s: %w", lc.ConfigFile, err)
		}
	}
	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return Options{}, fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	var o Options
	if err := v.Unmarshal(&o); err != nil {
		return Options{}, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the options.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if err := o.Log.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// NewPool builds the worker pool running the background pulls.
func (o Options) NewPool() (*iterator.Pool, error) {
	return iterator.NewPool(o.Workers, ants.WithExpiryDuration(o.WorkerExpiry))
}

// Logger builds the logger described by the log options.
func (o Options) Logger() zerolog.Logger {
	return logger.New(o.Log)
}

// Attach returns a context carrying pool and the options' logger, as read by
// the pipeline stages.
func (o Options) Attach(ctx context.Context, pool *iterator.Pool) context.Context {
	l := logger.WithComponent(o.Logger(), "dataset")
	return l.WithContext(iterator.WithPool(ctx, pool))
}
