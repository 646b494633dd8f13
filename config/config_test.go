package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
	"github.com/rs/zerolog"

	"github.com/fogfactory/dataset/config"
	"github.com/fogfactory/dataset/iterator"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	td.Require(t).CmpNoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("success_defaults", func(t *testing.T) {
		// Act
		opts, err := config.Load(config.NewViper())

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, opts, config.Defaults())
	})

	t.Run("success_config_file", func(t *testing.T) {
		// Arrange
		path := writeFile(t, "config.yml", `
prefetch: 16
shuffle_buffer: 64
seed: 7
reshuffle: false
worker_expiry: 2s
log:
  level: debug
  format: json
`)

		// Act
		opts, err := config.Load(config.NewViper(), config.WithConfigFile(path))

		// Assert
		td.CmpNoError(t, err)
		expected := config.Defaults()
		expected.Prefetch = 16
		expected.ShuffleBuffer = 64
		expected.Seed = 7
		expected.Reshuffle = false
		expected.WorkerExpiry = 2 * time.Second
		expected.Log.Level = "debug"
		expected.Log.Format = "json"
		td.Cmp(t, opts, expected)
	})

	t.Run("success_env_overrides_file", func(t *testing.T) {
		// Arrange
		path := writeFile(t, "config.yml", "prefetch: 16\n")
		t.Setenv("DATASET_PREFETCH", "3")
		t.Setenv("DATASET_LOG_LEVEL", "warn")

		// Act
		opts, err := config.Load(config.NewViper(), config.WithConfigFile(path))

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, opts.Prefetch, 3)
		td.Cmp(t, opts.Log.Level, "warn")
	})

	t.Run("success_env_file", func(t *testing.T) {
		// Arrange
		path := writeFile(t, ".env", "DATASET_BATCH_SIZE=7\n")
		t.Cleanup(func() { os.Unsetenv("DATASET_BATCH_SIZE") })

		// Act
		opts, err := config.Load(config.NewViper(), config.WithEnvFile(path))

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, opts.BatchSize, 7)
	})

	t.Run("error_missing_config_file", func(t *testing.T) {
		_, err := config.Load(config.NewViper(), config.WithConfigFile(filepath.Join(t.TempDir(), "missing.yml")))
		td.CmpError(t, err)
	})

	t.Run("error_invalid_values", func(t *testing.T) {
		// Arrange
		t.Setenv("DATASET_SHUFFLE_BUFFER", "0")

		// Act
		_, err := config.Load(config.NewViper())

		// Assert
		td.CmpErrorIs(t, err, config.ErrInvalidOptions)
		td.CmpContains(t, err.Error(), "ShuffleBuffer")
	})

	t.Run("error_invalid_log_level", func(t *testing.T) {
		t.Setenv("DATASET_LOG_LEVEL", "loud")
		_, err := config.Load(config.NewViper())
		td.CmpErrorIs(t, err, config.ErrInvalidOptions)
	})
}

func TestOptions(t *testing.T) {
	t.Run("success_attach", func(t *testing.T) {
		// Arrange
		opts := config.Defaults()
		opts.Workers = 2
		opts.Log.Level = "debug"
		pool, err := opts.NewPool()
		td.Require(t).CmpNoError(err)
		t.Cleanup(pool.Release)

		// Act
		ctx := opts.Attach(context.Background(), pool)

		// Assert
		td.Cmp(t, iterator.PoolFrom(ctx), td.Shallow(pool))
		td.Cmp(t, zerolog.Ctx(ctx).GetLevel(), zerolog.DebugLevel)
	})

	t.Run("error_negative_workers", func(t *testing.T) {
		opts := config.Defaults()
		opts.Workers = -1
		td.CmpErrorIs(t, opts.Validate(), config.ErrInvalidOptions)
	})
}
