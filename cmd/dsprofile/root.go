package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fogfactory/dataset/benchmark"
	"github.com/fogfactory/dataset/config"
)

const (
	configFileFlag = "config"
	envFileFlag    = "env-file"
	samplesFlag    = "samples"
	outputDirFlag  = "output-dir"
)

// NewRootCommand builds the dsprofile command. Options are read from CLI flags, environment variables prefixed with
// DATASET, a .env file or a yaml config file (in that order).
func NewRootCommand() *cobra.Command {
	v := config.NewViper()
	d := config.Defaults()

	cmd := &cobra.Command{
		Use:   "dsprofile",
		Short: "Profile a dataset input pipeline",
		Long: `Profile a dataset input pipeline.

dsprofile runs a decode, process, shuffle, batch and prefetch pipeline over generated samples under the CPU profiler,
then prints its duration next to the duration of a sequential run. Read the generated file with pprof.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			configFile, _ := flags.GetString(configFileFlag)
			envFile, _ := flags.GetString(envFileFlag)
			samples, _ := flags.GetInt(samplesFlag)
			dir, _ := flags.GetString(outputDirFlag)

			opts, err := config.Load(v, config.WithConfigFile(configFile), config.WithEnvFile(envFile))
			if err != nil {
				return err
			}
			_, err = benchmark.Profile(cmd.Context(), opts, samples, dir, cmd.OutOrStdout())
			return err
		},
	}

	flags := cmd.Flags()
	flags.String(configFileFlag, "", "yaml config file")
	flags.String(envFileFlag, "", ".env file loaded into the environment")
	flags.Int(samplesFlag, 1000, "number of samples going through the pipeline")
	flags.String(outputDirFlag, ".", "directory of the generated profile")

	flags.Int("prefetch", d.Prefetch, "number of batches prefetched")
	mustBindPFlag(v, "prefetch", flags.Lookup("prefetch"))
	flags.Int("shuffle-buffer", d.ShuffleBuffer, "size of the shuffling window")
	mustBindPFlag(v, "shuffle_buffer", flags.Lookup("shuffle-buffer"))
	flags.Uint64("seed", d.Seed, "shuffle seed, 0 for a random one")
	mustBindPFlag(v, "seed", flags.Lookup("seed"))
	flags.Bool("reshuffle", d.Reshuffle, "shuffle differently on every iteration")
	mustBindPFlag(v, "reshuffle", flags.Lookup("reshuffle"))
	flags.Int("batch-size", d.BatchSize, "number of samples per batch")
	mustBindPFlag(v, "batch_size", flags.Lookup("batch-size"))
	flags.Int("workers", d.Workers, "worker pool size, 0 for unbounded")
	mustBindPFlag(v, "workers", flags.Lookup("workers"))
	flags.Duration("worker-expiry", d.WorkerExpiry, "idle duration after which a worker is stopped")
	mustBindPFlag(v, "worker_expiry", flags.Lookup("worker-expiry"))
	flags.String("log-level", d.Log.Level, "log level")
	mustBindPFlag(v, "log.level", flags.Lookup("log-level"))
	flags.String("log-format", d.Log.Format, "log format (console or json)")
	mustBindPFlag(v, "log.format", flags.Lookup("log-format"))

	return cmd
}

// mustBindPFlag binds key to a pflag, and panics if the binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}
