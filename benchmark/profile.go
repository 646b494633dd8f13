package benchmark

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/fogfactory/dataset"
	"github.com/fogfactory/dataset/config"
	"github.com/fogfactory/dataset/source"
)

// sampleSize is the size of an encoded sample, in bytes.
const sampleSize = 8

// Profile generates a CPU profile of a typical input pipeline. It will be outputted in dir as
// dataset_{date}_s{samples}_w{workers}.prof, and its path is returned.
//
// The pipeline decodes samples from an in memory source, processes them with a 1ms task each, then shuffles,
// batches and prefetches them as configured by opts.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(ctx context.Context, opts config.Options, samples int, dir string, out io.Writer) (string, error) {
	// Profile file
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("dataset_%s_s%d_w%d.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"),
		samples,
		opts.Workers)))
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Init engine
	pool, err := opts.NewPool()
	if err != nil {
		return "", err
	}
	defer pool.Release()
	ctx = opts.Attach(ctx, pool)

	raw := make([]byte, 0, samples*sampleSize)
	for i := range samples {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(i))
	}
	process := func(_ context.Context, v uint64) (uint64, error) { time.Sleep(time.Millisecond); return v, nil }
	decoded := dataset.Map(dataset.FromSource(source.Bytes(raw, sampleSize)), func(chunk []byte) (uint64, error) {
		return binary.LittleEndian.Uint64(chunk), nil
	})
	shuffleOpts := []dataset.ShuffleOption{dataset.WithReshuffleEachIteration(opts.Reshuffle)}
	if opts.Seed != 0 {
		shuffleOpts = append(shuffleOpts, dataset.WithSeed(opts.Seed))
	}
	parallelism := lo.Ternary(opts.Workers > 0, opts.Workers, opts.Prefetch)
	pipeline := dataset.Batch(
		dataset.ParallelMap(decoded, parallelism, process).Shuffle(opts.ShuffleBuffer, shuffleOpts...),
		opts.BatchSize, true,
	).Prefetch(opts.Prefetch)

	summary, err := pipeline.Summary(ctx)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, "pipeline:", summary)
	fmt.Fprintln(out, "samples:", samples, ", minimal seq duration:", time.Duration(samples)*time.Millisecond)

	// Start profiling
	batches := 0
	err = func() error {
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()

		// Run pipeline
		start := time.Now()
		err := pipeline.ForEach(ctx, func([]uint64) error {
			batches++
			return nil
		})
		fmt.Fprintf(out, "(par: %s, %d batches)\n", time.Since(start), batches)
		return err
	}()
	if err != nil {
		return "", err
	}

	start := time.Now()
	for i := range samples {
		_, _ = process(ctx, uint64(i))
	}
	fmt.Fprintf(out, "(seq: %s)\n", time.Since(start))
	fmt.Fprintf(out, "profile:%s\n", f.Name())

	// Call pprof on a file
	// pprof -http=:8080 $file
	// On all files
	// source <(ls | grep .prof | nl | awk '{print "pprof -http=:"$1 + 8080, $2,$3,"&"}')
	return f.Name(), nil
}
