package dataset

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fogfactory/dataset/iterator"
)

// Filter keeps the elements for which predicate returns true.
func (d *Dataset[T]) Filter(predicate func(T) (bool, error)) *Dataset[T] {
	return derive(d, filterCardinality(d.size), func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		return iterator.Filter(upstream, predicate), nil
	})
}

// ShuffleOption configures Shuffle.
type ShuffleOption func(*shuffleOptions)

type shuffleOptions struct {
	seed      uint64
	reshuffle bool
}

// WithSeed makes the shuffle reproducible. Without it, a random seed is
// drawn when Shuffle is called.
func WithSeed(seed uint64) ShuffleOption {
	return func(o *shuffleOptions) { o.seed = seed }
}

// WithReshuffleEachIteration tells whether every iteration uses a new order
// (the default) or replays the same one.
func WithReshuffleEachIteration(reshuffle bool) ShuffleOption {
	return func(o *shuffleOptions) { o.reshuffle = reshuffle }
}

// seeds derives the seed of each iteration of a shuffled dataset.
type seeds struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *seeds) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64()
}

// Shuffle mixes the elements in a sliding window of bufferSize elements. A
// buffer at least as large as the dataset gives a uniform shuffle.
func (d *Dataset[T]) Shuffle(bufferSize int, opts ...ShuffleOption) *Dataset[T] {
	if bufferSize < 1 {
		return invalid[T]("shuffle buffer size %d (must be >= 1)", bufferSize)
	}
	o := shuffleOptions{seed: rand.Uint64(), reshuffle: true}
	for _, opt := range opts {
		opt(&o)
	}
	sequence := &seeds{rng: iterator.NewRand(o.seed)}
	first := sequence.next()

	return derive(d, Unknown, func(ctx context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		seed := first
		if o.reshuffle {
			seed = sequence.next()
		}
		zerolog.Ctx(ctx).Debug().Uint64("seed", seed).Int("buffer", bufferSize).Msg("shuffle seeded")
		return iterator.Shuffle(upstream, bufferSize, iterator.NewRand(seed))
	})
}

// Repeat iterates over the dataset count times. A negative count repeats it forever.
func (d *Dataset[T]) Repeat(count int) *Dataset[T] {
	size := repeatCardinality(d.size, count)
	if size == 0 {
		return FromSlice[T](nil)
	}
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) {
		return iterator.ConcatenatedFunc(func(ctx context.Context) (iterator.Iterator[T], bool, error) {
			it, err := d.build(ctx)
			return it, err == nil, err
		}, count, nil), nil
	}, size)
}

// Skip drops the first count elements.
func (d *Dataset[T]) Skip(count int) *Dataset[T] {
	return derive(d, skipCardinality(d.size, count), func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		return iterator.Skip(upstream, count), nil
	})
}

// Take keeps at most count elements. A negative count keeps them all.
func (d *Dataset[T]) Take(count int) *Dataset[T] {
	return derive(d, takeCardinality(d.size, count), func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		return iterator.Take(upstream, count), nil
	})
}

// Concatenate appends the elements of other to the elements of d.
func (d *Dataset[T]) Concatenate(other *Dataset[T]) *Dataset[T] {
	parts := []*Dataset[T]{d, other}
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) {
		next := 0
		return iterator.ConcatenatedFunc(func(ctx context.Context) (iterator.Iterator[T], bool, error) {
			part := parts[next]
			next++
			it, err := part.build(ctx)
			return it, err == nil, err
		}, len(parts), nil), nil
	}, concatCardinality(d.size, other.size))
}

// Prefetch keeps bufferSize elements in flight ahead of the consumer.
func (d *Dataset[T]) Prefetch(bufferSize int) *Dataset[T] {
	if bufferSize < 1 {
		return invalid[T]("prefetch buffer size %d (must be >= 1)", bufferSize)
	}
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		return iterator.Prefetch(upstream, bufferSize)
	})
}

// HandleErrors lets handler decide what happens after a failure: retry
// pulls again, stop ends the iteration, and a returned error is propagated.
func (d *Dataset[T]) HandleErrors(handler iterator.ErrorHandler) *Dataset[T] {
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[T], error) {
		return iterator.HandleErrors(upstream, handler), nil
	})
}
