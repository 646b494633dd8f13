package iterator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
)

// NewRand returns the deterministic generator used to shuffle with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle returns the upstream values in random order, using a sliding window
// of windowSize prefetched values. Each pull picks a value uniformly in the
// window and replaces it with the newest prefetched value. Once the upstream is
// exhausted, the remaining window is drained in random order.
//
// The order only depends on the upstream values and on the sequence drawn from
// rng, so two iterators built with generators of the same seed shuffle the same
// input identically.
func Shuffle[T any](upstream Iterator[T], windowSize int, rng *rand.Rand) (Iterator[T], error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: shuffle needs a random generator", ErrInvalidArgument)
	}
	p, err := newPrefetcher(upstream, windowSize)
	if err != nil {
		return nil, err
	}
	return guarded[T](&shuffleStage[T]{prefetcher: p, rng: rng}), nil
}

type shuffleStage[T any] struct {
	*prefetcher[T]
	rng               *rand.Rand
	upstreamExhausted bool
}

func (s *shuffleStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	if s.bg.ctx == nil {
		zerolog.Ctx(ctx).Debug().Int("window", s.buffer.Cap()).Msg("shuffle started")
	}
	s.bg.start(ctx)
	if !s.upstreamExhausted {
		s.refill()
	}
	for !s.buffer.IsEmpty() {
		chosen := s.rng.IntN(s.buffer.Len())
		f, err := s.buffer.ShuffleExcise(chosen)
		if err != nil {
			return zero, false, err
		}
		v, ok, err := f.wait(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				_ = s.buffer.Push(f)
			}
			return zero, false, err
		}
		if !ok {
			s.upstreamExhausted = true
			continue
		}
		if !s.upstreamExhausted {
			s.refill()
		}
		return v, true, nil
	}
	return zero, false, nil
}

func (s *shuffleStage[T]) close() error { return s.stop(s.bg.ctx) }

func (s *shuffleStage[T]) summary() string {
	return chain(fmt.Sprintf("Shuffle(%d)", s.buffer.Cap()), s.upstream)
}
