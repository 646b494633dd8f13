package iterator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Concatenated yields every value of each iterator produced by iterators. An
// iterator is fully exhausted, then closed, before the next one is requested.
// When handler is not nil, every produced iterator is wrapped with
// HandleErrors(handler).
func Concatenated[T any](iterators Iterator[Iterator[T]], handler ErrorHandler) Iterator[T] {
	return guarded[T](&chainedStage[T]{iterators: iterators, handler: handler})
}

// ConcatenatedFunc concatenates count iterators produced by fn. A negative
// count concatenates iterators until fn reports the end.
func ConcatenatedFunc[T any](fn func(ctx context.Context) (Iterator[T], bool, error), count int, handler ErrorHandler) Iterator[T] {
	return Concatenated(Take(FromFunc(fn), count), handler)
}

type chainedStage[T any] struct {
	iterators Iterator[Iterator[T]]
	current   Iterator[T]
	handler   ErrorHandler
	index     int
}

func (s *chainedStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		if s.current == nil {
			// an endless run of empty iterators must stay cancellable
			if err := ctx.Err(); err != nil {
				return zero, false, err
			}
			it, ok, err := s.iterators.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			if s.handler != nil {
				it = HandleErrors(it, s.handler)
			}
			s.current = it
			s.index++
			zerolog.Ctx(ctx).Debug().Int("index", s.index).Str("iterator", it.Summary()).Msg("chain moved to next iterator")
		}
		v, ok, err := s.current.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return v, true, nil
		}
		err = s.current.Close()
		s.current = nil
		if err != nil {
			return zero, false, err
		}
	}
}

func (s *chainedStage[T]) close() error {
	var err error
	if s.current != nil {
		err = s.current.Close()
		s.current = nil
	}
	return errors.Join(err, s.iterators.Close())
}

func (s *chainedStage[T]) summary() string { return chain("Chained", s.iterators) }
