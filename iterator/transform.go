package iterator

import (
	"context"
)

// Map transforms each value with fn. An error returned by fn fails the pull
// with a *StreamError.
func Map[I, O any](upstream Iterator[I], fn func(I) (O, error)) Iterator[O] {
	return MapAsync(upstream, func(_ context.Context, in I) (O, error) { return fn(in) })
}

// MapAsync is Map for functions which block or need the context.
func MapAsync[I, O any](upstream Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return guarded[O](&mapStage[I, O]{name: "Map", upstream: upstream, fn: fn})
}

// Erase turns an iterator into an Iterator[any], as expected by Zip.
func Erase[T any](upstream Iterator[T]) Iterator[any] {
	return guarded[any](&mapStage[T, any]{
		name:     "Erase",
		upstream: upstream,
		fn:       func(_ context.Context, in T) (any, error) { return in, nil },
	})
}

// Tap calls fn for every value and forwards the value unchanged.
func Tap[T any](upstream Iterator[T], fn func(context.Context, T) error) Iterator[T] {
	return guarded[T](&mapStage[T, T]{
		name:     "Tap",
		upstream: upstream,
		fn: func(ctx context.Context, in T) (T, error) {
			return in, fn(ctx, in)
		},
	})
}

type mapStage[I, O any] struct {
	name     string
	upstream Iterator[I]
	fn       func(context.Context, I) (O, error)
}

func (s *mapStage[I, O]) advance(ctx context.Context) (O, bool, error) {
	var zero O
	in, ok, err := s.upstream.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := s.fn(ctx, in)
	if err != nil {
		release(in)
		return zero, false, &StreamError{Stage: s.name, Err: err}
	}
	releaseUnlessForwarded(in, out)
	return out, true, nil
}

func (s *mapStage[I, O]) close() error { return s.upstream.Close() }

func (s *mapStage[I, O]) summary() string { return chain(s.name, s.upstream) }

// Filter forwards only the values for which predicate returns true. A single
// pull may consume any number of upstream values.
func Filter[T any](upstream Iterator[T], predicate func(T) (bool, error)) Iterator[T] {
	return guarded[T](&filterStage[T]{upstream: upstream, predicate: predicate})
}

type filterStage[T any] struct {
	upstream  Iterator[T]
	predicate func(T) (bool, error)
}

func (s *filterStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		v, ok, err := s.upstream.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		keep, err := s.predicate(v)
		if err != nil {
			release(v)
			return zero, false, &StreamError{Stage: "Filter", Err: err}
		}
		if keep {
			return v, true, nil
		}
		release(v)
	}
}

func (s *filterStage[T]) close() error { return s.upstream.Close() }

func (s *filterStage[T]) summary() string { return chain("Filter", s.upstream) }
