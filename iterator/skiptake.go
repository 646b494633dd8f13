package iterator

import (
	"context"
	"fmt"
)

// Skip drops the first count upstream values. A negative count skips nothing.
func Skip[T any](upstream Iterator[T], count int) Iterator[T] {
	return guarded[T](&skipStage[T]{upstream: upstream, max: count})
}

type skipStage[T any] struct {
	upstream Iterator[T]
	max      int
	count    int
}

func (s *skipStage[T]) advance(ctx context.Context) (T, bool, error) {
	for s.count < s.max {
		v, ok, err := s.upstream.Next(ctx)
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		s.count++
		release(v)
	}
	return s.upstream.Next(ctx)
}

func (s *skipStage[T]) close() error { return s.upstream.Close() }

func (s *skipStage[T]) summary() string { return chain(fmt.Sprintf("Skip(%d)", s.max), s.upstream) }

// Take forwards at most count upstream values. The upstream is closed as soon
// as the last of them has been pulled, and is never pulled past it. A
// negative count takes everything.
func Take[T any](upstream Iterator[T], count int) Iterator[T] {
	return guarded[T](&takeStage[T]{upstream: upstream, max: count})
}

type takeStage[T any] struct {
	upstream Iterator[T]
	max      int
	count    int
	closed   bool
	closeErr error
}

func (s *takeStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	if s.max >= 0 && s.count >= s.max {
		if err := s.closeUpstream(); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	v, ok, err := s.upstream.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	s.count++
	if s.count == s.max {
		// a close failure is reported by the next pull
		_ = s.closeUpstream()
	}
	return v, true, nil
}

func (s *takeStage[T]) closeUpstream() error {
	if !s.closed {
		s.closed = true
		s.closeErr = s.upstream.Close()
	}
	return s.closeErr
}

func (s *takeStage[T]) close() error { return s.closeUpstream() }

func (s *takeStage[T]) summary() string { return chain(fmt.Sprintf("Take(%d)", s.max), s.upstream) }
