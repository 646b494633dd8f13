package iterator

import (
	"context"
	"fmt"
	"iter"
)

// FromItems iterates over items in order.
func FromItems[T any](items []T) Iterator[T] {
	return guarded[T](&itemsStage[T]{items: items})
}

type itemsStage[T any] struct {
	items []T
	index int
}

func (s *itemsStage[T]) advance(context.Context) (T, bool, error) {
	if s.index >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	v := s.items[s.index]
	s.index++
	return v, true, nil
}

func (s *itemsStage[T]) close() error { return nil }

func (s *itemsStage[T]) summary() string { return fmt.Sprintf("Array of %d items", len(s.items)) }

// FromFunc calls fn on every pull. fn reports the end of the stream by returning false.
func FromFunc[T any](fn func(ctx context.Context) (T, bool, error)) Iterator[T] {
	return guarded[T](&funcStage[T]{fn: fn})
}

type funcStage[T any] struct {
	fn func(ctx context.Context) (T, bool, error)
}

func (s *funcStage[T]) advance(ctx context.Context) (T, bool, error) { return s.fn(ctx) }

func (s *funcStage[T]) close() error { return nil }

func (s *funcStage[T]) summary() string { return "Function call" }

// Incrementing counts up from start, forever.
func Incrementing(start int) Iterator[int] {
	next := start
	return guarded[int](&funcStage[int]{fn: func(context.Context) (int, bool, error) {
		v := next
		next++
		return v, true, nil
	}})
}

// FromSeq pulls the values of seq. Closing the iterator stops the sequence.
func FromSeq[T any](seq iter.Seq[T]) Iterator[T] {
	return guarded[T](&seqStage[T]{seq: seq})
}

type seqStage[T any] struct {
	seq  iter.Seq[T]
	next func() (T, bool)
	stop func()
}

func (s *seqStage[T]) advance(context.Context) (T, bool, error) {
	if s.next == nil {
		s.next, s.stop = iter.Pull(s.seq)
	}
	v, ok := s.next()
	return v, ok, nil
}

func (s *seqStage[T]) close() error {
	if s.stop != nil {
		s.stop()
	}
	return nil
}

func (s *seqStage[T]) summary() string { return "Sequence" }

// FromChannel reads ch until it is closed.
func FromChannel[T any](ch <-chan T) Iterator[T] {
	return guarded[T](&funcStage[T]{fn: func(ctx context.Context) (T, bool, error) {
		select {
		case v, ok := <-ch:
			return v, ok, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}})
}

// Failed returns an iterator whose every pull fails with err.
func Failed[T any](err error) Iterator[T] {
	return guarded[T](&funcStage[T]{fn: func(context.Context) (T, bool, error) {
		var zero T
		return zero, false, err
	}})
}
