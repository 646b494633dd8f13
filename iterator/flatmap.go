package iterator

import (
	"context"

	"github.com/fogfactory/dataset/ringbuf"
)

// pump refills the queue from a single upstream pull. It returns false once
// the upstream is exhausted.
type pump[T any] func(ctx context.Context, queue *ringbuf.Growing[T]) (bool, error)

// queueStage is the one-to-many stage: it drains its queue before pumping again.
type queueStage[T any] struct {
	name     string
	upstream interface {
		Close() error
		Summary() string
	}
	queue *ringbuf.Growing[T]
	pump  pump[T]
}

func (s *queueStage[T]) advance(ctx context.Context) (T, bool, error) {
	for s.queue.IsEmpty() {
		more, err := s.pump(ctx, s.queue)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if !more {
			var zero T
			return zero, false, nil
		}
	}
	v, err := s.queue.Shift()
	return v, err == nil, err
}

func (s *queueStage[T]) close() error {
	for !s.queue.IsEmpty() {
		v, _ := s.queue.Shift()
		release(v)
	}
	return s.upstream.Close()
}

func (s *queueStage[T]) summary() string { return chain(s.name, s.upstream) }

// FlatMap expands every upstream value into zero or more values.
func FlatMap[I, O any](upstream Iterator[I], fn func(I) ([]O, error)) Iterator[O] {
	return guarded[O](&queueStage[O]{
		name:     "FlatMap",
		upstream: upstream,
		queue:    ringbuf.NewGrowing[O](),
		pump: func(ctx context.Context, queue *ringbuf.Growing[O]) (bool, error) {
			in, ok, err := upstream.Next(ctx)
			if err != nil || !ok {
				return false, err
			}
			out, err := fn(in)
			if err != nil {
				release(in)
				return false, &StreamError{Stage: "FlatMap", Err: err}
			}
			if _, ok := any(in).(Releaser); ok && !forwards(in, out) {
				release(in)
			}
			return true, queue.PushAll(out...)
		},
	})
}

// forwards reports whether in is one of the values of out.
func forwards[I, O any](in I, out []O) bool {
	for _, o := range out {
		if sameValue(in, o) {
			return true
		}
	}
	return false
}
