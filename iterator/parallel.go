package iterator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fogfactory/dataset/ringbuf"
)

// ParallelMap is MapAsync with up to parallelism transforms running at the
// same time on the context's Pool. Upstream pulls stay sequential and the
// results keep the upstream order.
func ParallelMap[I, O any](upstream Iterator[I], parallelism int, fn func(context.Context, I) (O, error)) (Iterator[O], error) {
	buffer, err := ringbuf.New[*future[O]](parallelism)
	if err != nil {
		return nil, fmt.Errorf("%w: parallelism: %w", ErrInvalidArgument, err)
	}
	return guarded[O](&parallelMapStage[I, O]{upstream: upstream, fn: fn, buffer: buffer}), nil
}

type parallelMapStage[I, O any] struct {
	upstream  Iterator[I]
	fn        func(context.Context, I) (O, error)
	buffer    *ringbuf.Ring[*future[O]]
	lastPull  chan struct{}
	bg        background
	inflight  sync.WaitGroup
	exhausted bool
}

func (s *parallelMapStage[I, O]) submit() *future[O] {
	f := newFuture[O]()
	prevPull := s.lastPull
	pulled := make(chan struct{})
	s.lastPull = pulled
	ctx := s.bg.ctx
	s.inflight.Add(1)
	s.bg.pool.submit(func() {
		defer s.inflight.Done()
		var zero O
		if prevPull != nil {
			select {
			case <-prevPull:
			case <-ctx.Done():
				close(pulled)
				f.resolve(zero, false, ctx.Err())
				return
			}
		}
		in, ok, err := s.upstream.Next(ctx)
		close(pulled)
		if err != nil || !ok {
			f.resolve(zero, false, err)
			return
		}
		out, err := s.fn(ctx, in)
		if err != nil {
			release(in)
			f.resolve(zero, false, &StreamError{Stage: "ParallelMap", Err: err})
			return
		}
		releaseUnlessForwarded(in, out)
		f.resolve(out, true, nil)
	})
	return f
}

func (s *parallelMapStage[I, O]) advance(ctx context.Context) (O, bool, error) {
	var zero O
	if s.exhausted {
		return zero, false, nil
	}
	s.bg.start(ctx)
	for !s.buffer.IsFull() {
		_ = s.buffer.Push(s.submit())
	}
	f, err := s.buffer.Shift()
	if err != nil {
		return zero, false, err
	}
	v, ok, err := f.wait(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			_ = s.buffer.Unshift(f)
		}
		return zero, false, err
	}
	if !ok {
		s.exhausted = true
	}
	return v, ok, nil
}

func (s *parallelMapStage[I, O]) close() error {
	s.bg.stop()
	s.inflight.Wait()
	for !s.buffer.IsEmpty() {
		f, _ := s.buffer.Shift()
		if f.ok {
			release(f.value)
		}
	}
	return s.upstream.Close()
}

func (s *parallelMapStage[I, O]) summary() string {
	return chain(fmt.Sprintf("ParallelMap(%d)", s.buffer.Cap()), s.upstream)
}
