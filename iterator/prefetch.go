package iterator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fogfactory/dataset/ringbuf"
)

// Prefetch keeps bufferSize upstream pulls in flight. Values are returned in
// upstream order whatever the order in which the pulls complete.
func Prefetch[T any](upstream Iterator[T], bufferSize int) (Iterator[T], error) {
	p, err := newPrefetcher(upstream, bufferSize)
	if err != nil {
		return nil, err
	}
	return guarded[T](&prefetchStage[T]{prefetcher: p}), nil
}

// prefetcher owns the ring of pending pulls shared by Prefetch and Shuffle.
type prefetcher[T any] struct {
	upstream Iterator[T]
	buffer   *ringbuf.Ring[*future[T]]
	last     *future[T]
	bg       background
	inflight sync.WaitGroup
}

func newPrefetcher[T any](upstream Iterator[T], bufferSize int) (*prefetcher[T], error) {
	buffer, err := ringbuf.New[*future[T]](bufferSize)
	if err != nil {
		return nil, fmt.Errorf("%w: prefetch buffer: %w", ErrInvalidArgument, err)
	}
	return &prefetcher[T]{upstream: upstream, buffer: buffer}, nil
}

// refill issues pulls until the buffer is full.
func (p *prefetcher[T]) refill() {
	for !p.buffer.IsFull() {
		_ = p.buffer.Push(p.pull())
	}
}

// pull issues one upstream pull. It starts once the previous one completed,
// so that pulls reach the upstream in issue order.
func (p *prefetcher[T]) pull() *future[T] {
	f := newFuture[T]()
	prev := p.last
	p.last = f
	ctx := p.bg.ctx
	p.inflight.Add(1)
	p.bg.pool.submit(func() {
		defer p.inflight.Done()
		if prev != nil {
			select {
			case <-prev.ready:
			case <-ctx.Done():
				var zero T
				f.resolve(zero, false, ctx.Err())
				return
			}
		}
		f.resolve(p.upstream.Next(ctx))
	})
	return f
}

// stop cancels the pending pulls, waits for them and releases the values
// they produced.
func (p *prefetcher[T]) stop(ctx context.Context) error {
	if p.bg.ctx != nil {
		p.bg.stop()
		p.inflight.Wait()
		zerolog.Ctx(ctx).Debug().Int("pending", p.buffer.Len()).Msg("prefetch stopped")
	}
	for !p.buffer.IsEmpty() {
		f, _ := p.buffer.Shift()
		if f.ok {
			release(f.value)
		}
	}
	return p.upstream.Close()
}

type prefetchStage[T any] struct {
	*prefetcher[T]
	exhausted bool
}

func (s *prefetchStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	if s.exhausted {
		return zero, false, nil
	}
	s.bg.start(ctx)
	s.refill()
	f, err := s.buffer.Shift()
	if err != nil {
		return zero, false, err
	}
	v, ok, err := f.wait(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// the pull is still ours: hand it out on the next call
			_ = s.buffer.Unshift(f)
		}
		return zero, false, err
	}
	if !ok {
		s.exhausted = true
	}
	return v, ok, nil
}

func (s *prefetchStage[T]) close() error { return s.stop(s.bg.ctx) }

func (s *prefetchStage[T]) summary() string {
	return chain(fmt.Sprintf("Prefetch(%d)", s.buffer.Cap()), s.upstream)
}
