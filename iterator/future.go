package iterator

import "context"

// future holds the outcome of a pull running in the background.
type future[T any] struct {
	ready chan struct{}
	value T
	ok    bool
	err   error
}

func newFuture[T any]() *future[T] {
	return &future[T]{ready: make(chan struct{})}
}

func (f *future[T]) resolve(value T, ok bool, err error) {
	f.value, f.ok, f.err = value, ok, err
	close(f.ready)
}

// wait blocks until the pull completed or ctx is done.
func (f *future[T]) wait(ctx context.Context) (T, bool, error) {
	select {
	case <-f.ready:
		return f.value, f.ok, f.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// background is the lifetime of the pulls a stage issues ahead of demand. It keeps the values
// of the context of the first pull (logger, pool) but not its cancellation: the pulls are
// cancelled by Close.
type background struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   *Pool
}

func (b *background) start(ctx context.Context) {
	if b.ctx != nil {
		return
	}
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.pool = PoolFrom(ctx)
}

func (b *background) stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
