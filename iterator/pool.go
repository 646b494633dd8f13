package iterator

import (
	"context"

	"github.com/panjf2000/ants/v2"
)

// Pool runs the pulls that Prefetch, Shuffle, ParallelMap and Zip issue ahead of demand.
//
// A Pool never blocks a submitter: when all its workers are busy, the task runs in a new
// goroutine instead. Pulls issued ahead of demand may themselves wait on upstream pulls issued
// from the same pool, so blocking there could deadlock nested stages.
type Pool struct {
	pool *ants.Pool
}

// NewPool builds a pool of size reusable workers. A size <= 0 means an unbounded pool.
func NewPool(size int, opts ...ants.Option) (*Pool, error) {
	pool, err := ants.NewPool(size, append(opts, ants.WithNonblocking(true))...)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// Release releases the underlying workers. Tasks submitted afterward run in their own goroutine.
func (p *Pool) Release() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Release()
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	if p == nil || p.pool == nil {
		return 0
	}
	return p.pool.Running()
}

// submit runs f on a worker, or in its own goroutine if there is no pool or no free worker.
func (p *Pool) submit(f func()) {
	if p == nil || p.pool == nil {
		go f()
		return
	}
	if err := p.pool.Submit(f); err != nil {
		go f() // pool overloaded or released
	}
}

type poolKey struct{}

// WithPool returns a context whose stages run their background pulls on p.
func WithPool(ctx context.Context, p *Pool) context.Context {
	return context.WithValue(ctx, poolKey{}, p)
}

// PoolFrom returns the pool attached to ctx, or nil.
func PoolFrom(ctx context.Context) *Pool {
	p, _ := ctx.Value(poolKey{}).(*Pool)
	return p
}
