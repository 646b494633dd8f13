package iterator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrZipLengthMismatch = errors.New("zipped streams should have the same length")
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. It returns (zero, false, nil) once the
	// stream is exhausted, and keeps doing so on every later call.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the iterator and its upstream iterators. Close must not
	// be called while a Next call is in progress.
	Close() error
	// Summary describes the chain of stages, outermost first.
	Summary() string
}

// Releaser is implemented by values holding resources which must be freed
// when a stage drops them instead of forwarding them downstream.
type Releaser interface {
	Release()
}

// StreamError reports a failure of a user supplied function inside a stage.
type StreamError struct {
	Stage string
	Err   error
}

func (e *StreamError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StreamError) Unwrap() error { return e.Err }

// stage is the behaviour of a single pipeline step. It is always driven
// through a guard, so advance is never called concurrently.
type stage[T any] interface {
	advance(ctx context.Context) (T, bool, error)
	close() error
	summary() string
}

// guard serializes the calls to a stage, latches the exhausted state and
// makes Close idempotent.
type guard[T any] struct {
	stage     stage[T]
	lock      chan struct{}
	done      bool
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func guarded[T any](s stage[T]) *guard[T] {
	return &guard[T]{stage: s, lock: make(chan struct{}, 1)}
}

func (g *guard[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case g.lock <- struct{}{}:
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
	defer func() { <-g.lock }()

	if g.done || g.closed {
		return zero, false, nil
	}
	v, ok, err := g.stage.advance(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		g.done = true
		return zero, false, nil
	}
	return v, true, nil
}

func (g *guard[T]) Close() error {
	g.closeOnce.Do(func() {
		g.lock <- struct{}{}
		defer func() { <-g.lock }()
		g.closed = true
		g.closeErr = g.stage.close()
	})
	return g.closeErr
}

func (g *guard[T]) Summary() string { return g.stage.summary() }

// release frees v if it holds resources.
func release(v any) {
	if r, ok := v.(Releaser); ok {
		r.Release()
	}
}

// releaseUnlessForwarded frees in unless it is the very value sent downstream.
func releaseUnlessForwarded(in, out any) {
	r, ok := in.(Releaser)
	if !ok {
		return
	}
	if sameValue(in, out) {
		return
	}
	r.Release()
}

func sameValue(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() || ra.Type() != rb.Type() {
		return false
	}
	if !ra.Comparable() || !rb.Comparable() {
		return false
	}
	return a == b
}

func chain(name string, upstream interface{ Summary() string }) string {
	return name + " -> " + upstream.Summary()
}
