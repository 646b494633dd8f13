package iterator_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/dataset/iterator"
)

// tracked is an upstream recording how it is used.
type tracked[T any] struct {
	items  []T
	fail   map[int]error // pull index -> error, consumed once
	pulls  atomic.Int32
	closed atomic.Int32
	index  int
}

func track[T any](items ...T) *tracked[T] {
	return &tracked[T]{items: items, fail: map[int]error{}}
}

func (t *tracked[T]) Next(context.Context) (T, bool, error) {
	pull := int(t.pulls.Add(1)) - 1
	var zero T
	if err, ok := t.fail[pull]; ok {
		delete(t.fail, pull)
		return zero, false, err
	}
	if t.index >= len(t.items) {
		return zero, false, nil
	}
	v := t.items[t.index]
	t.index++
	return v, true, nil
}

func (t *tracked[T]) Close() error {
	t.closed.Add(1)
	return nil
}

func (t *tracked[T]) Summary() string { return "Tracked" }

// payload counts its releases.
type payload struct {
	id       int
	released *atomic.Int32
}

func (p *payload) Release() { p.released.Add(1) }

func payloads(n int, released *atomic.Int32) []*payload {
	result := make([]*payload, n)
	for i := range result {
		result[i] = &payload{id: i, released: released}
	}
	return result
}

func collect[T any](t testing.TB, it iterator.Iterator[T]) []T {
	values, err := iterator.ToSlice(context.Background(), it)
	td.Require(t).CmpNoError(err)
	return values
}

func batch[T any](t testing.TB, upstream iterator.Iterator[T], size int, allowSmallLast bool) iterator.Iterator[[]T] {
	it, err := iterator.Batch(upstream, size, allowSmallLast)
	td.Require(t).CmpNoError(err)
	return it
}

func columns(t testing.TB, upstream iterator.Iterator[any], size int, allowSmallLast bool) iterator.Iterator[any] {
	it, err := iterator.ColumnMajorBatch(upstream, size, allowSmallLast)
	td.Require(t).CmpNoError(err)
	return it
}
