package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/fogfactory/dataset/deep"
	"github.com/fogfactory/dataset/iterator"
)

// Map transforms every element of d with fn.
func Map[I, O any](d *Dataset[I], fn func(I) (O, error)) *Dataset[O] {
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[I]) (iterator.Iterator[O], error) {
		return iterator.Map(upstream, fn), nil
	})
}

// MapAsync is Map for functions which block or need the context.
func MapAsync[I, O any](d *Dataset[I], fn func(context.Context, I) (O, error)) *Dataset[O] {
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[I]) (iterator.Iterator[O], error) {
		return iterator.MapAsync(upstream, fn), nil
	})
}

// ParallelMap is MapAsync running up to parallelism calls of fn at once, on
// the pool of the context. The order of the elements is kept.
func ParallelMap[I, O any](d *Dataset[I], parallelism int, fn func(context.Context, I) (O, error)) *Dataset[O] {
	if parallelism < 1 {
		return invalid[O]("parallelism %d (must be >= 1)", parallelism)
	}
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[I]) (iterator.Iterator[O], error) {
		return iterator.ParallelMap(upstream, parallelism, fn)
	})
}

// FlatMap replaces every element of d with the elements returned by fn.
func FlatMap[I, O any](d *Dataset[I], fn func(I) ([]O, error)) *Dataset[O] {
	return derive(d, Unknown, func(_ context.Context, upstream iterator.Iterator[I]) (iterator.Iterator[O], error) {
		return iterator.FlatMap(upstream, fn), nil
	})
}

// Batch groups batchSize consecutive elements. The last smaller batch is
// kept only if allowSmallLast is set.
func Batch[T any](d *Dataset[T], batchSize int, allowSmallLast bool) *Dataset[[]T] {
	if batchSize < 1 {
		return invalid[[]T]("batch size %d (must be >= 1)", batchSize)
	}
	return derive(d, batchCardinality(d.size, batchSize, allowSmallLast), func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[[]T], error) {
		return iterator.Batch(upstream, batchSize, allowSmallLast)
	})
}

// ColumnBatch batches elements sharing the same structure into a single
// structure of columns: {"x": 1} and {"x": 2} become {"x": [1, 2]}.
func ColumnBatch(d *Dataset[any], batchSize int, allowSmallLast bool) *Dataset[any] {
	if batchSize < 1 {
		return invalid[any]("batch size %d (must be >= 1)", batchSize)
	}
	return derive(d, batchCardinality(d.size, batchSize, allowSmallLast), func(_ context.Context, upstream iterator.Iterator[any]) (iterator.Iterator[any], error) {
		return iterator.ColumnMajorBatch(upstream, batchSize, allowSmallLast)
	})
}

// Erase turns d into a dataset of any, as expected by Zip and ColumnBatch.
func Erase[T any](d *Dataset[T]) *Dataset[any] {
	return derive(d, d.size, func(_ context.Context, upstream iterator.Iterator[T]) (iterator.Iterator[any], error) {
		return iterator.Erase(upstream), nil
	})
}

// Zip combines the datasets found in structure, a tree of []any and
// map[string]any whose leaves are *Dataset[any]. Each element has the shape of
// structure, holding one element of every dataset. The iteration ends with
// the shortest dataset.
func Zip(structure any) *Dataset[any] {
	return ZipWithMode(structure, iterator.ZipShortest)
}

// ZipWithMode is Zip with an explicit policy for datasets of different lengths.
func ZipWithMode(structure any, mode iterator.ZipMismatchMode) *Dataset[any] {
	var leaves []*Dataset[any]
	_, err := deep.Map(structure, func(node any) (deep.Result, error) {
		if d, ok := node.(*Dataset[any]); ok {
			leaves = append(leaves, d)
			return deep.Result{Value: d}, nil
		}
		if deep.IsContainer(node) {
			return deep.Result{Recurse: true}, nil
		}
		return deep.Result{}, fmt.Errorf("zip leaves must be datasets, not %T", node)
	})
	if err != nil {
		return invalid[any]("%w", err)
	}

	sizes := lo.Map(lo.Uniq(leaves), func(d *Dataset[any], _ int) Cardinality { return d.size })
	return FromIteratorFunc(func(ctx context.Context) (iterator.Iterator[any], error) {
		var built []iterator.Iterator[any]
		iterators, err := deep.Map(structure, func(node any) (deep.Result, error) {
			d, ok := node.(*Dataset[any])
			if !ok {
				return deep.Result{Recurse: true}, nil
			}
			it, err := d.build(ctx)
			if err != nil {
				return deep.Result{}, err
			}
			built = append(built, it)
			return deep.Result{Value: it}, nil
		})
		if err == nil {
			var it iterator.Iterator[any]
			if it, err = iterator.Zip(iterators, mode); err == nil {
				return it, nil
			}
		}
		errs := lo.Map(built, func(it iterator.Iterator[any], _ int) error { return it.Close() })
		return nil, errors.Join(append([]error{err}, errs...)...)
	}, zipCardinality(sizes, mode == iterator.ZipLongest))
}
