package dataset

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/fogfactory/dataset/iterator"
	"github.com/fogfactory/dataset/source"
)

var (
	ErrInvalidArgument = iterator.ErrInvalidArgument
	ErrInfiniteDataset = errors.New("cannot collect an infinite dataset")
)

// Builder builds a new iterator over the elements of a dataset.
type Builder[T any] func(ctx context.Context) (iterator.Iterator[T], error)

// Dataset is an immutable description of a pipeline. Every call to Iterator
// runs the pipeline again from its source.
type Dataset[T any] struct {
	build Builder[T]
	size  Cardinality
}

// FromIteratorFunc creates a dataset of size elements whose iterators are built by fn.
func FromIteratorFunc[T any](fn Builder[T], size Cardinality) *Dataset[T] {
	return &Dataset[T]{build: fn, size: size}
}

// invalid creates a dataset failing to build with an ErrInvalidArgument error.
func invalid[T any](format string, args ...any) *Dataset[T] {
	err := fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) { return nil, err }, Unknown)
}

// derive creates a dataset of size elements wrapping the iterators of d.
func derive[I, O any](d *Dataset[I], size Cardinality, wrap func(ctx context.Context, upstream iterator.Iterator[I]) (iterator.Iterator[O], error)) *Dataset[O] {
	return FromIteratorFunc(func(ctx context.Context) (iterator.Iterator[O], error) {
		upstream, err := d.build(ctx)
		if err != nil {
			return nil, err
		}
		it, err := wrap(ctx, upstream)
		if err != nil {
			return nil, errors.Join(err, upstream.Close())
		}
		return it, nil
	}, size)
}

// FromSlice creates a dataset of the items, in order.
func FromSlice[T any](items []T) *Dataset[T] {
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) {
		return iterator.FromItems(items), nil
	}, Cardinality(len(items)))
}

// FromSeq creates a dataset of the values of seq. seq is ranged over again on every iteration.
func FromSeq[T any](seq iter.Seq[T]) *Dataset[T] {
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) {
		return iterator.FromSeq(seq), nil
	}, Unknown)
}

// FromFunc creates a dataset of the values returned by fn, until it reports
// the end. Every iteration shares fn and whatever state it holds.
func FromFunc[T any](fn func(ctx context.Context) (T, bool, error)) *Dataset[T] {
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[T], error) {
		return iterator.FromFunc(fn), nil
	}, Unknown)
}

// FromSource creates a dataset of the byte chunks of src.
func FromSource(src source.DataSource) *Dataset[[]byte] {
	size := Unknown
	if sized, ok := src.(source.Sized); ok {
		size = Cardinality(sized.Chunks())
	}
	return FromIteratorFunc(src.Iterator, size)
}

// Range creates a dataset of the integers in [start, end).
func Range(start, end int) *Dataset[int] {
	n := max(0, end-start)
	return FromIteratorFunc(func(context.Context) (iterator.Iterator[int], error) {
		return iterator.Take(iterator.Incrementing(start), n), nil
	}, Cardinality(n))
}

// Size returns the number of elements of the dataset.
func (d *Dataset[T]) Size() Cardinality { return d.size }

// Iterator starts a new iteration over the dataset.
func (d *Dataset[T]) Iterator(ctx context.Context) (iterator.Iterator[T], error) {
	it, err := d.build(ctx)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Stringer("size", d.size).
		Func(func(e *zerolog.Event) { e.Str("pipeline", it.Summary()) }).
		Msg("dataset iteration started")
	return it, nil
}

// ToSlice collects every element of the dataset.
func (d *Dataset[T]) ToSlice(ctx context.Context) ([]T, error) {
	if d.size == Infinite {
		return nil, ErrInfiniteDataset
	}
	it, err := d.Iterator(ctx)
	if err != nil {
		return nil, err
	}
	return iterator.ToSlice(ctx, it)
}

// ForEach calls fn with every element of the dataset, stopping at the first error.
func (d *Dataset[T]) ForEach(ctx context.Context, fn func(T) error) error {
	it, err := d.Iterator(ctx)
	if err != nil {
		return err
	}
	return iterator.ForEach(ctx, it, fn)
}

// Summary describes the stages of the pipeline, outermost first. It builds
// an iterator without pulling from it.
func (d *Dataset[T]) Summary(ctx context.Context) (string, error) {
	it, err := d.build(ctx)
	if err != nil {
		return "", err
	}
	summary := it.Summary()
	return summary, it.Close()
}
