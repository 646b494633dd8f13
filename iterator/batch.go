package iterator

import (
	"context"
	"fmt"

	"github.com/fogfactory/dataset/deep"
)

// Batch groups batchSize consecutive values into a slice (row-major). When
// the upstream ends, the last partial batch is emitted only if
// allowSmallLast is set; otherwise its values are dropped.
//
// Values already batched are kept across a failed pull, so a retried stream
// loses nothing.
func Batch[T any](upstream Iterator[T], batchSize int, allowSmallLast bool) (Iterator[[]T], error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d (must be >= 1)", ErrInvalidArgument, batchSize)
	}
	return guarded[[]T](&batchStage[T]{upstream: upstream, size: batchSize, allowSmallLast: allowSmallLast}), nil
}

type batchStage[T any] struct {
	upstream       Iterator[T]
	size           int
	allowSmallLast bool
	batch          []T
}

func (s *batchStage[T]) advance(ctx context.Context) ([]T, bool, error) {
	if s.batch == nil {
		s.batch = make([]T, 0, s.size)
	}
	for len(s.batch) < s.size {
		v, ok, err := s.upstream.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if s.allowSmallLast && len(s.batch) > 0 {
				return s.flush(), true, nil
			}
			s.drop()
			return nil, false, nil
		}
		s.batch = append(s.batch, v)
	}
	return s.flush(), true, nil
}

// flush hands the current batch out; the next one gets its own backing array.
func (s *batchStage[T]) flush() []T {
	batch := s.batch
	s.batch = nil
	return batch
}

func (s *batchStage[T]) drop() {
	for _, v := range s.batch {
		release(v)
	}
	s.batch = nil
}

func (s *batchStage[T]) close() error {
	s.drop()
	return s.upstream.Close()
}

func (s *batchStage[T]) summary() string {
	return chain(fmt.Sprintf("Batch(%d)", s.size), s.upstream)
}

// ColumnMajorBatch batches values sharing the same structure and pivots each
// batch into a single structure of columns: rows {"x": 1}, {"x": 2} become
// {"x": [1, 2]}.
func ColumnMajorBatch(upstream Iterator[any], batchSize int, allowSmallLast bool) (Iterator[any], error) {
	rows, err := Batch(upstream, batchSize, allowSmallLast)
	if err != nil {
		return nil, err
	}
	return guarded[any](&mapStage[[]any, any]{
		name:     "ColumnMajorBatch",
		upstream: rows,
		fn: func(_ context.Context, batch []any) (any, error) {
			return deep.BatchConcat(batch)
		},
	}), nil
}
