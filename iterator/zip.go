package iterator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/fogfactory/dataset/deep"
)

// ZipMismatchMode tells Zip what to do when its streams have different lengths.
type ZipMismatchMode int

const (
	// ZipFail fails as soon as one stream ends before the others.
	ZipFail ZipMismatchMode = iota
	// ZipShortest ends as soon as one stream ends.
	ZipShortest
	// ZipLongest goes on until every stream ended, using nil for the ended ones.
	ZipLongest
)

func (m ZipMismatchMode) String() string {
	switch m {
	case ZipFail:
		return "fail"
	case ZipShortest:
		return "shortest"
	case ZipLongest:
		return "longest"
	}
	return fmt.Sprintf("ZipMismatchMode(%d)", int(m))
}

// Zip pulls from every iterator found in structure, a tree of []any and
// map[string]any whose leaves are Iterator[any], and yields trees of the same
// shape holding one value of each iterator. The leaves are pulled concurrently.
func Zip(structure any, mode ZipMismatchMode) (Iterator[any], error) {
	var leaves []Iterator[any]
	_, err := deep.Map(structure, func(node any) (deep.Result, error) {
		if it, ok := node.(Iterator[any]); ok {
			leaves = append(leaves, it)
			return deep.Result{Value: it}, nil
		}
		if deep.IsContainer(node) {
			return deep.Result{Recurse: true}, nil
		}
		return deep.Result{}, fmt.Errorf("%w: zip leaves must be iterators, not %T", ErrInvalidArgument, node)
	})
	if err != nil {
		return nil, err
	}
	return guarded[any](&zipStage{structure: structure, mode: mode, leaves: lo.Uniq(leaves)}), nil
}

type zipStage struct {
	structure any
	mode      ZipMismatchMode
	leaves    []Iterator[any]
	count     int
}

// zipPull is a pending pull of one zipped iterator.
type zipPull struct {
	result    *future[any]
	exhausted *atomic.Int32
	counted   sync.Once
}

func (p *zipPull) Await(ctx context.Context) (any, error) {
	v, ok, err := p.result.wait(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.counted.Do(func() { p.exhausted.Add(1) })
		return nil, nil
	}
	return v, nil
}

func (s *zipStage) advance(ctx context.Context) (any, bool, error) {
	var (
		mu               sync.Mutex
		pulls            []*future[any]
		total, exhausted atomic.Int32
	)
	pool := PoolFrom(ctx)
	zipped, err := deep.MapAsync(ctx, s.structure, func(node any) (deep.Result, error) {
		if it, ok := node.(Iterator[any]); ok {
			total.Add(1)
			f := newFuture[any]()
			mu.Lock()
			pulls = append(pulls, f)
			mu.Unlock()
			pool.submit(func() { f.resolve(it.Next(ctx)) })
			return deep.Result{Value: &zipPull{result: f, exhausted: &exhausted}}, nil
		}
		return deep.Result{Recurse: true}, nil
	})
	if err != nil {
		releasePulled(pulls)
		return nil, false, err
	}
	if total.Load() == exhausted.Load() {
		return nil, false, nil
	}
	if exhausted.Load() > 0 {
		switch s.mode {
		case ZipFail:
			releasePulled(pulls)
			return nil, false, fmt.Errorf("%w: mismatched at element %d", ErrZipLengthMismatch, s.count)
		case ZipShortest:
			releasePulled(pulls)
			return nil, false, nil
		}
	}
	s.count++
	return zipped, true, nil
}

// releasePulled waits for every pull of a dropped round and frees the values they produced.
func releasePulled(pulls []*future[any]) {
	for _, f := range pulls {
		<-f.ready
		if f.ok {
			release(f.value)
		}
	}
}

func (s *zipStage) close() error {
	errs := lo.Map(s.leaves, func(it Iterator[any], _ int) error { return it.Close() })
	return errors.Join(errs...)
}

func (s *zipStage) summary() string { return fmt.Sprintf("Zip(%d streams)", len(s.leaves)) }
