package deep

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Awaitable is a leaf value which is not available yet.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

type slot struct {
	pending Awaitable
	set     func(any)
}

// MapAsync is Map for functions producing Awaitable leaves. The structural
// walk completes first, then every Awaitable of the output is awaited
// concurrently and replaced by its value. The first failure cancels the
// context handed to the remaining Await calls and is returned.
func MapAsync(ctx context.Context, input any, fn Func) (any, error) {
	w := newWalker(fn)
	out, err := w.walk(input)
	if err != nil {
		return nil, err
	}

	var slots []slot
	if pending, ok := out.(Awaitable); ok {
		slots = append(slots, slot{pending: pending, set: func(v any) { out = v }})
	} else {
		w.collect(out, &slots, make(map[any]struct{}))
	}
	if len(slots) == 0 {
		return out, nil
	}

	values := make([]any, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		g.Go(func() error {
			v, err := s.pending.Await(gctx)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, s := range slots {
		s.set(values[i])
	}
	return out, nil
}

// collect gathers the Awaitable leaves of the containers built by the walk.
// Containers returned as-is by the map function are left untouched.
func (w *walker) collect(node any, slots *[]slot, visited map[any]struct{}) {
	key, ok := keyOf(node)
	if !ok {
		return
	}
	if _, built := w.built[key]; !built {
		return
	}
	if _, done := visited[key]; done {
		return
	}
	visited[key] = struct{}{}

	switch container := node.(type) {
	case []any:
		for i, child := range container {
			if pending, ok := child.(Awaitable); ok {
				*slots = append(*slots, slot{pending: pending, set: func(v any) { container[i] = v }})
				continue
			}
			w.collect(child, slots, visited)
		}
	case map[string]any:
		for k, child := range container {
			if pending, ok := child.(Awaitable); ok {
				*slots = append(*slots, slot{pending: pending, set: func(v any) { container[k] = v }})
				continue
			}
			w.collect(child, slots, visited)
		}
	}
}
