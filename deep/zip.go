package deep

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// ZipFunc is applied to the values found at the same position in every
// zipped tree.
type ZipFunc func(values []any) (Result, error)

// Zip walks the shape of inputs[0] and calls fn with the values of every
// input at each position. Positions missing from an input yield nil.
func Zip(inputs []any, fn ZipFunc) (any, error) {
	z := &zipper{fn: fn, active: make(map[any]struct{})}
	return z.walk(inputs)
}

type zipper struct {
	fn     ZipFunc
	active map[any]struct{}
}

func (z *zipper) walk(inputs []any) (any, error) {
	var input any
	if len(inputs) > 0 {
		input = inputs[0]
	}
	key, keyed := keyOf(input)
	if keyed {
		if _, ok := z.active[key]; ok {
			return nil, fmt.Errorf("%w: %T", ErrCircularReference, input)
		}
	}

	res, err := z.fn(inputs)
	if err != nil {
		return nil, err
	}
	if res.Recurse && res.Value != nil {
		return nil, ErrValueAndRecurse
	}
	if !res.Recurse {
		return res.Value, nil
	}

	if keyed {
		z.active[key] = struct{}{}
		defer delete(z.active, key)
	}
	switch node := input.(type) {
	case []any:
		out := make([]any, len(node))
		for i := range node {
			children := lo.Map(inputs, func(x any, _ int) any {
				if s, ok := x.([]any); ok && i < len(s) {
					return s[i]
				}
				return nil
			})
			if out[i], err = z.walk(children); err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(node))
		for k := range node {
			children := lo.Map(inputs, func(x any, _ int) any {
				if m, ok := x.(map[string]any); ok {
					return m[k]
				}
				return nil
			})
			if out[k], err = z.walk(children); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedLeafType, input)
}

// ZipToList recurses into containers and turns every leaf position into the
// list of values found there.
func ZipToList(values []any) (Result, error) {
	if len(values) > 0 && IsContainer(values[0]) {
		return Result{Recurse: true}, nil
	}
	return Result{Value: slices.Clone(values)}, nil
}

// BatchConcat pivots a batch of rows sharing the same structure into one
// structure of columns: [{"x": 1}, {"x": 2}] becomes {"x": [1, 2]}.
func BatchConcat(rows []any) (any, error) {
	if len(rows) == 0 {
		return []any{}, nil
	}
	return Zip(rows, ZipToList)
}
