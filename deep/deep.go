// Package deep applies replace-or-recurse functions over nested trees.
//
// A tree is any value. The containers of a tree are []any and map[string]any;
// everything else is a leaf. []byte leaves are opaque blobs and are copied
// rather than handed to the map function.
//
// Map walks a single tree, Zip walks several trees of the same shape in
// lockstep. Both refuse cyclic containers.
package deep

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrCircularReference   = errors.New("circular references are not supported")
	ErrUnsupportedLeafType = errors.New("can't recurse into non-container value")
	ErrValueAndRecurse     = errors.New("a deep map function may not return both a value and recurse=true")
)

// Result is what a Func decides for a node: replace it with Value, or
// descend into it (Recurse) and rebuild a container of the same kind.
type Result struct {
	Value   any
	Recurse bool
}

// Func is applied to every node reached by Map.
type Func func(node any) (Result, error)

// IsContainer reports whether v is a container a walk can descend into.
func IsContainer(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

// identity is the memoization key of a reference value.
type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// keyOf returns the memoization key of v: the backing pointer of reference
// values, the value itself for comparable values.
func keyOf(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Pointer() == 0 {
			return nil, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Func:
		return nil, false
	}
	if rv.Comparable() {
		return v, true
	}
	return nil, false
}

type walker struct {
	fn     Func
	seen   map[any]any
	active map[any]struct{}
	built  map[any]struct{}
}

func newWalker(fn Func) *walker {
	return &walker{
		fn:     fn,
		seen:   make(map[any]any),
		active: make(map[any]struct{}),
		built:  make(map[any]struct{}),
	}
}

// Map returns a copy of input where every node has been processed by fn.
//
// Nodes are memoized by identity: a subtree shared by several parents is
// processed once and the result is shared the same way in the output.
func Map(input any, fn Func) (any, error) {
	return newWalker(fn).walk(input)
}

func (w *walker) walk(input any) (any, error) {
	if input == nil {
		return nil, nil
	}
	if blob, ok := input.([]byte); ok {
		return bytes.Clone(blob), nil
	}
	key, keyed := keyOf(input)
	if keyed {
		if _, ok := w.active[key]; ok {
			return nil, fmt.Errorf("%w: %T", ErrCircularReference, input)
		}
		if v, ok := w.seen[key]; ok {
			return v, nil
		}
	}

	res, err := w.fn(input)
	if err != nil {
		return nil, err
	}
	if res.Recurse && res.Value != nil {
		return nil, ErrValueAndRecurse
	}
	if !res.Recurse {
		if keyed {
			w.seen[key] = res.Value
		}
		return res.Value, nil
	}

	if keyed {
		w.active[key] = struct{}{}
		defer delete(w.active, key)
	}
	var out any
	switch node := input.(type) {
	case []any:
		mapped := make([]any, len(node))
		for i, child := range node {
			if mapped[i], err = w.walk(child); err != nil {
				return nil, err
			}
		}
		out = mapped
	case map[string]any:
		mapped := make(map[string]any, len(node))
		for k, child := range node {
			if mapped[k], err = w.walk(child); err != nil {
				return nil, err
			}
		}
		out = mapped
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedLeafType, input)
	}

	if keyed {
		w.seen[key] = out
	}
	if outKey, ok := keyOf(out); ok {
		w.built[outKey] = struct{}{}
	}
	return out, nil
}

// Clone deep copies the containers of input. Leaves are shared.
func Clone(input any) (any, error) {
	return Map(input, func(node any) (Result, error) {
		if IsContainer(node) {
			return Result{Recurse: true}, nil
		}
		return Result{Value: node}, nil
	})
}
