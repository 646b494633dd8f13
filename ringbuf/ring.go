// Package ringbuf implements the circular buffers backing the pipeline stages.
//
// A Ring has a fixed capacity. Its begin and end cursors range over
// [0, 2*capacity) so that a full buffer and an empty buffer, which both have
// physically equal slots, still have distinct cursor values.
//
// Besides the usual deque operations, a Ring supports ShuffleExcise: removing
// an element at an arbitrary logical position in O(1) by moving the last
// element into the vacated slot. This is what makes windowed shuffling cheap.
//
// A Ring is not safe for concurrent use. Each pipeline stage owns its buffers.
package ringbuf

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrInvalidCapacity = errors.New("invalid ring buffer capacity")
	ErrBufferFull      = errors.New("ring buffer is full")
	ErrBufferEmpty     = errors.New("ring buffer is empty")
	ErrInvalidIndex    = errors.New("invalid ring buffer index")
)

// Ring is a fixed capacity circular buffer.
type Ring[T any] struct {
	data            []T
	begin           int
	end             int
	capacity        int
	doubledCapacity int
}

// New creates a Ring able to hold capacity elements.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidCapacity, capacity)
	}
	return &Ring[T]{
		data:            make([]T, capacity),
		capacity:        capacity,
		doubledCapacity: 2 * capacity,
	}, nil
}

// wrap maps any cursor value into [0, doubledCapacity).
func (r *Ring[T]) wrap(index int) int {
	index %= r.doubledCapacity
	if index < 0 {
		index += r.doubledCapacity
	}
	return index
}

// Get returns the element stored in the physical slot index mod capacity.
func (r *Ring[T]) Get(index int) (T, error) {
	if index < 0 {
		var zero T
		return zero, fmt.Errorf("%w: can't get item at negative index %d", ErrInvalidIndex, index)
	}
	return r.data[index%r.capacity], nil
}

// Set stores value in the physical slot index mod capacity.
func (r *Ring[T]) Set(index int, value T) error {
	if index < 0 {
		return fmt.Errorf("%w: can't set item at negative index %d", ErrInvalidIndex, index)
	}
	r.data[index%r.capacity] = value
	return nil
}

// Len returns the number of elements in the buffer.
func (r *Ring[T]) Len() int {
	length := r.end - r.begin
	if length < 0 {
		length += r.doubledCapacity
	}
	return length
}

// Cap returns the current capacity.
func (r *Ring[T]) Cap() int { return r.capacity }

// IsFull reports whether Len equals Cap.
func (r *Ring[T]) IsFull() bool { return r.Len() == r.capacity }

// IsEmpty reports whether the buffer holds no element.
func (r *Ring[T]) IsEmpty() bool { return r.Len() == 0 }

// Push adds value at the end of the buffer.
func (r *Ring[T]) Push(value T) error {
	if r.IsFull() {
		return ErrBufferFull
	}
	r.data[r.end%r.capacity] = value
	r.end = r.wrap(r.end + 1)
	return nil
}

// PushAll pushes every value in order, stopping at the first failure.
func (r *Ring[T]) PushAll(values ...T) error {
	for _, v := range values {
		if err := r.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Pop removes and returns the last element.
func (r *Ring[T]) Pop() (T, error) {
	var zero T
	if r.IsEmpty() {
		return zero, ErrBufferEmpty
	}
	r.end = r.wrap(r.end - 1)
	slot := r.end % r.capacity
	result := r.data[slot]
	r.data[slot] = zero
	return result, nil
}

// Unshift adds value at the front of the buffer.
func (r *Ring[T]) Unshift(value T) error {
	if r.IsFull() {
		return ErrBufferFull
	}
	r.begin = r.wrap(r.begin - 1)
	r.data[r.begin%r.capacity] = value
	return nil
}

// Shift removes and returns the first element.
func (r *Ring[T]) Shift() (T, error) {
	var zero T
	if r.IsEmpty() {
		return zero, ErrBufferEmpty
	}
	slot := r.begin % r.capacity
	result := r.data[slot]
	r.data[slot] = zero
	r.begin = r.wrap(r.begin + 1)
	return result, nil
}

// ShuffleExcise removes the element at logical position relativeIndex and
// returns it. The last element is moved into the vacated slot, so the
// relative order of the remaining elements is not preserved.
func (r *Ring[T]) ShuffleExcise(relativeIndex int) (T, error) {
	var zero T
	if r.IsEmpty() {
		return zero, ErrBufferEmpty
	}
	length := r.Len()
	if relativeIndex < 0 || relativeIndex >= length {
		return zero, fmt.Errorf("%w: relative index %d out of [0, %d)", ErrInvalidIndex, relativeIndex, length)
	}
	if relativeIndex == length-1 {
		return r.Pop()
	}
	slot := r.wrap(r.begin+relativeIndex) % r.capacity
	result := r.data[slot]
	last, err := r.Pop()
	if err != nil {
		return zero, err
	}
	r.data[slot] = last
	return result, nil
}

// All iterates over the elements in logical order without removing them.
func (r *Ring[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		length := r.Len()
		for i := 0; i < length; i++ {
			if !yield(r.data[r.wrap(r.begin+i)%r.capacity]) {
				return
			}
		}
	}
}
