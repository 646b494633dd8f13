package ringbuf

// InitialCapacity is the capacity of a freshly created Growing buffer.
const InitialCapacity = 32

// Growing is a Ring which doubles its capacity instead of failing when full.
type Growing[T any] struct {
	Ring[T]
}

// NewGrowing creates an empty Growing buffer.
func NewGrowing[T any]() *Growing[T] {
	return &Growing[T]{Ring: Ring[T]{
		data:            make([]T, InitialCapacity),
		capacity:        InitialCapacity,
		doubledCapacity: 2 * InitialCapacity,
	}}
}

// IsFull is always false: a Growing buffer never refuses an element.
func (g *Growing[T]) IsFull() bool { return false }

// Push adds value at the end, growing the buffer if needed.
func (g *Growing[T]) Push(value T) error {
	if g.Ring.IsFull() {
		g.expand()
	}
	return g.Ring.Push(value)
}

// PushAll pushes every value in order.
func (g *Growing[T]) PushAll(values ...T) error {
	for _, v := range values {
		if err := g.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Unshift adds value at the front, growing the buffer if needed.
func (g *Growing[T]) Unshift(value T) error {
	if g.Ring.IsFull() {
		g.expand()
	}
	return g.Ring.Unshift(value)
}

// expand doubles the capacity and lays the elements out from slot 0 in
// logical order.
func (g *Growing[T]) expand() {
	length := g.Len()
	data := make([]T, g.capacity*2)
	for i := 0; i < length; i++ {
		data[i] = g.data[g.wrap(g.begin+i)%g.capacity]
	}
	g.data = data
	g.capacity *= 2
	g.doubledCapacity = 2 * g.capacity
	g.begin = 0
	g.end = length
}
