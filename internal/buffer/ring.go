// Package buffer provides the fixed-capacity ring buffers backing
// per-instrument rolling state.
package buffer

// Ring is a bounded FIFO over a fixed backing array. Once full, each push
// evicts the oldest element, so insertion order always equals chronological
// order and length never exceeds capacity.
type Ring[T any] struct {
	buf  []T
	head int // index of oldest element
	size int
}

// NewRing allocates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Len reports the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap reports the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th element in chronological order (0 = oldest).
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

// Latest returns the newest element and false when empty.
func (r *Ring[T]) Latest() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.At(r.size - 1), true
}

// Values copies out all elements oldest-first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Tail copies out the newest n elements oldest-first. When fewer than n are
// stored, all of them are returned.
func (r *Ring[T]) Tail(n int) []T {
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.size - n + i)
	}
	return out
}

// Reset drops all elements, keeping the backing array.
func (r *Ring[T]) Reset() {
	r.head = 0
	r.size = 0
}
