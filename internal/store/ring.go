package store

// ring is a bounded append-only buffer. Once full, each append evicts
// the oldest item. Not safe for concurrent use.
type ring[T any] struct {
	items []T
	start int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

// push appends v. When the ring is full it returns the evicted item and
// true.
func (r *ring[T]) push(v T) (evicted T, ok bool) {
	if len(r.items) == 0 {
		return v, true
	}
	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return evicted, false
	}
	evicted = r.items[r.start]
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
	return evicted, true
}

func (r *ring[T]) len() int {
	return r.size
}

// at returns the i-th item counting from the oldest.
func (r *ring[T]) at(i int) T {
	return r.items[(r.start+i)%len(r.items)]
}
