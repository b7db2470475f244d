package buffered

// Queue wraps a buffered Go channel behind the same non-blocking Push/Pop
// contract as the ring queues. It exists as the baseline the benchmark
// driver measures the lock-free implementations against.
type Queue[T any] struct {
	ch chan T
}

// New creates a channel-backed queue with the given capacity.
// Unlike the ring queues, capacity does not need to be a power of two,
// but it is raised to at least 1: a zero-capacity Go channel is an
// unbuffered rendezvous primitive, not a zero-capacity buffer.
func New[T any](capacity uint64) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch: make(chan T, capacity),
	}
}

// Push appends val without blocking. Returns false if the buffer is full.
func (q *Queue[T]) Push(val T) bool {
	select {
	case q.ch <- val:
		return true
	default:
		return false
	}
}

// Pop removes and returns the oldest element without blocking.
// Returns (zero, false) if the buffer is empty.
func (q *Queue[T]) Pop() (T, bool) {
	select {
	case val := <-q.ch:
		return val, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the current element count.
func (q *Queue[T]) Len() uint64 {
	return uint64(len(q.ch))
}

// Empty reports whether the buffer is empty.
func (q *Queue[T]) Empty() bool {
	return len(q.ch) == 0
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() uint64 {
	return uint64(cap(q.ch))
}
