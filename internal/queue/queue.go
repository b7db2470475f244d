package queue

// Ring is a *type constraint* describing the shared contract of the bounded
// ring queues in this repository. It is never stored in a runtime
// interface value; it only pins method signatures at compile time so the
// test harness and benchmark driver work against every implementation.
type Ring[T any] interface {
	// Push adds an element without blocking.
	// Returns false when the queue is full; the caller decides whether to
	// spin, yield, or drop.
	Push(T) bool

	// Pop removes and returns the oldest visible element without blocking.
	// Returns (zero, false) when the queue is empty.
	Pop() (T, bool)

	// Len returns an approximate count of queued elements. The value may
	// be stale the moment it returns under concurrent access.
	Len() uint64

	// Cap returns the number of elements the queue can hold.
	Cap() uint64

	// Empty reports whether the queue appears empty. Approximate, like Len.
	Empty() bool
}
