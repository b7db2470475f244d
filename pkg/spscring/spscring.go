package spscring

import (
	"sync/atomic"

	"github.com/lfring/ringbench/internal/ringutil"
)

// SPSCQueue is a bounded, wait-free single-producer/single-consumer ring
// queue. Exactly one goroutine may call Push and exactly one goroutine may
// call Pop; violating that discipline is undefined behavior and is not
// detected at runtime.
//
// The ring keeps one slot empty to distinguish full from empty, so a queue
// constructed with capacity N holds at most N-1 elements.
//
// Field layout groups each cursor with the cache of the opposite cursor
// owned by the same side, and pads the groups apart so the producer and
// consumer never write to the same cache line:
//
//   - consumer side: head (written by Pop) + cachedTail
//   - producer side: tail (written by Push) + cachedHead
//
// cachedHead/cachedTail are plain (non-atomic) fields; each is read and
// written only by its owning goroutine. They are refreshed from the real
// cursor only when the ring looks full/empty, which removes the cross-core
// cursor load from the common path.
type SPSCQueue[T any] struct {
	_pad0      [8]uint64
	head       uint64 // next slot to read; written only by the consumer
	cachedTail uint64 // consumer's stale view of tail
	_pad1      [8]uint64
	tail       uint64 // next slot to write; written only by the producer
	cachedHead uint64 // producer's stale view of head
	_pad2      [8]uint64
	buffer     []T
	mask       uint64
}

// New creates an SPSCQueue with the given slot count.
// capacity must be a power of two and >= 2; anything else panics.
// Usable capacity is capacity-1.
func New[T any](capacity uint64) *SPSCQueue[T] {
	ringutil.MustPow2(capacity)
	return &SPSCQueue[T]{
		buffer: make([]T, capacity),
		mask:   capacity - 1,
	}
}

// Push appends val to the queue. Returns false if the queue is full.
// Producer goroutine only. Never blocks; a full queue is an expected
// result, not an error, and the caller chooses its own retry policy.
func (q *SPSCQueue[T]) Push(val T) bool {
	tail := atomic.LoadUint64(&q.tail)
	next := (tail + 1) & q.mask
	if next == q.cachedHead {
		q.cachedHead = atomic.LoadUint64(&q.head)
		if next == q.cachedHead {
			return false
		}
	}
	q.buffer[tail] = val
	// The store of tail publishes the slot write above: Go's atomic store
	// has release semantics, pairing with the consumer's atomic load.
	atomic.StoreUint64(&q.tail, next)
	return true
}

// Pop removes and returns the oldest element. Returns (zero, false) if the
// queue is empty. Consumer goroutine only.
func (q *SPSCQueue[T]) Pop() (T, bool) {
	var zero T
	head := atomic.LoadUint64(&q.head)
	if head == q.cachedTail {
		q.cachedTail = atomic.LoadUint64(&q.tail)
		if head == q.cachedTail {
			return zero, false
		}
	}
	val := q.buffer[head]
	q.buffer[head] = zero // release the slot's reference for the GC
	atomic.StoreUint64(&q.head, (head+1)&q.mask)
	return val, true
}

// Len returns an approximate element count. Under concurrent access the
// value may be stale as soon as it returns; use it for heuristics only.
func (q *SPSCQueue[T]) Len() uint64 {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	return (tail - head) & q.mask
}

// Empty reports whether the queue appears empty. Approximate, like Len.
func (q *SPSCQueue[T]) Empty() bool {
	return atomic.LoadUint64(&q.head) == atomic.LoadUint64(&q.tail)
}

// Cap returns the usable capacity (one slot less than the ring size).
func (q *SPSCQueue[T]) Cap() uint64 {
	return q.mask
}
