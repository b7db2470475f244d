package mpmcring

import (
	"sync/atomic"

	"github.com/lfring/ringbench/internal/ringutil"
)

// cell is one slot in the ring buffer. The sequence number encodes which
// lap of the ring the slot is ready for: a producer may write when
// sequence == pos, a consumer may read when sequence == pos+1, and after a
// read the sequence jumps ahead by a full capacity so the slot becomes
// writable again on the next lap. Padding before and after keeps adjacent
// cells from sharing a cache line.
type cell[T any] struct {
	_pad0    [8]uint64
	sequence uint64
	value    T
	_pad1    [8]uint64
}

// MPMCQueue is a bounded, lock-free multi-producer/multi-consumer ring
// queue (Vyukov's bounded MPMC design). Any number of goroutines may call
// Push and Pop concurrently. The CAS on the shared position counters
// arbitrates which goroutine claims each ring slot; the per-cell sequence
// number arbitrates whether the slot is currently writable or readable.
//
// All successfully popped values are exactly the multiset of pushed
// values. Ordering is FIFO per producer but not global across producers.
type MPMCQueue[T any] struct {
	_pad0      [8]uint64
	buffer     []cell[T]
	mask       uint64 // capacity - 1
	capacity   uint64
	_pad1      [8]uint64
	enqueuePos uint64
	_pad2      [8]uint64
	dequeuePos uint64
	_pad3      [8]uint64
}

// New creates an MPMCQueue holding up to capacity elements.
// capacity must be a power of two and >= 2; anything else panics.
func New[T any](capacity uint64) *MPMCQueue[T] {
	ringutil.MustPow2(capacity)
	q := &MPMCQueue[T]{
		buffer:   make([]cell[T], capacity),
		mask:     capacity - 1,
		capacity: capacity,
	}
	for i := uint64(0); i < capacity; i++ {
		q.buffer[i].sequence = i
	}
	return q
}

// Push appends val to the queue. Returns false if the queue is full.
// Never blocks: a lost CAS race is retried internally (bounded in practice
// by the number of concurrent pushers), but a genuinely full queue fails
// immediately and the caller chooses its own retry policy.
func (q *MPMCQueue[T]) Push(val T) bool {
	pos := atomic.LoadUint64(&q.enqueuePos)
	for {
		c := &q.buffer[pos&q.mask]
		seq := atomic.LoadUint64(&c.sequence)
		diff := int64(seq) - int64(pos)
		if diff == 0 {
			// Slot is free for this lap; try to claim the position.
			if atomic.CompareAndSwapUint64(&q.enqueuePos, pos, pos+1) {
				c.value = val
				// Publish: consumers wait for sequence == pos+1.
				atomic.StoreUint64(&c.sequence, pos+1)
				return true
			}
			pos = atomic.LoadUint64(&q.enqueuePos)
		} else if diff < 0 {
			// The slot still holds a value from the previous lap.
			return false
		} else {
			// Another producer claimed this position; catch up and retry.
			pos = atomic.LoadUint64(&q.enqueuePos)
		}
	}
}

// Pop removes and returns the oldest claimable element.
// Returns (zero, false) if the queue is empty.
func (q *MPMCQueue[T]) Pop() (T, bool) {
	var zero T
	pos := atomic.LoadUint64(&q.dequeuePos)
	for {
		c := &q.buffer[pos&q.mask]
		seq := atomic.LoadUint64(&c.sequence)
		diff := int64(seq) - int64(pos+1)
		if diff == 0 {
			if atomic.CompareAndSwapUint64(&q.dequeuePos, pos, pos+1) {
				val := c.value
				c.value = zero // release the slot's reference for the GC
				// The slot becomes writable again one full lap ahead.
				atomic.StoreUint64(&c.sequence, pos+q.capacity)
				return val, true
			}
			pos = atomic.LoadUint64(&q.dequeuePos)
		} else if diff < 0 {
			return zero, false
		} else {
			pos = atomic.LoadUint64(&q.dequeuePos)
		}
	}
}

// Len returns an approximate element count. The two counters are read
// independently, so the result may be stale or transiently inconsistent
// under concurrent access; use it for heuristics only.
func (q *MPMCQueue[T]) Len() uint64 {
	enq := atomic.LoadUint64(&q.enqueuePos)
	deq := atomic.LoadUint64(&q.dequeuePos)
	if enq < deq {
		return 0
	}
	return enq - deq
}

// Empty reports whether the queue appears empty. Approximate, like Len.
func (q *MPMCQueue[T]) Empty() bool {
	return q.Len() == 0
}

// Cap returns the capacity.
func (q *MPMCQueue[T]) Cap() uint64 {
	return q.capacity
}
