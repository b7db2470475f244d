package ringutil

// CacheLineSize is the assumed cache line width in bytes. 64 bytes covers
// x86-64 and most ARM server cores; padding to this boundary keeps
// independently-updated cursors off each other's cache line.
const CacheLineSize = 64

// IsPow2 reports whether n is a power of two.
func IsPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// NextPow2 returns the smallest power of two >= n.
// NextPow2(0) returns 1.
func NextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// MustPow2 panics unless capacity is a power of two and at least 2.
// A bad capacity is a programming error, not a runtime condition, so the
// queues fail fast at construction instead of silently rounding.
func MustPow2(capacity uint64) {
	if capacity < 2 || !IsPow2(capacity) {
		panic("ringbench: capacity must be a power of two and >= 2")
	}
}
