package main

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// progressWatchdog monitors progress and fails the test if no progress is
// made for 15 seconds. Lock-free queue bugs usually show up as livelock,
// so a stuck test is itself a test failure worth attributing.
type progressWatchdog struct {
	t            *testing.T
	label        string
	lastProgress atomic.Int64
	done         chan struct{}
}

func newWatchdog(t *testing.T, label string) *progressWatchdog {
	wd := &progressWatchdog{
		t:     t,
		label: label,
		done:  make(chan struct{}),
	}
	wd.lastProgress.Store(time.Now().UnixNano())
	return wd
}

func (wd *progressWatchdog) Start() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				last := wd.lastProgress.Load()
				if time.Since(time.Unix(0, last)) > 15*time.Second {
					wd.t.Errorf("No progress in the last 15 seconds (%s test likely stuck).", wd.label)
					return
				}
			case <-wd.done:
				return
			}
		}
	}()
}

func (wd *progressWatchdog) Progress() {
	wd.lastProgress.Store(time.Now().UnixNano())
}

func (wd *progressWatchdog) Stop() {
	close(wd.done)
}

// getEnvInt reads an integer from an environment variable with a default.
func getEnvInt(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

// Test sizing, overridable via environment:
//
//	RING_TEST_SIZE   - items per ordering test (default: 10000)
//	RING_CONCURRENCY - goroutines for contention tests (default: 20)
func getTestSize() int {
	return getEnvInt("RING_TEST_SIZE", 10000)
}

func getConcurrency() int {
	return getEnvInt("RING_CONCURRENCY", 20)
}

// withAllQueues loops over all implementations and runs the test function
// for each one as a subtest. Feature filtering happens inside the subtest
// so the skip is attributed to the implementation, not the parent.
func withAllQueues(t *testing.T, testedFeatures []string, fn func(t *testing.T, impl Implementation)) {
	t.Helper()
	for _, impl := range getImplementations() {
		impl := impl
		t.Run(impl.name, func(t *testing.T) {
			for _, feature := range testedFeatures {
				if !impl.hasFeature(feature) {
					t.Skipf("Skipping: missing feature %q", feature)
					return
				}
			}
			fn(t, impl)
		})
	}
}

// TestBasicFIFO pushes sequence numbers from one goroutine and verifies
// they come back out in exact order.
func TestBasicFIFO(t *testing.T) {
	withAllQueues(t, []string{"FIFO"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue(1024)
		wd := newWatchdog(t, "BasicFIFO")
		wd.Start()
		defer wd.Stop()

		testSize := getTestSize()
		pointers := make([]*int, testSize)
		for i := 0; i < testSize; i++ {
			p := new(int)
			*p = i
			pointers[i] = p
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < testSize; i++ {
				for !q.Push(pointers[i]) {
					runtime.Gosched()
				}
				wd.Progress()
			}
		}()

		for i := 0; i < testSize; i++ {
			var got *int
			for {
				var ok bool
				got, ok = q.Pop()
				if ok {
					break
				}
				time.Sleep(time.Microsecond)
			}
			wd.Progress()

			// Pointer identity catches slot corruption that value
			// equality would miss.
			if got != pointers[i] {
				t.Fatalf("FIFO violation at index %d: expected pointer %p, got %p", i, pointers[i], got)
			}
			if *got != i {
				t.Fatalf("Value corruption at index %d: expected %d, got %d", i, i, *got)
			}
		}

		<-done
		if q.Len() != 0 {
			t.Fatalf("Queue not empty after test: Len=%d", q.Len())
		}
	})
}

// TestFIFOWithWrapAround forces many ring wrap-arounds with a small
// capacity while a concurrent consumer verifies ordering.
func TestFIFOWithWrapAround(t *testing.T) {
	withAllQueues(t, []string{"FIFO"}, func(t *testing.T, impl Implementation) {
		const capacity = 64
		q := impl.newQueue(capacity)
		wd := newWatchdog(t, "FIFOWithWrapAround")
		wd.Start()
		defer wd.Stop()

		testSize := getTestSize()
		t.Logf("Testing %d items with capacity %d (~%d wrap-arounds)", testSize, capacity, testSize/capacity)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < testSize; i++ {
				p := new(int)
				*p = i
				for !q.Push(p) {
					runtime.Gosched()
				}
				wd.Progress()
			}
		}()

		for i := 0; i < testSize; i++ {
			var got *int
			for {
				var ok bool
				got, ok = q.Pop()
				if ok {
					break
				}
				time.Sleep(time.Microsecond)
			}
			wd.Progress()
			if *got != i {
				t.Fatalf("FIFO violation at index %d (wrap-around): got %d", i, *got)
			}
		}
		<-done
	})
}

// TestNoLostItemsUnderContention creates a high-contention scenario with
// many producers and few consumers on a small queue, then verifies every
// pushed pointer was popped exactly once.
func TestNoLostItemsUnderContention(t *testing.T) {
	withAllQueues(t, []string{"MPMC"}, func(t *testing.T, impl Implementation) {
		const capacity = 64
		numProducers := getConcurrency()
		const numConsumers = 5 // fewer consumers to create backpressure
		itemsPerProducer := getTestSize() / numProducers
		totalItems := numProducers * itemsPerProducer

		q := impl.newQueue(capacity)
		wd := newWatchdog(t, "NoLostItemsUnderContention")
		wd.Start()
		defer wd.Stop()

		enqueuedItems := make(map[*int]struct{}, totalItems)
		var enqueuedMu sync.Mutex
		dequeuedItems := make(map[*int]int, totalItems)
		var dequeuedMu sync.Mutex

		var prodWg, consWg sync.WaitGroup
		var productionDone atomic.Bool

		prodWg.Add(numProducers)
		for p := 0; p < numProducers; p++ {
			go func(producerID int) {
				defer prodWg.Done()
				for i := 0; i < itemsPerProducer; i++ {
					ptr := new(int)
					*ptr = producerID*itemsPerProducer + i

					enqueuedMu.Lock()
					enqueuedItems[ptr] = struct{}{}
					enqueuedMu.Unlock()

					for !q.Push(ptr) {
						runtime.Gosched()
					}
					if i%100 == 0 {
						wd.Progress()
					}
				}
			}(p)
		}

		consWg.Add(numConsumers)
		for c := 0; c < numConsumers; c++ {
			go func() {
				defer consWg.Done()
				for {
					ptr, ok := q.Pop()
					if ok {
						dequeuedMu.Lock()
						dequeuedItems[ptr]++
						dequeuedMu.Unlock()
						wd.Progress()
						continue
					}
					if productionDone.Load() && q.Len() == 0 {
						return
					}
					runtime.Gosched()
				}
			}()
		}

		prodWg.Wait()
		productionDone.Store(true)
		consWg.Wait()

		// Sweep anything left between the consumers' last empty check and
		// their exit.
		for {
			ptr, ok := q.Pop()
			if !ok {
				break
			}
			dequeuedItems[ptr]++
		}

		if len(dequeuedItems) != totalItems {
			t.Errorf("dequeued %d distinct items, want %d", len(dequeuedItems), totalItems)
		}
		for ptr := range enqueuedItems {
			switch dequeuedItems[ptr] {
			case 0:
				t.Fatalf("lost item: value %d never dequeued", *ptr)
			case 1:
				// expected
			default:
				t.Fatalf("duplicated item: value %d dequeued %d times", *ptr, dequeuedItems[ptr])
			}
		}
	})
}

// TestDrainAfterProductionStops verifies the shutdown discipline the repo
// documents: stop flag, then drain until empty, with nothing left behind.
func TestDrainAfterProductionStops(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation) {
		q := impl.newQueue(256)

		const n = 200
		for i := 0; i < n; i++ {
			p := new(int)
			*p = i
			if !q.Push(p) {
				t.Fatalf("push %d failed on an un-contended queue", i)
			}
		}

		drained := 0
		for {
			if _, ok := q.Pop(); !ok {
				break
			}
			drained++
		}
		if drained != n {
			t.Fatalf("drained %d items, want %d", drained, n)
		}
		if !q.Empty() {
			t.Fatal("queue reports non-empty after full drain")
		}
	})
}
