// Command demo runs the two queue walkthroughs: an SPSC FIFO verification
// and an MPMC producer/consumer accounting check. It is a readable example
// of the intended caller-side retry/shutdown discipline, not a benchmark.
package main

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lfring/ringbench/pkg/mpmcring"
	"github.com/lfring/ringbench/pkg/spscring"
)

func demoSPSC() {
	fmt.Println("=== SPSC Queue Demo ===")

	const numItems = 100000
	q := spscring.New[int](1024)

	var producerDone atomic.Bool
	received := make([]int, 0, numItems)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i++ {
			for !q.Push(i) {
				runtime.Gosched() // queue full, yield and retry
			}
		}
		producerDone.Store(true)
	}()

	go func() {
		defer wg.Done()
		for !producerDone.Load() || !q.Empty() {
			if v, ok := q.Pop(); ok {
				received = append(received, v)
			} else {
				runtime.Gosched()
			}
		}
		// Final drain: the producer may have published between the last
		// Empty check and the flag store.
		for {
			v, ok := q.Pop()
			if !ok {
				break
			}
			received = append(received, v)
		}
	}()

	wg.Wait()

	ordered := len(received) == numItems
	for i := 0; i < len(received) && ordered; i++ {
		if received[i] != i {
			ordered = false
		}
	}

	fmt.Printf("Items sent: %d\n", numItems)
	fmt.Printf("Items received: %d\n", len(received))
	fmt.Printf("FIFO order preserved: %v\n", ordered)
	fmt.Println()
}

func demoMPMC() {
	fmt.Println("=== MPMC Queue Demo ===")

	const (
		numProducers     = 4
		numConsumers     = 4
		itemsPerProducer = 10000
	)
	q := mpmcring.New[int](1024)

	var produced, consumed atomic.Int64
	var done atomic.Bool

	var prodWg, consWg sync.WaitGroup

	prodWg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(p int) {
			defer prodWg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				v := p*itemsPerProducer + i
				for !q.Push(v) {
					runtime.Gosched()
				}
				produced.Add(1)
			}
		}(p)
	}

	consWg.Add(numConsumers)
	for c := 0; c < numConsumers; c++ {
		go func() {
			defer consWg.Done()
			for !done.Load() {
				if _, ok := q.Pop(); ok {
					consumed.Add(1)
				} else {
					runtime.Gosched()
				}
			}
			for {
				if _, ok := q.Pop(); ok {
					consumed.Add(1)
				} else {
					break
				}
			}
		}()
	}

	prodWg.Wait()
	done.Store(true)
	consWg.Wait()

	expected := int64(numProducers * itemsPerProducer)
	fmt.Printf("Producers: %d, Consumers: %d\n", numProducers, numConsumers)
	fmt.Printf("Items produced: %d\n", produced.Load())
	fmt.Printf("Items consumed: %d\n", consumed.Load())
	fmt.Printf("Expected: %d\n", expected)
	fmt.Printf("All items accounted for: %v\n", consumed.Load() == expected)
}

func main() {
	demoSPSC()
	demoMPMC()
}
