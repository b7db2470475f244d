package testbench

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lfring/ringbench/internal/queue"
)

// Config describes the concurrency of one benchmark run: how many
// producers, how many consumers.
type Config struct {
	NumProducers int
	NumConsumers int
}

// RunTimedTest spawns producers and consumers that run for the specified
// duration, measuring how many messages are actually pushed/popped in that
// window. Producers yield and retry when the queue is full (the queues
// never block, so the retry loop lives here, in the caller). Once the
// duration expires, producers stop and consumers drain whatever remains.
//
// Returns the total messages produced, total consumed, and the measured
// elapsed time.
func RunTimedTest[T any, Q queue.Ring[T]](
	q Q,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) T,
) (producedCount int64, consumedCount int64, elapsed time.Duration) {

	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var totalProduced int64
	var totalConsumed int64

	start := time.Now()

	var msgIndex int64
	var prodWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)

	var productionDone atomic.Bool

	go func() {
		<-ctx.Done()
		productionDone.Store(true)
	}()

	for i := 0; i < cfg.NumProducers; i++ {
		go func() {
			defer prodWg.Done()
			for !productionDone.Load() {
				idx := atomic.AddInt64(&msgIndex, 1) - 1
				msg := valueGenerator(int(idx))
				// Spin on the same message until it lands or time is up.
				for !q.Push(msg) {
					if productionDone.Load() {
						return
					}
					runtime.Gosched()
				}
				atomic.AddInt64(&totalProduced, 1)
			}
		}()
	}

	var consWg sync.WaitGroup
	consWg.Add(cfg.NumConsumers)
	for i := 0; i < cfg.NumConsumers; i++ {
		go func() {
			defer consWg.Done()
			for {
				if productionDone.Load() {
					// Producers are stopping; drain until empty.
					for {
						if _, ok := q.Pop(); ok {
							atomic.AddInt64(&totalConsumed, 1)
						} else {
							break
						}
					}
					return
				}
				if _, ok := q.Pop(); ok {
					atomic.AddInt64(&totalConsumed, 1)
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	<-ctx.Done()
	prodWg.Wait()
	consWg.Wait()

	// A producer may have published between a consumer's final empty Pop
	// and its exit; sweep the leftovers.
	for {
		if _, ok := q.Pop(); ok {
			totalConsumed++
		} else {
			break
		}
	}

	elapsed = time.Since(start)
	producedCount = atomic.LoadInt64(&totalProduced)
	consumedCount = atomic.LoadInt64(&totalConsumed)
	return producedCount, consumedCount, elapsed
}
