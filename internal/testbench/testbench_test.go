package testbench

import (
	"testing"
	"time"

	"github.com/lfring/ringbench/pkg/buffered"
	"github.com/lfring/ringbench/pkg/mpmcring"
)

func TestRunTimedTestAccounting(t *testing.T) {
	q := buffered.New[*int](256)
	produced, consumed, elapsed := RunTimedTest(q, Config{NumProducers: 2, NumConsumers: 2},
		200*time.Millisecond,
		func(i int) *int {
			v := i
			return &v
		})

	if produced == 0 {
		t.Fatal("expected at least one message produced")
	}
	if consumed != produced {
		t.Fatalf("consumed %d != produced %d after drain", consumed, produced)
	}
	if elapsed < 200*time.Millisecond {
		t.Fatalf("elapsed %v shorter than the test window", elapsed)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d left", q.Len())
	}
}

func TestRunTimedTestLockFree(t *testing.T) {
	q := mpmcring.New[*int](256)
	produced, consumed, _ := RunTimedTest(q, Config{NumProducers: 4, NumConsumers: 4},
		200*time.Millisecond,
		func(i int) *int {
			v := i
			return &v
		})

	if produced == 0 {
		t.Fatal("expected at least one message produced")
	}
	if consumed != produced {
		t.Fatalf("consumed %d != produced %d after drain", consumed, produced)
	}
}
