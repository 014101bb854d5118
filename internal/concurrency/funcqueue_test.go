// File: internal/concurrency/funcqueue_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"testing"
	"time"
)

func TestFuncQueueDrainOrder(t *testing.T) {
	fq := NewFuncQueue()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		fq.Push(func() { order = append(order, i) })
	}
	if fq.Len() != 5 {
		t.Fatalf("Len = %d, want 5", fq.Len())
	}
	fq.Drain()
	for i, v := range order {
		if v != i {
			t.Fatalf("execution order = %v", order)
		}
	}
	if fq.Len() != 0 {
		t.Errorf("Len after drain = %d", fq.Len())
	}
}

func TestFuncQueueWakeSignal(t *testing.T) {
	fq := NewFuncQueue()
	select {
	case <-fq.Wake():
		t.Fatal("wake signal before any push")
	default:
	}
	fq.Push(func() {})
	fq.Push(func() {})
	select {
	case <-fq.Wake():
	case <-time.After(time.Second):
		t.Fatal("no wake signal after push")
	}
	// The signal is coalesced, one wakeup covers both functions.
	select {
	case <-fq.Wake():
		t.Fatal("duplicate wake signal")
	default:
	}
}

func TestFuncQueueCloseRunsBacklogAndUnblocksProducers(t *testing.T) {
	fq := NewFuncQueue()
	backlog := false
	fq.Push(func() { backlog = true })
	fq.Close()
	if !backlog {
		t.Fatal("queued function not executed by Close")
	}

	// With the consumer gone, Run must not strand the producer.
	ran := false
	finished := make(chan struct{})
	go func() {
		fq.Run(func() { ran = true })
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked after Close")
	}
	if !ran {
		t.Error("function not executed after Close")
	}
}

func TestFuncQueueRunBlocksUntilExecuted(t *testing.T) {
	fq := NewFuncQueue()

	// Consumer goroutine draining on wakeups.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-fq.Wake():
				fq.Drain()
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	ran := false
	fq.Run(func() { ran = true })
	if !ran {
		t.Fatal("Run returned before the function executed")
	}
}
