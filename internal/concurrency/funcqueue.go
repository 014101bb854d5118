// File: internal/concurrency/funcqueue.go
// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FuncQueue serializes function execution onto a single consumer
// goroutine. Producers enqueue from any goroutine; the owner drains in
// FIFO order. This is the primitive behind socket-safe execution: code
// running off the connection goroutine hands socket-touching work to the
// connection through a FuncQueue and blocks until it ran.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// FuncQueue is a mutex-guarded FIFO of functions with a wakeup channel
// for the consumer.
type FuncQueue struct {
	mu     sync.Mutex
	q      *queue.Queue
	wake   chan struct{}
	closed bool
}

// NewFuncQueue creates an empty FuncQueue.
func NewFuncQueue() *FuncQueue {
	return &FuncQueue{
		q:    queue.New(),
		wake: make(chan struct{}, 1),
	}
}

// Wake returns the channel the consumer selects on. It carries at most
// one pending signal regardless of how many functions are queued.
func (fq *FuncQueue) Wake() <-chan struct{} {
	return fq.wake
}

// Push enqueues fn and signals the consumer. After Close the consumer
// is gone and fn runs on the caller instead, so no producer can block
// on a dead queue.
func (fq *FuncQueue) Push(fn func()) {
	fq.mu.Lock()
	if fq.closed {
		fq.mu.Unlock()
		fn()
		return
	}
	fq.q.Add(fn)
	fq.mu.Unlock()
	select {
	case fq.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of queued functions.
func (fq *FuncQueue) Len() int {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	return fq.q.Length()
}

// Drain executes all currently queued functions in FIFO order. Only the
// consumer goroutine may call Drain.
func (fq *FuncQueue) Drain() {
	for {
		fq.mu.Lock()
		if fq.q.Length() == 0 {
			fq.mu.Unlock()
			return
		}
		fn := fq.q.Remove().(func())
		fq.mu.Unlock()
		fn()
	}
}

// Close marks the queue closed and runs everything still queued. The
// consumer calls it on its own goroutine before exiting; subsequent
// pushes execute inline on the producer.
func (fq *FuncQueue) Close() {
	fq.mu.Lock()
	fq.closed = true
	fq.mu.Unlock()
	fq.Drain()
}

// Run enqueues fn and blocks until it executed, on the consumer while
// the queue is live, inline once it is closed.
func (fq *FuncQueue) Run(fn func()) {
	done := make(chan struct{})
	fq.Push(func() {
		defer close(done)
		fn()
	})
	<-done
}
