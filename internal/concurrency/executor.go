// File: internal/concurrency/executor.go
// Package concurrency implements the task executor for request dispatch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines. Every dispatched
// HTTP request runs here, on an execution context separate from the
// connection goroutine that owns the socket.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/obs"
)

// Executor manages a pool of worker goroutines.
type Executor struct {
	tasks   chan func()
	closeCh chan struct{}
	closed  int32
	wg      sync.WaitGroup

	numWorkers int32

	// statistics
	totalTasks     int64
	completedTasks int64
}

var _ api.Executor = (*Executor)(nil)

// NewExecutor creates a new Executor with the given number of workers.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		tasks:      make(chan func(), numWorkers*4),
		closeCh:    make(chan struct{}),
		numWorkers: int32(numWorkers),
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues a task for execution, returning ErrExecutorClosed if
// the executor is closed.
func (e *Executor) Submit(task func()) error {
	if atomic.LoadInt32(&e.closed) == 1 {
		return api.ErrExecutorClosed
	}
	atomic.AddInt64(&e.totalTasks, 1)
	select {
	case e.tasks <- task:
		return nil
	case <-e.closeCh:
		return api.ErrExecutorClosed
	}
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	return int(atomic.LoadInt32(&e.numWorkers))
}

// Close gracefully shuts down the executor and waits for workers to exit.
func (e *Executor) Close() {
	if atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		close(e.closeCh)
		e.wg.Wait()
	}
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	return map[string]int64{
		"total_tasks":     atomic.LoadInt64(&e.totalTasks),
		"completed_tasks": atomic.LoadInt64(&e.completedTasks),
		"pending_tasks":   atomic.LoadInt64(&e.totalTasks) - atomic.LoadInt64(&e.completedTasks),
		"num_workers":     int64(e.NumWorkers()),
	}
}

// run is the main loop for a worker.
func (e *Executor) run(id int) {
	defer e.wg.Done()
	for {
		select {
		case task := <-e.tasks:
			e.executeTask(id, task)
		case <-e.closeCh:
			return
		}
	}
}

// executeTask runs the task and updates statistics, recovering from panics
// to keep the worker alive. Request-level panic handling happens earlier,
// at the dispatch boundary; this recover is the final guard.
func (e *Executor) executeTask(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			obs.Errorf("Executor: worker %d recovered from panic: %v", id, r)
		}
		atomic.AddInt64(&e.completedTasks, 1)
	}()
	task()
}
