// File: server/pool.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-http/internal/concurrency"
	"github.com/momentics/hioload-http/internal/obs"
)

// Pool owns a fixed-size set of long-lived connection handlers, each
// with its own goroutine, so one slow connection cannot stall others.
// Handlers are reused across many connections to amortize setup cost.
type Pool struct {
	handlers []*ConnectionHandler
	executor *concurrency.Executor
}

// NewPool creates all handlers up front. The pool size is the maximum
// number of concurrent connections by design; it is not elastic.
func NewPool(cfg *Config, handler Handler) *Pool {
	// At most one dispatched request is in flight per connection, so one
	// worker per handler guarantees a blocked request handler on one
	// connection can never starve another connection's request.
	workers := cfg.ExecutorWorkers
	if workers <= 0 {
		workers = cfg.MaxConnections
	}
	executor := concurrency.NewExecutor(workers)
	p := &Pool{
		handlers: make([]*ConnectionHandler, cfg.MaxConnections),
		executor: executor,
	}
	for i := range p.handlers {
		p.handlers[i] = newConnectionHandler(i, cfg, handler, executor)
	}
	obs.Debugf("Pool: created %d connection handlers", len(p.handlers))
	return p
}

// Acquire returns an idle handler marked busy, or nil when every
// handler is in use.
func (p *Pool) Acquire() *ConnectionHandler {
	for _, h := range p.handlers {
		if h.acquire() {
			return h
		}
	}
	return nil
}

// BusyCount reports how many handlers currently own a connection.
func (p *Pool) BusyCount() int {
	n := 0
	for _, h := range p.handlers {
		if h.Busy() {
			n++
		}
	}
	return n
}

// Size returns the fixed number of handlers.
func (p *Pool) Size() int { return len(p.handlers) }

// Stats returns pool and executor metrics.
func (p *Pool) Stats() map[string]int64 {
	stats := p.executor.Stats()
	stats["pool_size"] = int64(p.Size())
	stats["pool_busy"] = int64(p.BusyCount())
	return stats
}

// Shutdown tears down every handler and the executor.
func (p *Pool) Shutdown() {
	for _, h := range p.handlers {
		h.shutdown()
	}
	p.executor.Close()
	obs.Debugf("Pool: shut down")
}
