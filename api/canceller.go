// File: api/canceller.go
// Package api defines the Canceller contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Canceller is a capability a request handler may register with its
// connection so the connection can signal "client disconnected, abandon
// the work". Cancel must be safe to call from any goroutine and must be
// a no-op after the handler has finished.
type Canceller interface {
	Cancel()
}

// CancelFunc adapts a plain function to the Canceller interface.
type CancelFunc func()

// Cancel invokes the function.
func (f CancelFunc) Cancel() { f() }
