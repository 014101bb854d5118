// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values for hioload-http.

package api

import "fmt"

var (
	// ErrConnectionClosed reports a write on a connection that is gone.
	ErrConnectionClosed = fmt.Errorf("connection is closed")
	// ErrExecutorClosed reports a submit on a stopped executor.
	ErrExecutorClosed = fmt.Errorf("executor is closed")
)
