// File: server/config.go
// Package server implements the HTTP/1.x connection-handling core:
// listener, handler pool, per-connection state machine, request and
// response types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"time"

	"github.com/momentics/hioload-http/internal/http1"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Host            string        // bind host, empty for all interfaces
	Port            int           // TCP port
	ReadTimeout     time.Duration // bounds header read and idle time between requests
	MaxConnections  int           // pool size, equals max concurrent connections
	MaxRequestSize  int           // request line plus headers byte limit
	MaxBodySize     int           // request body byte limit
	ExecutorWorkers int           // request dispatch workers, 0 = one per connection handler
	TLSConfig       *tls.Config   // non-nil enables TLS on accepted connections

	// HeadersCheckers run once a request's headers are complete. A
	// failing checker rejects the request with its reported status and
	// text and closes the connection.
	HeadersCheckers []http1.HeadersChecker
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		MaxConnections: 100,
		MaxRequestSize: 16000,
		MaxBodySize:    1000000,
	}
}
