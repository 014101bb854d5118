// File: server/options.go
// Package server defines functional options for the Listener.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"time"

	"github.com/momentics/hioload-http/internal/http1"
)

// Option customizes listener initialization.
type Option func(*Config)

// WithReadTimeout overrides the read/idle timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithMaxConnections sets the connection handler pool size.
func WithMaxConnections(n int) Option {
	return func(c *Config) {
		c.MaxConnections = n
	}
}

// WithExecutorWorkers sets the number of request dispatch workers.
func WithExecutorWorkers(n int) Option {
	return func(c *Config) {
		c.ExecutorWorkers = n
	}
}

// WithTLS enables TLS with the given configuration.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Config) {
		c.TLSConfig = cfg
	}
}

// WithHeadersChecker appends a header validation hook.
func WithHeadersChecker(check http1.HeadersChecker) Option {
	return func(c *Config) {
		c.HeadersCheckers = append(c.HeadersCheckers, check)
	}
}

// WithRequestLimits overrides the header and body size limits.
func WithRequestLimits(maxRequestSize, maxBodySize int) Option {
	return func(c *Config) {
		c.MaxRequestSize = maxRequestSize
		c.MaxBodySize = maxBodySize
	}
}
