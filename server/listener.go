// File: server/listener.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/momentics/hioload-http/internal/obs"
)

const responseTooManyConnections = "HTTP/1.1 503 too many connections\r\nConnection: close\r\n\r\nToo many connections\r\n"

// Listener binds a host and port, accepts connections and hands each
// one to a pooled connection handler. A connection arriving while every
// handler is busy is rejected with a literal 503 and never consumes
// handler capacity.
type Listener struct {
	cfg    *Config
	pool   *Pool
	ln     net.Listener
	closed atomic.Bool
}

// Listen binds the configured address and starts accepting. A bind
// failure is fatal at startup and returned immediately.
func Listen(cfg *Config, handler Handler, opts ...Option) (*Listener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, o := range opts {
		o(cfg)
	}
	if handler == nil {
		handler = NotImplementedHandler{}
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	l := &Listener{
		cfg:  cfg,
		pool: NewPool(cfg, handler),
		ln:   ln,
	}
	obs.Infof("Listener: listening on %s", ln.Addr())
	go l.acceptLoop()
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Pool exposes the handler pool for metrics.
func (l *Listener) Pool() *Pool { return l.pool }

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return
			}
			obs.Warnf("Listener: accept error: %v", err)
			continue
		}
		enableKeepAlive(conn)

		h := l.pool.Acquire()
		if h == nil {
			obs.Debugf("Listener: too many incoming connections")
			go l.reject(conn)
			continue
		}
		// The handoff must not block the accept loop; the handler's
		// channel has room because the handler was just acquired idle.
		h.assign(conn)
	}
}

// reject answers with the literal 503 response and closes the socket.
func (l *Listener) reject(conn net.Conn) {
	if l.cfg.TLSConfig != nil {
		conn = tls.Server(conn, l.cfg.TLSConfig)
	}
	conn.Write([]byte(responseTooManyConnections))
	conn.Close()
}

// Close stops accepting and shuts the pool down.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.ln.Close()
	l.pool.Shutdown()
	obs.Infof("Listener: closed")
	return err
}
