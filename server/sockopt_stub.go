// File: server/sockopt_stub.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package server

import "net"

// enableKeepAlive falls back to the portable keepalive switch on
// platforms without the Linux TCP keepalive knobs.
func enableKeepAlive(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
	}
}
