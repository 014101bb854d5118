// File: server/sockopt_linux.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package server

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-http/internal/obs"
)

// TCP keepalive probing for accepted sockets: idle 10s, then up to 3
// probes 2s apart before the peer is declared gone.
const (
	keepAliveIdle     = 10
	keepAliveCount    = 3
	keepAliveInterval = 2
)

// enableKeepAlive switches on TCP keepalive probing for an accepted
// connection so half-dead clients are detected between requests.
func enableKeepAlive(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	rc, err := tc.SyscallConn()
	if err != nil {
		return
	}
	rc.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			obs.Infof("Listener: SO_KEEPALIVE err %v", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepAliveIdle); err != nil {
			obs.Infof("Listener: TCP_KEEPIDLE err %v", err)
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount); err != nil {
			obs.Infof("Listener: TCP_KEEPCNT err %v", err)
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveInterval); err != nil {
			obs.Infof("Listener: TCP_KEEPINTVL err %v", err)
		}
	})
}
