// File: cmd/hioload-httpd/main.go
// Package main
// Static file server built on the hioload-http server core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/hioload-http/internal/obs"
	"github.com/momentics/hioload-http/server"
	"github.com/momentics/hioload-http/staticfiles"
)

func main() {
	host := flag.String("host", "", "listen host (empty = all interfaces)")
	port := flag.Int("port", 8080, "listen port")
	docroot := flag.String("docroot", ".", "document root for static files")
	maxConns := flag.Int("max-connections", 100, "connection handler pool size")
	workers := flag.Int("workers", 0, "request executor workers (0 = one per connection)")
	readTimeout := flag.Duration("read-timeout", 10*time.Second, "per-request read timeout")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	minLevel := obs.Info
	if *debug {
		minLevel = obs.Debug
	}
	obs.SetLogger(obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: minLevel})

	static, err := staticfiles.NewController(&staticfiles.Config{
		Path:              *docroot,
		Encoding:          "UTF-8",
		MaxAge:            60 * time.Second,
		MaxCachedFileSize: 65536,
		CacheSize:         1000000,
		CacheTime:         60 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to initialize static file controller: %v", err)
	}

	cfg := server.DefaultConfig()
	cfg.Host = *host
	cfg.Port = *port

	listener, err := server.Listen(cfg, static,
		server.WithMaxConnections(*maxConns),
		server.WithExecutorWorkers(*workers),
		server.WithReadTimeout(*readTimeout),
	)
	if err != nil {
		log.Fatalf("failed to start listener: %v", err)
	}
	log.Printf("hioload-httpd listening on %s, docroot %s", listener.Addr(), *docroot)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down")
	if err := listener.Close(); err != nil {
		log.Printf("close error: %v", err)
	}
}
