// File: server/handler.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/obs"
)

// ServiceParams is the dispatch envelope handed to a Handler for one
// request. The handler runs on an executor goroutine, never on the
// connection's own goroutine; the Response routes socket writes back
// through the connection, so the envelope may be used from any
// goroutine.
type ServiceParams struct {
	// RequestID is unique for the lifetime of the connection handler
	// and strictly increasing. Completions are matched against it.
	RequestID uint64

	Request  *Request
	Response *Response

	// CloseConnection is true when the request itself forces a close
	// (Connection: close header or HTTP/1.0).
	CloseConnection bool

	// RegisterCanceller installs a canceller the connection invokes if
	// the client disconnects before the handler completes. At most one
	// canceller is active per request; registering for a request that
	// is no longer active cancels immediately.
	RegisterCanceller func(api.Canceller)
}

// Handler generates a response for each HTTP request. Web applications
// usually have one central handler that maps incoming requests to
// several controllers based on the requested path.
//
// Service must be safe to invoke concurrently for different requests.
type Handler interface {
	Service(params ServiceParams)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ServiceParams)

// Service invokes the function.
func (f HandlerFunc) Service(params ServiceParams) { f(params) }

// NotImplementedHandler is the default base behavior: it answers every
// request with status 501. Embed or wrap it when composing handlers
// that only cover part of the request space.
type NotImplementedHandler struct{}

// Service writes the 501 response.
func (NotImplementedHandler) Service(params ServiceParams) {
	obs.Errorf("Handler: no service implementation for %s %s %s",
		params.Request.Method, params.Request.Path, params.Request.Version)
	params.Response.SetStatus(501, "not implemented")
	params.Response.Write([]byte("501 not implemented"), true)
}
