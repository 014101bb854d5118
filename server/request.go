// File: server/request.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"net/textproto"
	"net/url"
	"strings"

	"github.com/momentics/hioload-http/internal/http1"
)

// Request is the immutable snapshot of one parsed HTTP request. It is
// built by the connection handler and shared read-only with the
// dispatched request handler.
type Request struct {
	Method  string
	Path    string // decoded path without the query string
	RawPath string // request target exactly as received
	Version string
	Headers map[string][]string // canonical MIME keys
	Body    []byte

	// Secure reports whether the request arrived over TLS.
	Secure bool
	// RemoteAddr is the peer address of the connection.
	RemoteAddr string

	cookies map[string]string
	params  url.Values
}

// newRequest adapts a parsed http1 request into the dispatch snapshot.
func newRequest(pr *http1.Request, secure bool, remoteAddr string) *Request {
	path := pr.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return &Request{
		Method:     pr.Method,
		Path:       path,
		RawPath:    pr.Path,
		Version:    pr.Version,
		Headers:    pr.Headers,
		Body:       pr.Body,
		Secure:     secure,
		RemoteAddr: remoteAddr,
	}
}

// Header returns the first value of the named header, or "".
func (r *Request) Header(name string) string {
	vs := r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// HeaderValues returns all values of the named header.
func (r *Request) HeaderValues(name string) []string {
	return r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// Cookie returns the value of the named request cookie, or "".
func (r *Request) Cookie(name string) string {
	if r.cookies == nil {
		r.cookies = make(map[string]string)
		for _, h := range r.HeaderValues("Cookie") {
			for k, v := range parseCookies(h) {
				r.cookies[k] = v
			}
		}
	}
	return r.cookies[name]
}

// Parameter returns the first value of a query-string or urlencoded
// form parameter, or "".
func (r *Request) Parameter(name string) string {
	return r.ParameterMap().Get(name)
}

// ParameterMap returns the decoded query-string parameters merged with
// urlencoded body parameters.
func (r *Request) ParameterMap() url.Values {
	if r.params != nil {
		return r.params
	}
	params := url.Values{}
	if i := strings.IndexByte(r.RawPath, '?'); i >= 0 {
		if q, err := url.ParseQuery(r.RawPath[i+1:]); err == nil {
			params = q
		}
	}
	ct := r.Header("Content-Type")
	if len(r.Body) > 0 && strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if form, err := url.ParseQuery(string(r.Body)); err == nil {
			for k, vs := range form {
				for _, v := range vs {
					params.Add(k, v)
				}
			}
		}
	}
	r.params = params
	return params
}
