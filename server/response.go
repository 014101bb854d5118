// File: server/response.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Response frames and streams one HTTP response onto the connection.
// If the whole body arrives in a single Write(data, true) call the
// Content-Length header is set automatically; a body streamed across
// several calls switches to chunked transfer encoding unless the
// connection is marked close. All socket writes are routed through the
// connection goroutine, so a Response may be driven from any goroutine.

package server

import (
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/http1"
	"github.com/momentics/hioload-http/internal/obs"
)

// ResponseTarget is the serialized socket surface a Response writes
// through. WriteSocket and FlushSocket must only be called on the
// connection goroutine; RunOnConnection hops there from anywhere else.
type ResponseTarget interface {
	// RunOnConnection executes fn on the connection goroutine and
	// blocks until it completed.
	RunOnConnection(fn func())
	// WriteSocket writes p to the socket, blocking for backpressure.
	// It reports false once the connection is dead.
	WriteSocket(p []byte) bool
	// FlushSocket pushes buffered bytes out to the socket.
	FlushSocket()
	// Connected reports whether the socket is still usable.
	Connected() bool
	// Writable reports whether the response stamped with requestID may
	// still write. The target is reused across connections, so a stale
	// response from a superseded request must not reach the socket of a
	// later connection.
	Writable(requestID uint64) bool
}

// Response accumulates status, headers and cookies for one in-flight
// request and streams the body. It transitions Open, HeadersSent,
// Closed; writing after Closed is an error and headers may not be
// mutated after HeadersSent.
type Response struct {
	target ResponseTarget

	// requestID stamps the response with the request it answers. The
	// connection refuses writes carrying a stale stamp.
	requestID uint64

	statusCode int
	statusText string
	headers    map[string]string
	cookies    map[string]Cookie

	sentHeaders  bool
	sentLastPart bool
	chunkedMode  bool
}

// NewResponse creates an open response with status 200 OK.
func NewResponse(target ResponseTarget) *Response {
	return &Response{
		target:     target,
		statusCode: 200,
		statusText: "OK",
		headers:    make(map[string]string),
		cookies:    make(map[string]Cookie),
	}
}

// SetStatus sets the HTTP status line. If text is empty the default
// reason phrase for the code is used.
func (r *Response) SetStatus(code int, text string) {
	if text == "" {
		text = http1.ReasonPhrase(code)
	}
	r.statusCode = code
	r.statusText = text
}

// Status returns the current status code.
func (r *Response) Status() int { return r.statusCode }

// SetHeader sets a response header. Headers cannot change once sent.
func (r *Response) SetHeader(name, value string) {
	if r.sentHeaders {
		obs.Warnf("Response: header %q set after headers were sent", name)
		return
	}
	r.headers[name] = value
}

// SetHeaderInt sets a numeric response header.
func (r *Response) SetHeaderInt(name string, value int) {
	r.SetHeader(name, strconv.Itoa(value))
}

// Header returns the named response header with case-insensitive
// matching, or "".
func (r *Response) Header(name string) string {
	if v, ok := r.headers[name]; ok {
		return v
	}
	for k, v := range r.headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Headers returns the header map.
func (r *Response) Headers() map[string]string { return r.headers }

// SetCookie adds a Set-Cookie header to emit with the response headers.
func (r *Response) SetCookie(c Cookie) {
	if r.sentHeaders {
		obs.Warnf("Response: cookie %q set after headers were sent", c.Name)
		return
	}
	if c.Name != "" {
		r.cookies[c.Name] = c
	}
}

// Cookies returns the outgoing cookies keyed by name.
func (r *Response) Cookies() map[string]Cookie { return r.cookies }

// HeadersSent reports whether the status line and headers went out.
func (r *Response) HeadersSent() bool { return r.sentHeaders }

// HasSentLastPart reports whether the terminating write happened.
func (r *Response) HasSentLastPart() bool { return r.sentLastPart }

// Connected reports whether the underlying socket is still usable.
func (r *Response) Connected() bool { return r.target.Connected() }

// Write sends body data. On the first call the status line, headers and
// cookies are emitted. Passing lastPart=true finalizes the body; in
// chunked mode this writes the terminating chunk. Write blocks until
// the bytes were handed to the socket, providing backpressure to the
// caller.
func (r *Response) Write(data []byte, lastPart bool) {
	r.target.RunOnConnection(func() {
		r.emit(data, lastPart)
	})
}

// Redirect finalizes the response with 303 See Other and the given
// location.
func (r *Response) Redirect(location string) {
	r.SetStatus(303, "See Other")
	r.SetHeader("Location", location)
	r.Write([]byte("Redirect"), true)
}

// WriteJSON emits the headers immediately and streams the JSON encoding
// of v through fixed-size flush buffers, so large documents do not have
// to be staged in one contiguous response buffer. The response carries
// neither Content-Length nor chunked framing, so the connection closes
// after it; this mirrors plain multi-part writes on a close-marked
// connection.
func (r *Response) WriteJSON(v any) error {
	writable := true
	r.target.RunOnConnection(func() {
		if !r.target.Writable(r.requestID) {
			writable = false
			return
		}
		if !r.sentHeaders {
			if r.Header("Content-Type") == "" {
				r.headers["Content-Type"] = "application/json"
			}
			r.writeHeaders()
		}
	})
	if !writable {
		return api.ErrConnectionClosed
	}
	fw := &flushWriter{target: r.target, requestID: r.requestID}
	if err := json.NewEncoder(fw).Encode(v); err != nil {
		return err
	}
	return fw.flush()
}

// emit is the single framing implementation. It must only run on the
// connection goroutine.
func (r *Response) emit(data []byte, lastPart bool) {
	if r.sentLastPart {
		obs.Warnf("Response: write after response was finished")
		return
	}
	if !r.target.Writable(r.requestID) {
		obs.Warnf("Response: dropped write for superseded request %d", r.requestID)
		return
	}

	if !r.sentHeaders {
		if lastPart {
			// The whole response arrives in a single write, so the
			// total size is known now.
			r.headers["Content-Length"] = strconv.Itoa(len(data))
		} else if !strings.EqualFold(r.Header("Connection"), "close") {
			r.headers["Transfer-Encoding"] = "chunked"
			r.chunkedMode = true
		}
		r.writeHeaders()
	}

	if len(data) > 0 {
		if r.chunkedMode {
			r.target.WriteSocket([]byte(strconv.FormatInt(int64(len(data)), 16)))
			r.target.WriteSocket(crlf)
			r.target.WriteSocket(data)
			r.target.WriteSocket(crlf)
		} else {
			r.target.WriteSocket(data)
		}
	}

	if lastPart {
		if r.chunkedMode {
			r.target.WriteSocket(lastChunk)
		}
		r.target.FlushSocket()
		r.sentLastPart = true
	}
}

var (
	crlf      = []byte("\r\n")
	lastChunk = []byte("0\r\n\r\n")
)

// writeHeaders emits the status line, headers in sorted order, and
// Set-Cookie lines. Connection goroutine only.
func (r *Response) writeHeaders() {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 ")
	sb.WriteString(strconv.Itoa(r.statusCode))
	sb.WriteByte(' ')
	sb.WriteString(r.statusText)
	sb.WriteString("\r\n")

	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.headers[name])
		sb.WriteString("\r\n")
	}

	cookieNames := make([]string, 0, len(r.cookies))
	for name := range r.cookies {
		cookieNames = append(cookieNames, name)
	}
	sort.Strings(cookieNames)
	for _, name := range cookieNames {
		sb.WriteString("Set-Cookie: ")
		sb.WriteString(r.cookies[name].String())
		sb.WriteString("\r\n")
	}

	sb.WriteString("\r\n")
	r.target.WriteSocket([]byte(sb.String()))
	r.target.FlushSocket()
	r.sentHeaders = true
}

const flushBufferSize = 16384

// flushWriter stages encoder output in a fixed-size buffer and hands
// full buffers to the connection goroutine, bounding resident memory on
// the write path.
type flushWriter struct {
	target    ResponseTarget
	requestID uint64
	buf       [flushBufferSize]byte
	n         int
	failed    bool
}

func (w *flushWriter) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		free := len(w.buf) - w.n
		if free == 0 {
			if err := w.send(); err != nil {
				return written - len(p), err
			}
			continue
		}
		c := copy(w.buf[w.n:], p)
		w.n += c
		p = p[c:]
	}
	return written, nil
}

func (w *flushWriter) send() error {
	if w.n == 0 {
		return nil
	}
	data := make([]byte, w.n)
	copy(data, w.buf[:w.n])
	w.n = 0
	ok := true
	w.target.RunOnConnection(func() {
		if !w.target.Writable(w.requestID) {
			ok = false
			return
		}
		ok = w.target.WriteSocket(data)
	})
	if !ok {
		w.failed = true
		return api.ErrConnectionClosed
	}
	return nil
}

func (w *flushWriter) flush() error {
	if err := w.send(); err != nil {
		return err
	}
	w.target.RunOnConnection(func() {
		w.target.FlushSocket()
	})
	return nil
}
