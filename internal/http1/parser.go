// File: internal/http1/parser.go
// Package http1 implements the byte-level HTTP/1.x request parser.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The parser reads one request at a time from a buffered reader and
// reports its outcome as a Status. The connection layer only consumes
// the status; all tokenizing lives here.

package http1

import (
	"bufio"
	"io"
	"net/textproto"
	"strconv"
	"strings"
)

// Status reports the parser state for the request being read.
type Status int

const (
	// WaitForRequest means the request line is being read.
	WaitForRequest Status = iota
	// WaitForHeader means header lines are being read.
	WaitForHeader
	// WaitForBody means body bytes are still outstanding. Callers use
	// the body progress hook to restart read timers during large uploads.
	WaitForBody
	// Complete means a full request has been parsed.
	Complete
	// WrongHeaders means the request line was malformed or a header
	// checker rejected the request. Err() carries status code and text.
	WrongHeaders
	// Abort means the request exceeded a configured size limit.
	Abort
)

// HTTPError carries the status code and text reported for a rejected
// request.
type HTTPError struct {
	StatusCode int
	Text       string
}

// HeadersChecker validates parsed headers before the body is read.
// Returning ok=false rejects the request with the supplied error.
type HeadersChecker func(headers map[string][]string) (ok bool, herr HTTPError)

// Request is the parsed form of one HTTP request. Header keys are in
// canonical MIME form.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers map[string][]string
	Body    []byte
}

// Header returns the first value of the named header, or "".
func (r *Request) Header(name string) string {
	vs := r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

const bodyReadBlock = 65536

// Parser reads requests from a connection, one at a time. It is not
// safe for concurrent use.
type Parser struct {
	// MaxRequestSize bounds the total size of the request line plus all
	// header lines. Exceeding it aborts the request.
	MaxRequestSize int
	// MaxBodySize bounds the declared body size. Exceeding it aborts
	// the request.
	MaxBodySize int
	// Checkers are run once the headers are complete.
	Checkers []HeadersChecker
	// OnBodyProgress is invoked after each body block is read, before
	// the request is complete.
	OnBodyProgress func()

	status Status
	err    HTTPError
	req    *Request
}

// Status returns the outcome of the last ReadRequest call.
func (p *Parser) Status() Status { return p.status }

// Err returns the HTTP error for a WrongHeaders outcome.
func (p *Parser) Err() HTTPError { return p.err }

// Request returns the parsed request after a Complete outcome.
func (p *Parser) Request() *Request { return p.req }

// ReadRequest reads exactly one request from br. A nil error means the
// parser status is one of Complete, WrongHeaders or Abort. A non-nil
// error reports an I/O failure (timeout, disconnect) and leaves no
// usable request behind.
func (p *Parser) ReadRequest(br *bufio.Reader) (Status, error) {
	p.status = WaitForRequest
	p.err = HTTPError{}
	p.req = nil

	limit := p.MaxRequestSize
	if limit <= 0 {
		limit = 16384
	}

	line, n, err := readLine(br, limit)
	if err != nil {
		if err == errLineTooLong {
			return p.abort()
		}
		return p.status, err
	}
	read := n

	method, path, version, ok := parseRequestLine(line)
	if !ok {
		return p.reject(HTTPError{StatusCode: 400, Text: "400 bad request"})
	}

	p.status = WaitForHeader
	headers := make(map[string][]string)
	for {
		line, n, err = readLine(br, limit-read)
		if err != nil {
			if err == errLineTooLong {
				return p.abort()
			}
			return p.status, err
		}
		read += n
		if read > limit {
			return p.abort()
		}
		if line == "" {
			break
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(name)
		headers[key] = append(headers[key], value)
	}

	for _, check := range p.Checkers {
		if ok, herr := check(headers); !ok {
			return p.reject(herr)
		}
	}

	req := &Request{Method: method, Path: path, Version: version, Headers: headers}

	contentLength := 0
	if cl := req.Header("Content-Length"); cl != "" {
		contentLength, err = strconv.Atoi(cl)
		if err != nil || contentLength < 0 {
			return p.reject(HTTPError{StatusCode: 400, Text: "400 bad request"})
		}
	}
	if p.MaxBodySize > 0 && contentLength > p.MaxBodySize {
		return p.abort()
	}

	if contentLength > 0 {
		p.status = WaitForBody
		body := make([]byte, 0, contentLength)
		remaining := contentLength
		block := make([]byte, bodyReadBlock)
		for remaining > 0 {
			toRead := remaining
			if toRead > len(block) {
				toRead = len(block)
			}
			n, err := io.ReadFull(br, block[:toRead])
			if err != nil {
				return p.status, err
			}
			body = append(body, block[:n]...)
			remaining -= n
			if remaining > 0 && p.OnBodyProgress != nil {
				p.OnBodyProgress()
			}
		}
		req.Body = body
	}

	p.req = req
	p.status = Complete
	return p.status, nil
}

func (p *Parser) reject(herr HTTPError) (Status, error) {
	p.status = WrongHeaders
	p.err = herr
	return p.status, nil
}

func (p *Parser) abort() (Status, error) {
	p.status = Abort
	return p.status, nil
}

// parseRequestLine splits "METHOD SP TARGET SP VERSION".
func parseRequestLine(line string) (method, path, version string, ok bool) {
	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return
	}
	last := strings.LastIndexByte(line, ' ')
	if last == first {
		return
	}
	method = line[:first]
	path = line[first+1 : last]
	version = line[last+1:]
	if method == "" || path == "" || !strings.HasPrefix(version, "HTTP/") {
		return "", "", "", false
	}
	return method, path, version, true
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}
