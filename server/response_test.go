// File: server/response_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/momentics/hioload-http/api"
)

// fakeTarget executes run-on-connection functions inline and records
// every socket write.
type fakeTarget struct {
	buf    bytes.Buffer
	closed bool
	stale  bool
}

func (f *fakeTarget) RunOnConnection(fn func()) { fn() }
func (f *fakeTarget) WriteSocket(p []byte) bool {
	if f.closed {
		return false
	}
	f.buf.Write(p)
	return true
}
func (f *fakeTarget) FlushSocket() {}
func (f *fakeTarget) Connected() bool { return !f.closed }
func (f *fakeTarget) Writable(requestID uint64) bool { return !f.closed && !f.stale }

func TestSingleWriteSetsContentLength(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.Write([]byte("hello"), true)

	out := target.buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line missing: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("Content-Length not set: %q", out)
	}
	if strings.Contains(out, "Transfer-Encoding") {
		t.Errorf("unexpected chunked framing: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Errorf("body misplaced: %q", out)
	}
	if !resp.HasSentLastPart() {
		t.Error("response not marked finished")
	}
}

func TestMultiWriteUsesChunkedEncoding(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.Write([]byte("hello "), false)
	resp.Write([]byte("world"), true)

	out := target.buf.String()
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Fatalf("chunked header missing: %q", out)
	}
	headerEnd := strings.Index(out, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatalf("no header terminator: %q", out)
	}
	body := out[headerEnd+4:]
	if body != "6\r\nhello \r\n5\r\nworld\r\n0\r\n\r\n" {
		t.Errorf("chunked body = %q", body)
	}
}

func TestCloseMarkedResponseSkipsChunking(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.SetHeader("Connection", "close")
	resp.Write([]byte("part1"), false)
	resp.Write([]byte("part2"), true)

	out := target.buf.String()
	if strings.Contains(out, "Transfer-Encoding") {
		t.Fatalf("chunked framing on close-marked response: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\npart1part2") {
		t.Errorf("raw body missing: %q", out)
	}
}

func TestHeadersSortedAndCookiesEmitted(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.SetStatus(404, "")
	resp.SetHeader("X-Zulu", "z")
	resp.SetHeader("Content-Type", "text/plain")
	resp.SetCookie(Cookie{Name: "b", Value: "2"})
	resp.SetCookie(Cookie{Name: "a", Value: "1"})
	resp.Write(nil, true)

	out := target.buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("default reason phrase not applied: %q", out)
	}
	ct := strings.Index(out, "Content-Type")
	zulu := strings.Index(out, "X-Zulu")
	if ct < 0 || zulu < 0 || ct > zulu {
		t.Errorf("headers not sorted: %q", out)
	}
	ca := strings.Index(out, "Set-Cookie: a=1")
	cb := strings.Index(out, "Set-Cookie: b=2")
	if ca < 0 || cb < 0 || ca > cb {
		t.Errorf("cookies missing or unsorted: %q", out)
	}
}

func TestHeaderMutationAfterSendIgnored(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.Write([]byte("x"), false)
	resp.SetHeader("X-Late", "nope")
	resp.SetCookie(Cookie{Name: "late", Value: "nope"})
	resp.Write(nil, true)

	out := target.buf.String()
	if strings.Contains(out, "X-Late") || strings.Contains(out, "late=") {
		t.Errorf("late header leaked into output: %q", out)
	}
}

func TestWriteAfterFinishIgnored(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.Write([]byte("done"), true)
	before := target.buf.Len()
	resp.Write([]byte("more"), true)
	if target.buf.Len() != before {
		t.Errorf("write after finish reached the socket")
	}
}

func TestRedirect(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.Redirect("/other")

	out := target.buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 303 See Other\r\n") {
		t.Fatalf("status = %q", out)
	}
	if !strings.Contains(out, "Location: /other\r\n") {
		t.Errorf("Location missing: %q", out)
	}
	if !strings.HasSuffix(out, "Redirect") {
		t.Errorf("body = %q", out)
	}
}

func TestWriteJSON(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	if err := resp.WriteJSON(map[string]int{"n": 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	out := target.buf.String()
	if !strings.Contains(out, "Content-Type: application/json\r\n") {
		t.Errorf("content type missing: %q", out)
	}
	// No length and no chunked framing, the connection must close to
	// delimit the body.
	if strings.Contains(out, "Content-Length") || strings.Contains(out, "Transfer-Encoding") {
		t.Errorf("unexpected framing: %q", out)
	}
	if !strings.Contains(out, `{"n":1}`) {
		t.Errorf("body = %q", out)
	}
}

func TestSupersededResponseCannotWrite(t *testing.T) {
	target := &fakeTarget{}
	resp := NewResponse(target)
	resp.requestID = 7
	target.stale = true
	resp.Write([]byte("INJECTED"), true)

	if target.buf.Len() != 0 {
		t.Errorf("superseded response reached the socket: %q", target.buf.String())
	}
}

func TestWriteJSONOnClosedConnection(t *testing.T) {
	target := &fakeTarget{closed: true}
	resp := NewResponse(target)
	if err := resp.WriteJSON(map[string]int{"n": 1}); err != api.ErrConnectionClosed {
		t.Errorf("WriteJSON on closed connection = %v, want ErrConnectionClosed", err)
	}
	if target.buf.Len() != 0 {
		t.Errorf("bytes written to closed connection: %q", target.buf.String())
	}
}

func TestHeaderCaseInsensitive(t *testing.T) {
	resp := NewResponse(&fakeTarget{})
	resp.SetHeader("Content-Type", "text/html")
	if resp.Header("content-type") != "text/html" {
		t.Errorf("Header lookup not case-insensitive")
	}
}
