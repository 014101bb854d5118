// File: server/request_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"testing"

	"github.com/momentics/hioload-http/internal/http1"
)

func TestNewRequestDecodesPath(t *testing.T) {
	pr := &http1.Request{
		Method:  "GET",
		Path:    "/a%20b/file.html?name=one&name=two",
		Version: "HTTP/1.1",
		Headers: map[string][]string{},
	}
	req := newRequest(pr, true, "10.0.0.1:5000")
	if req.Path != "/a b/file.html" {
		t.Errorf("Path = %q", req.Path)
	}
	if req.RawPath != "/a%20b/file.html?name=one&name=two" {
		t.Errorf("RawPath = %q", req.RawPath)
	}
	if !req.Secure || req.RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("Secure=%v RemoteAddr=%q", req.Secure, req.RemoteAddr)
	}
}

func TestParameterMapMergesQueryAndForm(t *testing.T) {
	pr := &http1.Request{
		Method:  "POST",
		Path:    "/submit?a=1",
		Version: "HTTP/1.1",
		Headers: map[string][]string{
			"Content-Type": {"application/x-www-form-urlencoded"},
		},
		Body: []byte("a=2&b=x%20y"),
	}
	req := newRequest(pr, false, "")
	params := req.ParameterMap()
	if got := params["a"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("a = %v", got)
	}
	if req.Parameter("b") != "x y" {
		t.Errorf("b = %q", req.Parameter("b"))
	}
	if req.Parameter("missing") != "" {
		t.Errorf("missing parameter should be empty")
	}
}

func TestRequestCookie(t *testing.T) {
	pr := &http1.Request{
		Method:  "GET",
		Path:    "/",
		Version: "HTTP/1.1",
		Headers: map[string][]string{
			"Cookie": {"sessionid=abc; theme=dark", "extra=1"},
		},
	}
	req := newRequest(pr, false, "")
	if req.Cookie("sessionid") != "abc" {
		t.Errorf("sessionid = %q", req.Cookie("sessionid"))
	}
	if req.Cookie("extra") != "1" {
		t.Errorf("extra = %q", req.Cookie("extra"))
	}
	if req.Cookie("none") != "" {
		t.Errorf("missing cookie should be empty")
	}
}
