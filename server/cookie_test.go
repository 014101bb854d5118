// File: server/cookie_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "testing"

func TestCookieString(t *testing.T) {
	c := Cookie{
		Name:     "sessionid",
		Value:    "abc123",
		MaxAge:   3600,
		Path:     "/app",
		Comment:  "state",
		Domain:   "example.com",
		Secure:   true,
		HTTPOnly: true,
	}
	want := "sessionid=abc123; Comment=state; Domain=example.com; Max-Age=3600; Path=/app; Secure; HttpOnly; Version=1"
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCookieStringMinimal(t *testing.T) {
	c := Cookie{Name: "k", Value: "v"}
	if got := c.String(); got != "k=v; Version=1" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseCookies(t *testing.T) {
	got := parseCookies("$Version=1; sessionid=abc; theme = dark ;; $Path=/")
	if len(got) != 2 {
		t.Fatalf("parsed %v", got)
	}
	if got["sessionid"] != "abc" || got["theme"] != "dark" {
		t.Errorf("parsed %v", got)
	}
}
