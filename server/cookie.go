// File: server/cookie.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"strconv"
	"strings"
)

// Cookie describes one HTTP cookie for a Set-Cookie response header.
type Cookie struct {
	Name     string
	Value    string
	MaxAge   int // seconds, 0 omits the attribute
	Path     string
	Comment  string
	Domain   string
	Secure   bool
	HTTPOnly bool
}

// String renders the cookie in Set-Cookie wire format, version 1.
func (c Cookie) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte('=')
	sb.WriteString(c.Value)
	if c.Comment != "" {
		sb.WriteString("; Comment=")
		sb.WriteString(c.Comment)
	}
	if c.Domain != "" {
		sb.WriteString("; Domain=")
		sb.WriteString(c.Domain)
	}
	if c.MaxAge != 0 {
		sb.WriteString("; Max-Age=")
		sb.WriteString(strconv.Itoa(c.MaxAge))
	}
	if c.Path != "" {
		sb.WriteString("; Path=")
		sb.WriteString(c.Path)
	}
	if c.Secure {
		sb.WriteString("; Secure")
	}
	if c.HTTPOnly {
		sb.WriteString("; HttpOnly")
	}
	sb.WriteString("; Version=1")
	return sb.String()
}

// parseCookies splits a request Cookie header value into name/value
// pairs. Attributes like $Version are skipped.
func parseCookies(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "$") {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}
