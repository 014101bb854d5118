// File: staticfiles/cache_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package staticfiles

import (
	"testing"
	"time"
)

func TestCacheInsertAndGet(t *testing.T) {
	c := newContentCache(100, time.Minute)
	now := time.Now()
	c.Insert("/a", []byte("hello"), "/docroot/a", now)

	doc, filename, ok := c.Get("/a", now)
	if !ok {
		t.Fatal("entry missing")
	}
	if string(doc) != "hello" || filename != "/docroot/a" {
		t.Errorf("got %q, %q", doc, filename)
	}

	// The returned slice is a copy; mutating it must not poison the
	// cached document.
	doc[0] = 'X'
	doc2, _, _ := c.Get("/a", now)
	if string(doc2) != "hello" {
		t.Errorf("cached document mutated: %q", doc2)
	}
}

func TestCacheStaleEntryIsMiss(t *testing.T) {
	c := newContentCache(100, time.Minute)
	now := time.Now()
	c.Insert("/a", []byte("old"), "a", now)

	if _, _, ok := c.Get("/a", now.Add(2*time.Minute)); ok {
		t.Error("stale entry served")
	}
	// The entry is not swept, it stays resident until evicted.
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestCacheEvictsOldestInsertions(t *testing.T) {
	c := newContentCache(10, 0)
	now := time.Now()
	c.Insert("/a", []byte("aaaa"), "a", now)
	c.Insert("/b", []byte("bbbb"), "b", now)
	c.Insert("/c", []byte("cccc"), "c", now)

	if _, _, ok := c.Get("/a", now); ok {
		t.Error("oldest entry not evicted")
	}
	if _, _, ok := c.Get("/b", now); !ok {
		t.Error("entry /b evicted too early")
	}
	if _, _, ok := c.Get("/c", now); !ok {
		t.Error("newest entry missing")
	}
	if c.Cost() != 8 {
		t.Errorf("Cost = %d", c.Cost())
	}
}

func TestCacheRejectsOversizedDocument(t *testing.T) {
	c := newContentCache(4, 0)
	c.Insert("/big", []byte("too large"), "big", time.Now())
	if c.Len() != 0 {
		t.Errorf("oversized document stored")
	}
}

func TestCacheReplaceSamePath(t *testing.T) {
	c := newContentCache(100, 0)
	now := time.Now()
	c.Insert("/a", []byte("one"), "a", now)
	c.Insert("/a", []byte("three"), "a", now)

	doc, _, ok := c.Get("/a", now)
	if !ok || string(doc) != "three" {
		t.Fatalf("got %q, %v", doc, ok)
	}
	if c.Len() != 1 || c.Cost() != 5 {
		t.Errorf("Len = %d, Cost = %d", c.Len(), c.Cost())
	}
}

func TestCacheZeroTTLNeverStale(t *testing.T) {
	c := newContentCache(100, 0)
	now := time.Now()
	c.Insert("/a", []byte("keep"), "a", now)
	if _, _, ok := c.Get("/a", now.Add(24*time.Hour)); !ok {
		t.Error("entry expired with ttl 0")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct{ filename, want string }{
		{"/img/logo.png", "image/png"},
		{"/index.html", "text/html; charset=UTF-8"},
		{"/notes.TXT", "text/plain; charset=UTF-8"},
		{"/data.json", "application/json"},
		{"/archive.unknown", ""},
		{"/noextension", ""},
	}
	for _, tc := range cases {
		if got := contentTypeFor(tc.filename, "UTF-8"); got != tc.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}
