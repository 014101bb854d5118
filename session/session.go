// File: session/session.go
// Package session provides cookie-keyed server-side state with sliding
// expiration.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session holds the server-side state for one client, identified by an
// unpredictable cookie value. Instances are shared between concurrent
// requests of the same client; the data map is guarded internally.
type Session struct {
	id string

	mu         sync.RWMutex
	lastAccess time.Time
	data       map[string]any
}

func newSession(id string) *Session {
	return &Session{
		id:         id,
		lastAccess: time.Now(),
		data:       make(map[string]any),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Get fetches a stored value.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes a key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys returns all stored keys.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// LastAccess returns the time of the most recent access.
func (s *Session) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *Session) setLastAccess(t time.Time) {
	s.mu.Lock()
	s.lastAccess = t
	s.mu.Unlock()
}

// newSessionID generates an unguessable 128-bit identifier.
func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("session: cannot read random source: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
