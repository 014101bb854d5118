// File: session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Store maps session cookies to sessions. Lookups and mutations share
// one mutex with the periodic expiry sweep, so a session can never be
// read while it is being removed.

package session

import (
	"sync"
	"time"

	"github.com/momentics/hioload-http/internal/obs"
	"github.com/momentics/hioload-http/server"
)

// Config holds session store parameters.
type Config struct {
	CookieName     string        // default "sessionid"
	ExpirationTime time.Duration // idle time before a session expires
	SweepInterval  time.Duration // how often expired sessions are removed
	CookiePath     string
	CookieComment  string
	CookieDomain   string
}

// DefaultConfig returns the defaults: cookie "sessionid", one hour
// expiration, sweep every minute.
func DefaultConfig() *Config {
	return &Config{
		CookieName:     "sessionid",
		ExpirationTime: time.Hour,
		SweepInterval:  60 * time.Second,
	}
}

// Store is the thread-safe session registry.
type Store struct {
	cfg *Config

	mu       sync.Mutex
	sessions map[string]*Session

	done chan struct{}
}

// NewStore creates the store and starts the expiry sweeper.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "sessionid"
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 60 * time.Second
	}
	st := &Store{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	obs.Debugf("SessionStore: sessions expire after %v", cfg.ExpirationTime)
	go st.sweeper()
	return st
}

// Close stops the expiry sweeper.
func (st *Store) Close() {
	close(st.done)
}

// sessionID resolves the session id for a request. The id on the
// response cookie has priority because that one will be used in the
// next request. Must be called with the store lock held.
func (st *Store) sessionID(req *server.Request, resp *server.Response) string {
	id := resp.Cookies()[st.cfg.CookieName].Value
	if id == "" {
		id = req.Cookie(st.cfg.CookieName)
	}
	if id != "" {
		if _, ok := st.sessions[id]; !ok {
			obs.Debugf("SessionStore: received invalid session cookie with ID %s", id)
			return ""
		}
	}
	return id
}

// GetSession returns the session for the request, refreshing its
// cookie and last-access time. With allowCreate a missing session is
// created with a fresh unguessable id; without it nil is returned and
// nothing is mutated.
func (st *Store) GetSession(req *server.Request, resp *server.Response, allowCreate bool) *Session {
	st.mu.Lock()
	id := st.sessionID(req, resp)
	if id != "" {
		s := st.sessions[id]
		s.setLastAccess(time.Now())
		st.mu.Unlock()
		// Refresh the session cookie for sliding expiration.
		resp.SetCookie(st.cookie(id))
		return s
	}
	if allowCreate {
		id = newSessionID()
		s := newSession(id)
		st.sessions[id] = s
		st.mu.Unlock()
		obs.Debugf("SessionStore: create new session with ID %s", id)
		resp.SetCookie(st.cookie(id))
		return s
	}
	st.mu.Unlock()
	return nil
}

// SessionByID fetches a session directly, refreshing its last-access
// time. Returns nil if absent.
func (st *Store) SessionByID(id string) *Session {
	st.mu.Lock()
	s := st.sessions[id]
	st.mu.Unlock()
	if s != nil {
		s.setLastAccess(time.Now())
	}
	return s
}

// Remove deletes a session.
func (st *Store) Remove(s *Session) {
	if s == nil {
		return
	}
	st.mu.Lock()
	delete(st.sessions, s.id)
	st.mu.Unlock()
}

// Count returns the number of stored sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) cookie(id string) server.Cookie {
	return server.Cookie{
		Name:    st.cfg.CookieName,
		Value:   id,
		MaxAge:  int(st.cfg.ExpirationTime / time.Second),
		Path:    st.cfg.CookiePath,
		Comment: st.cfg.CookieComment,
		Domain:  st.cfg.CookieDomain,
	}
}

func (st *Store) sweeper() {
	ticker := time.NewTicker(st.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.Sweep(time.Now())
		case <-st.done:
			return
		}
	}
}

// Sweep removes every session idle longer than the expiration time. It
// holds the same lock as the accessors.
func (st *Store) Sweep(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if now.Sub(s.LastAccess()) > st.cfg.ExpirationTime {
			obs.Debugf("SessionStore: session %s expired", id)
			delete(st.sessions, id)
		}
	}
}
