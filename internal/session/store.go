// Package session holds per-identity questionnaire state in process memory.
// A Store is an explicit object with its own lifetime so tests can run
// isolated instances in parallel; there is no package-level registry.
package session

import (
	"sync"
	"time"

	"tax-interview-agent/internal/domain"
)

const (
	defaultTTL    = 30 * time.Minute
	sweepInterval = time.Minute
)

type entry struct {
	mu       sync.Mutex
	state    domain.SessionState
	lastSeen time.Time
}

// Store keeps one SessionState per identity. Turns for the same identity
// are serialized on a per-identity mutex; different identities proceed in
// parallel. Idle sessions are evicted lazily after the configured TTL, so
// no background goroutine runs.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

// NewStore creates a Store evicting sessions idle longer than ttl.
// Non-positive ttl falls back to 30 minutes.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// Do runs fn with exclusive access to the identity's state, creating the
// initial state lazily on first interaction.
func (s *Store) Do(identity string, fn func(*domain.SessionState) error) error {
	e := s.acquire(identity)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.state)
}

// View runs fn with a copy of the identity's state. Unknown identities are
// a no-op; View never creates a session.
func (s *Store) View(identity string, fn func(domain.SessionState)) {
	s.mu.Lock()
	e, ok := s.sessions[identity]
	s.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	snapshot := e.state.Clone()
	e.mu.Unlock()
	fn(snapshot)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) acquire(identity string) *entry {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	e, ok := s.sessions[identity]
	if !ok {
		e = &entry{state: domain.NewSessionState(identity)}
		s.sessions[identity] = e
	}
	e.lastSeen = now
	return e
}

// sweepLocked drops sessions idle past the TTL. Rate-limited so large maps
// are not rescanned on every turn.
func (s *Store) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
