package services

import (
	"sync"
	"time"
)

// session holds the candidate signatures and lifecycle states of one
// session holder. Operations on a session are serialised by mu; distinct
// sessions never contend.
type session struct {
	mu       sync.Mutex
	checks   map[string]*check
	lastSeen time.Time
}

func newSession(now time.Time) *session {
	return &session{checks: make(map[string]*check), lastSeen: now}
}

// check returns the state for recordID, creating it in Stored. Callers hold mu.
func (s *session) check(recordID string) *check {
	c, ok := s.checks[recordID]
	if !ok {
		c = newCheck()
		s.checks[recordID] = c
	}
	return c
}

// wipe purges every revealed plaintext of the session.
func (s *session) wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.checks {
		c.purge(Unknown)
	}
}
