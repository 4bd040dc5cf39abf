package match

import (
	"errors"
	"sync"
)

var ErrDuplicateMatch = errors.New("match id already exists")

// Store holds the active sessions keyed by match id. Callers mutate
// sessions through With so each event's read and write steps run as
// one exclusive region; *Session pointers must not escape the closure.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session, enforcing match id uniqueness.
func (s *Store) Create(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.MatchID]; ok {
		return ErrDuplicateMatch
	}
	s.sessions[sess.MatchID] = sess
	return nil
}

// With runs fn on the session under the store lock. Returns false when
// the match id is unknown, in which case fn does not run.
func (s *Store) With(matchID string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[matchID]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

// Delete removes the session unconditionally.
func (s *Store) Delete(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, matchID)
}

// DeleteIf removes the session only when cond holds, and reports
// whether it was removed. The grace-period reaper uses this to lose
// any race against a rejoin that already rebound the seat.
func (s *Store) DeleteIf(matchID string, cond func(*Session) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[matchID]
	if !ok || !cond(sess) {
		return false
	}
	delete(s.sessions, matchID)
	return true
}

// ForEachWithConn runs fn for every session where connID occupies a
// seat, passing the occupied slot. Used by the disconnect sweep.
func (s *Store) ForEachWithConn(connID string, fn func(*Session, int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if slot := sess.SlotOf(connID); slot != 0 {
			fn(sess, slot)
		}
	}
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
