// Package session implements the in-memory conversation state store: at most
// one Session per chat ID, with per-chat turn serialization and idle expiry.
//
// State lives only in process memory. A restart loses all in-flight sessions;
// affected users simply restart the flow with /start.
package session

import (
	"sync"
	"time"
)

// State enumerates the conversation steps. The absence of a session is the
// implicit "no session" state: initial, terminal, and the only state from
// which nothing but /start has an effect.
type State string

const (
	StateAwaitingName     State = "awaiting_name"
	StateAwaitingPhone    State = "awaiting_phone"
	StateAwaitingQuestion State = "awaiting_question"
)

// Session is the per-chat record of conversation progress. Name is set
// before the session reaches StateAwaitingPhone; Phone is set before it
// reaches StateAwaitingQuestion.
type Session struct {
	State          State
	Name           string
	Phone          string
	LastActivityAt time.Time
}

// entry wraps a chat's session together with its turn lock. The entry
// outlives the session so the lock stays stable across reset/expiry.
type entry struct {
	turn     sync.Mutex
	sess     *Session
	lastSeen time.Time
}

// Store maps chat IDs to sessions. All methods are safe for concurrent use;
// Acquire additionally hands out the per-chat turn lock so that messages
// from one chat are processed sequentially while other chats proceed
// unhindered.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	ttl     time.Duration
	sweepN  uint64

	now func() time.Time // test seam
}

// NewStore creates a Store whose sessions expire after ttl of inactivity.
// A non-positive ttl falls back to 30 minutes.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		entries: make(map[int64]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Acquire blocks until the chat's turn lock is held and returns the release
// function. Every turn for a chat must run between Acquire and the returned
// release; this is what serializes concurrent messages from the same user.
//
// Acquire also performs opportunistic cleanup of idle entries so the map
// stays bounded without a background goroutine.
func (s *Store) Acquire(chatID int64) func() {
	now := s.now()

	s.mu.Lock()
	s.sweepN++
	if s.sweepN >= 4096 {
		s.sweepLocked(now)
		s.sweepN = 0
	}
	e, ok := s.entries[chatID]
	if !ok {
		e = &entry{}
		s.entries[chatID] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	e.turn.Lock()
	return e.turn.Unlock
}

// Get returns a copy of the chat's session. A session idle for ttl or
// longer is dropped and reported as absent.
func (s *Store) Get(chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[chatID]
	if !ok || e.sess == nil {
		return Session{}, false
	}
	if s.now().Sub(e.sess.LastActivityAt) >= s.ttl {
		e.sess = nil
		return Session{}, false
	}
	return *e.sess, true
}

// Put stores sess as the chat's single session, stamping LastActivityAt.
func (s *Store) Put(chatID int64, sess Session) {
	sess.LastActivityAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[chatID]
	if !ok {
		e = &entry{}
		s.entries[chatID] = e
	}
	e.lastSeen = sess.LastActivityAt
	e.sess = &sess
}

// Delete clears the chat's session, returning it to the no-session state.
// The entry (and its turn lock) is retained; cleanup reclaims it later.
func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[chatID]; ok {
		e.sess = nil
	}
}

// Len reports the number of live (non-expired) sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if e.sess != nil && now.Sub(e.sess.LastActivityAt) < s.ttl {
			n++
		}
	}
	return n
}

// sweepLocked evicts entries idle for ttl or longer. Entries whose turn lock
// is currently held are skipped and picked up on a later sweep. Callers must
// hold s.mu.
func (s *Store) sweepLocked(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) < s.ttl {
			continue
		}
		if !e.turn.TryLock() {
			continue
		}
		e.turn.Unlock()
		delete(s.entries, id)
	}
}
