package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesv/horasbot/internal/model/convo"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps the process-wide conversation sessions. Lookups by user id go
// through a secondary index so resolution stays O(1) as session volume
// grows. Nothing is evicted and nothing is persisted; a restart loses all
// conversations.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*convo.Session
	byUser   map[string]string
	locks    map[string]*sync.Mutex
}

// NewStore bootstraps an empty in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*convo.Session),
		byUser:   make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

// FindOrCreate resolves the session for a channel user id, allocating a new
// one with an empty context on first contact. At most one session exists per
// user; concurrent calls for the same user converge on a single session.
func (s *Store) FindOrCreate(userID string) convo.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUser[userID]; ok {
		return *s.sessions[id]
	}

	sess := &convo.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	s.byUser[userID] = sess.ID
	s.locks[sess.ID] = &sync.Mutex{}
	return *sess
}

// Get retrieves a session by identifier.
func (s *Store) Get(sessionID string) (convo.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return convo.Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// SetContext overwrites the stored context for a session.
func (s *Store) SetContext(sessionID string, ctx convo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Context = ctx
	return nil
}

// Delete drops a session and its user index entry. Deleting an unknown
// session is a no-op.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(s.byUser, sess.UserID)
	delete(s.sessions, sessionID)
	delete(s.locks, sessionID)
}

// Sequence acquires the per-session processing lock so events for one user
// are handled in arrival order rather than completion order. The returned
// function releases the lock. Sequencing an unknown or deleted session
// still serializes callers that raced on the same id.
func (s *Store) Sequence(sessionID string) (release func()) {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
