package store

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/domain"
)

// SessionStore is the shared, mutex-guarded table of in-flight and completed
// batch sessions. Session state lives only in memory; it does not survive a
// process restart.
//
// All reads and writes of a session's mutable fields happen while holding
// the store-wide lock. The lock is only ever held for O(1) field updates —
// never across an external call or a sleep — so a single lock is enough.
// Callers get deep-copied snapshots and never touch stored state directly.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
	logger   *slog.Logger
}

// NewSessionStore creates an empty session store.
// If logger is nil, the default logger is used.
func NewSessionStore(logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]*domain.Session),
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Create registers a new session for the given files and returns a snapshot
// of it. The file payloads must already be copies owned by the caller; the
// store retains them for the session lifetime to support retries.
func (s *SessionStore) Create(files []domain.FileUpload) (*domain.Session, error) {
	session, err := domain.NewSession(files)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.Int("total_files", session.TotalFiles))

	return session.Clone(), nil
}

// Get returns a snapshot of the session with the given id, or
// ErrSessionNotFound.
func (s *SessionStore) Get(id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Mutate runs fn against the stored session under the store lock. It returns
// false when the session no longer exists, which in-flight workers must
// treat as "abandon silently": completing an update for a just-deleted
// session must not resurrect it.
//
// fn must only perform in-memory field updates; it runs while the lock is
// held.
func (s *SessionStore) Mutate(id uuid.UUID, fn func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(session)
	return true
}

// Delete removes the session unconditionally, whatever its status. Returns
// false when no such session exists. Background work referencing the session
// is not stopped; it will notice the disappearance on its next Mutate.
func (s *SessionStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("session deleted", slog.String("session_id", id.String()))
	}
	return ok
}

// Len reports how many sessions are currently held. There is no TTL or
// eviction for completed sessions, so this is the only visibility an
// operator has into store growth.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
