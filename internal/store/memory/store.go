package memory

import (
	"context"
	"sync"
	"time"

	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"
)

// Store keeps sessions in process. Used when no DB_DSN is configured.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]session.Session), now: time.Now}
}

func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[store.Digest(sess.ID)] = sess
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[store.Digest(sessionID)]
	s.mu.RUnlock()
	if !ok {
		return session.Session{}, store.ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		return session.Session{}, store.ErrSessionExpired
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, store.Digest(sessionID))
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, sess := range s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}
