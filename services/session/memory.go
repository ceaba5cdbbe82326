package sessionsvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanes-app/lanes/core"
)

type memorySession struct {
	userID    string
	expiresAt time.Time
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	nowFunc  func() time.Time
}

var _ core.SessionStore = (*memoryStore)(nil)

// NewMemoryStore keeps the sessions in the process memory, for development and tests.
func NewMemoryStore() core.SessionStore {
	return &memoryStore{sessions: make(map[string]memorySession), nowFunc: time.Now}
}

func (s *memoryStore) Create(_ context.Context, userID string, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memorySession{userID: userID, expiresAt: s.nowFunc().Add(ttl)}
	return id, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return "", core.ErrSessionNotFound
	}
	if !s.nowFunc().Before(sess.expiresAt) {
		delete(s.sessions, id)
		return "", core.ErrSessionNotFound
	}
	return sess.userID, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
