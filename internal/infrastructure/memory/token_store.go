package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
)

type tokenEntry struct {
	value     string
	expiresAt time.Time
}

// TokenStore is a TTL-aware key/value map.
type TokenStore struct {
	mu    sync.Mutex
	items map[string]tokenEntry
	now   func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{items: make(map[string]tokenEntry), now: time.Now}
}

var _ repository.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := tokenEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = e
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok || (!e.expiresAt.IsZero() && s.now().After(e.expiresAt)) {
		delete(s.items, key)
		return "", apperror.NotFound("token not found")
	}
	return e.value, nil
}

func (s *TokenStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// SessionStore keeps sessions in memory; TTLs are not enforced.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]entity.Session)}
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(ctx context.Context, sess entity.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, apperror.NotFound("session not found")
	}
	return &sess, nil
}

func (s *SessionStore) Rotate(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return apperror.NotFound("session not found")
	}
	sess.SessionID = sessionID
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[userID] = sess
	return nil
}

func (s *SessionStore) UpdateProfile(ctx context.Context, userID, name, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	sess.Name = name
	sess.AvatarURL = avatarURL
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[userID] = sess
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
