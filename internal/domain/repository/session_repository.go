package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
)

// SessionStore keeps one active session per user.
type SessionStore interface {
	Save(ctx context.Context, s entity.Session, ttl time.Duration) error
	// Get returns apperror.ErrNotFound when the user has no session.
	Get(ctx context.Context, userID string) (*entity.Session, error)
	// Rotate replaces the session id and keeps the remaining TTL.
	Rotate(ctx context.Context, userID, sessionID string) error
	// UpdateProfile refreshes the cached profile fields and keeps the TTL.
	UpdateProfile(ctx context.Context, userID, name, avatarURL string) error
	Delete(ctx context.Context, userID string) error
}

// TokenStore holds short-lived one-time tokens (password reset, account
// deletion confirmation).
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns apperror.ErrNotFound for unknown or expired keys.
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}
