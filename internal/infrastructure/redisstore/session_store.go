// Package redisstore implements sessions and one-time tokens on Redis.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
)

func SessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SessionStore keeps each session as a Redis hash under user:session:<uid>.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(ctx context.Context, sess entity.Session, ttl time.Duration) error {
	fields := map[string]any{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"name":       sess.Name,
		"avatar_url": sess.AvatarURL,
		"sid":        sess.SessionID,
		"logged_in":  true,
		"created_at": nowRFC3339(),
	}
	key := SessionKey(sess.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.Store("save session", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*entity.Session, error) {
	data, err := s.rdb.HGetAll(ctx, SessionKey(userID)).Result()
	if err != nil {
		return nil, apperror.Store("get session", err)
	}
	if len(data) == 0 {
		return nil, apperror.NotFound("session not found")
	}
	sess := &entity.Session{
		UserID:    data["user_id"],
		SessionID: data["sid"],
		Email:     data["email"],
		Name:      data["name"],
		AvatarURL: data["avatar_url"],
	}
	if t, err := time.Parse(time.RFC3339Nano, data["created_at"]); err == nil {
		sess.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["updated_at"]); err == nil {
		sess.UpdatedAt = t
	}
	return sess, nil
}

// updateKeepingTTL writes fields to an existing session without resetting
// its expiry. Missing sessions are left alone.
func (s *SessionStore) updateKeepingTTL(ctx context.Context, userID string, fields map[string]any) error {
	key := SessionKey(userID)
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return apperror.Store("session ttl", err)
	}
	if ttl <= 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.Store("update session", err)
	}
	return nil
}

func (s *SessionStore) Rotate(ctx context.Context, userID, sessionID string) error {
	return s.updateKeepingTTL(ctx, userID, map[string]any{
		"sid":        sessionID,
		"updated_at": nowRFC3339(),
	})
}

func (s *SessionStore) UpdateProfile(ctx context.Context, userID, name, avatarURL string) error {
	return s.updateKeepingTTL(ctx, userID, map[string]any{
		"name":       name,
		"avatar_url": avatarURL,
		"updated_at": nowRFC3339(),
	})
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, SessionKey(userID)).Err(); err != nil {
		return apperror.Store("delete session", err)
	}
	return nil
}

// TokenStore keeps one-time tokens as plain Redis strings with a TTL.
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

var _ repository.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperror.Store("set token", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.NotFound("token not found")
	}
	if err != nil {
		return "", apperror.Store("get token", err)
	}
	return v, nil
}

func (s *TokenStore) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return apperror.Store("delete token", err)
	}
	return nil
}
