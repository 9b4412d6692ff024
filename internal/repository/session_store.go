package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduportal-backend/internal/config"
)

// SessionStore tracks the single active token id of each student in Redis.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Activate registers jti as the student's session unless one is already active.
func (s *SessionStore) Activate(ctx context.Context, studentID int, jti string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, config.CacheKey.StudentSessionKey(studentID), jti, ttl).Result()
}

// Current returns the active token id, or ErrNotFound when none is stored.
func (s *SessionStore) Current(ctx context.Context, studentID int) (string, error) {
	jti, err := s.rdb.Get(ctx, config.CacheKey.StudentSessionKey(studentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return jti, err
}

// Revoke removes the student's session so a new login is possible.
func (s *SessionStore) Revoke(ctx context.Context, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentSessionKey(studentID)).Err()
}
