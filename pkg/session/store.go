package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/troopbase/troopbase/pkg/access"
)

// ErrSessionNotFound indicates the session ID does not resolve to a live
// session
var ErrSessionNotFound = fmt.Errorf("session not found")

// DefaultTTL is the sliding session lifetime
const DefaultTTL = 24 * time.Hour

// Store defines session persistence operations
type Store interface {
	Create(ctx context.Context, principal *access.Principal) (string, error)
	Get(ctx context.Context, sessionID string) (*access.Principal, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore implements Store over Redis. Each Get refreshes the TTL so
// active sessions stay alive.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store. A zero ttl means
// DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Create stores the principal under a fresh random session ID
func (s *RedisStore) Create(ctx context.Context, principal *access.Principal) (string, error) {
	if principal == nil || principal.UserID == 0 {
		return "", fmt.Errorf("principal with user ID is required")
	}

	payload, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("failed to marshal principal: %w", err)
	}

	sessionID := uuid.New().String()
	if err := s.client.Set(ctx, sessionKey(sessionID), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

// Get resolves a session ID to its principal and slides the TTL
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*access.Principal, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	principal := &access.Principal{}
	if err := json.Unmarshal(payload, principal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal principal: %w", err)
	}

	// Best effort: a failed refresh only shortens the session.
	s.client.Expire(ctx, sessionKey(sessionID), s.ttl)

	return principal, nil
}

// Delete removes a session. The user is unauthenticated on their next
// request.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	deleted, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}
