package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long abandoned session state lingers in Redis.
const sessionTTL = 24 * time.Hour

// RedisStore keeps session state in Redis so multiple API instances share it.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("session: redis client required")
	}
	return &RedisStore{client: client}
}

func bookingKey(sessionID string) string    { return "session:" + sessionID + ":last_booking" }
func violationsKey(sessionID string) string { return "session:" + sessionID + ":violations" }

// SetLastBooking records the session's booking projection.
func (s *RedisStore) SetLastBooking(ctx context.Context, sessionID string, lb *LastBooking) error {
	if lb == nil {
		return errors.New("session: last booking required")
	}
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("session: marshal last booking: %w", err)
	}
	if err := s.client.Set(ctx, bookingKey(sessionID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("session: store last booking: %w", err)
	}
	return nil
}

// GetLastBooking returns the projection or ErrNoLastBooking.
func (s *RedisStore) GetLastBooking(ctx context.Context, sessionID string) (*LastBooking, error) {
	data, err := s.client.Get(ctx, bookingKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoLastBooking
	}
	if err != nil {
		return nil, fmt.Errorf("session: load last booking: %w", err)
	}
	var lb LastBooking
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, fmt.Errorf("session: decode last booking: %w", err)
	}
	return &lb, nil
}

// IncrViolations bumps the moderation counter and returns the new value.
func (s *RedisStore) IncrViolations(ctx context.Context, sessionID string) (int, error) {
	n, err := s.client.Incr(ctx, violationsKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("session: increment violations: %w", err)
	}
	// First flag in a session also sets the TTL.
	if n == 1 {
		s.client.Expire(ctx, violationsKey(sessionID), sessionTTL)
	}
	return int(n), nil
}

// Violations returns the current counter without changing it.
func (s *RedisStore) Violations(ctx context.Context, sessionID string) (int, error) {
	n, err := s.client.Get(ctx, violationsKey(sessionID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("session: load violations: %w", err)
	}
	return n, nil
}

// Reset clears all state for the session.
func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, bookingKey(sessionID), violationsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	return nil
}
