package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "booking_session:"

// RedisSessionStore persists sessions in Redis so multiple API instances and
// workers share the same dialogue state.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

func sessionKey(patientPhone string) string {
	return sessionKeyPrefix + patientPhone
}

func (s *RedisSessionStore) Get(ctx context.Context, patientPhone string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(patientPhone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("conversation: get session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.PatientPhone), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, patientPhone string) error {
	if err := s.redis.Del(ctx, sessionKey(patientPhone)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}
