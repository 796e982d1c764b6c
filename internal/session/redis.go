package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// DefaultIdleTTL is the sliding idle timeout after which redis destroys a
// session. Idle teardown is redis's job, not the core's.
const DefaultIdleTTL = 30 * time.Minute

// RedisStore persists JSON session snapshots in redis with a sliding idle
// TTL. Per-customer serialization is in-process: this store is built for the
// single-process core, redis only adds durability and idle expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  KeyedMutex
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(customerID string) string {
	return "session:" + customerID
}

func (s *RedisStore) load(ctx context.Context, customerID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, key(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewSession(customerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", customerID, err)
	}

	sess := &domain.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", customerID, err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, customerID string) (*domain.Session, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()
	return s.load(ctx, customerID)
}

func (s *RedisStore) Update(ctx context.Context, customerID string, fn func(*domain.Session) error) (*domain.Session, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	sess, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", customerID, err)
	}
	if err := s.client.Set(ctx, key(customerID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session %s: %w", customerID, err)
	}
	return sess, nil
}
