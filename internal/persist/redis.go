package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mzilka/tripbooker/config"
	"github.com/mzilka/tripbooker/internal/service/bookingstate"
)

const opTimeout = 3 * time.Second

// RedisStore keeps the whole trip snapshot under one key so an interrupted
// session resumes where it left off. The TTL bounds how long an abandoned
// trip lingers.
type RedisStore struct {
	client  *redis.Client
	session string
	ttl     time.Duration
}

func NewRedisStore(cfg config.RedisConfig, session string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:  redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		session: session,
		ttl:     ttl,
	}
}

func (s *RedisStore) Load() (*bookingstate.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load trip snapshot: %w", err)
	}

	var snapshot bookingstate.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode trip snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *RedisStore) Save(snapshot bookingstate.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode trip snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key(), payload, s.ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key() string {
	return fmt.Sprintf("trip:session:%s", s.session)
}
