package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSeenStore backs the idempotency cache with a shared store so
// multiple instances agree on which hashes were processed.
type RedisSeenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSeenStore(client *redis.Client, ttl time.Duration) *RedisSeenStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSeenStore{client: client, ttl: ttl}
}

func seenKey(txHash string) string {
	return "webhook:seen:" + txHash
}

func (s *RedisSeenStore) Seen(ctx context.Context, txHash string) (bool, error) {
	n, err := s.client.Exists(ctx, seenKey(txHash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisSeenStore) Add(ctx context.Context, txHash string) error {
	return s.client.Set(ctx, seenKey(txHash), 1, s.ttl).Err()
}
