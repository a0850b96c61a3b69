package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dealdesk/internal/platform/middleware"
)

const (
	idempotencyPrefix = "dealdesk:idem:"
	reservationPrefix = "dealdesk:idem:lock:"
)

// IdempotencyStore keeps replayable responses in redis under a TTL.
type IdempotencyStore struct {
	client redis.Cmdable
}

func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Load(ctx context.Context, key string) (*middleware.CachedResponse, error) {
	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	var resp middleware.CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &resp, nil
}

// Reserve claims key with SET NX on a separate lock key. A key that already
// holds a response is never reclaimed.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := s.client.Exists(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	ok, err := s.client.SetNX(ctx, reservationPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Save writes with SET NX so the first response for a key wins, and drops
// the claim in the same transaction.
func (s *IdempotencyStore) Save(ctx context.Context, key string, resp middleware.CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, idempotencyPrefix+key, raw, ttl)
		pipe.Del(ctx, reservationPrefix+key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, reservationPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
