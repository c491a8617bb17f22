package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix  = "idem:checkout:"
	idempotencyPending = "pending"
)

// RedisIdempotencyStore claims idempotency keys with SET NX. A claimed key
// holds "pending" until the checkout finishes and then the order id.
type RedisIdempotencyStore struct {
	client redis.Cmdable
}

func NewRedisIdempotencyStore(client redis.Cmdable) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (r *RedisIdempotencyStore) getKey(key string) string {
	return idempotencyPrefix + key
}

func (r *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, r.getKey(key), idempotencyPending, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := r.client.Get(ctx, r.getKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = r.client.SetNX(ctx, r.getKey(key), idempotencyPending, ttl).Result()
		return "", ok, err
	}
	if err != nil {
		return "", false, err
	}
	if val == idempotencyPending {
		return "", false, nil
	}
	return val, false, nil
}

func (r *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.getKey(key), orderID, ttl).Err()
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.getKey(key)).Err()
}
