package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// RedisStore implementa IdempotencyStore sobre Redis.
// SetNX da la inserción atómica "comprobar ausente y marcar" en un solo paso.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ domain.IdempotencyStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrIdempotencyKeyNotFound
		}
		return nil, err
	}

	var rec domain.IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, rec domain.IdempotencyRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, redisKey(key), data, s.ttl).Result()
}

func (s *RedisStore) Update(ctx context.Context, key string, rec domain.IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// KeepTTL conserva la expiración fijada al reclamar la clave.
	return s.client.Set(ctx, redisKey(key), data, redis.KeepTTL).Err()
}
