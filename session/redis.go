package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis. Every write refreshes the
// session's TTL, so idle visitors expire together with any staged checkout
// they abandoned mid-payment.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(sid, key string) string {
	return "session:" + sid + ":" + key
}

func (r *RedisStore) GetString(ctx context.Context, sid, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) SetString(ctx context.Context, sid, key, value string) error {
	return r.client.Set(ctx, r.key(sid, key), value, r.ttl).Err()
}

func (r *RedisStore) GetInt(ctx context.Context, sid, key string) (int, bool, error) {
	v, ok, err := r.GetString(ctx, sid, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (r *RedisStore) SetInt(ctx context.Context, sid, key string, value int) error {
	return r.SetString(ctx, sid, key, strconv.Itoa(value))
}

func (r *RedisStore) Remove(ctx context.Context, sid, key string) error {
	return r.client.Del(ctx, r.key(sid, key)).Err()
}
