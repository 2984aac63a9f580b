package draftstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the Store interface using go-redis/v9. Every entry
// carries the configured TTL so abandoned drafts are eventually evicted
// instead of accumulating forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new RedisStore from a Redis URL. ttl applies to
// every saved draft and field-history list.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt draft is indistinguishable from no draft to the
		// caller; drop it so it cannot wedge the form again.
		slog.Warn("discarding malformed draft", "key", key, "error", err)
		_ = s.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) AppendFieldHistory(ctx context.Context, field, value string) error {
	key := FieldHistoryKey(field)
	pipe := s.client.TxPipeline()
	pipe.LRem(ctx, key, 0, value)
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, fieldHistoryCap-1)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// IncrWithExpiry increments a counter, setting its expiry only when the
// counter is created. The API rate limiter uses it as a fixed window.
func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = s.client.Expire(ctx, key, expiry).Err()
	}
	return count, nil
}

func (s *RedisStore) FieldHistory(ctx context.Context, field string) ([]string, error) {
	vals, err := s.client.LRange(ctx, FieldHistoryKey(field), 0, fieldHistoryCap-1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return vals, err
}
