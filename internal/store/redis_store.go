package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions configure the connection of a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements the Store interface using Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to Redis and checks the connection with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", wrap("get", key, err)
	}
	return val, nil
}

func (s *RedisStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("exists: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	n, err := s.client.RPush(ctx, key, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("rpush %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) RPop(ctx context.Context, key string) (string, error) {
	val, err := s.client.RPop(ctx, key).Result()
	if err != nil {
		return "", wrap("rpop", key, err)
	}
	return val, nil
}

func (s *RedisStore) BLPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	res, err := s.client.BLPop(ctx, timeout, key).Result()
	if err != nil {
		return "", wrap("blpop", key, err)
	}
	// res is [key, value]
	if len(res) != 2 {
		return "", fmt.Errorf("blpop %s: unexpected reply of %d elements", key, len(res))
	}
	return res[1], nil
}

func (s *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	ok, err := s.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("hsetnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", wrap("hget", key, err)
	}
	return val, nil
}

func (s *RedisStore) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := s.client.HExists(ctx, key, field).Result()
	if err != nil {
		return false, fmt.Errorf("hexists %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) HScan(ctx context.Context, key string) (map[string]string, error) {
	out := make(map[string]string)
	var cursor uint64
	for {
		kvs, next, err := s.client.HScan(ctx, key, cursor, "", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("hscan %s: %w", key, err)
		}
		for i := 0; i+1 < len(kvs); i += 2 {
			out[kvs[i]] = kvs[i+1]
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("compare and delete %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wrap(op, key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNil
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
