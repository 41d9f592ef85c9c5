package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDatabase stores values as plain redis strings.
type RedisDatabase struct {
	client *redis.Client
}

// NewRedisDatabase connects using a redis URL, e.g. redis://localhost:6379/0
func NewRedisDatabase(connectionString string) (DatabaseService, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return &RedisDatabase{client: redis.NewClient(opts)}, nil
}

// CreateDatabase only verifies connectivity; redis has no schema.
func (r *RedisDatabase) CreateDatabase() (*sql.DB, error) {
	if err := r.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil, nil
}

func (r *RedisDatabase) DoesDatabaseExist() bool {
	return r.client.Ping(context.Background()).Err() == nil
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (r *RedisDatabase) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisDatabase) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
