package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xak1234/Huntley/domain"
)

// RedisStorage keeps the snapshot as a single string value.
type RedisStorage struct {
	client *redis.Client
	key    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	if cfg.Addr == "" || cfg.Key == "" {
		return nil, errors.New("redis addr and key must be provided")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStorage{client: client, key: cfg.Key}, nil
}

// Ping checks connectivity; used at startup.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStorage) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

var _ domain.SnapshotStorage = (*RedisStorage)(nil)
