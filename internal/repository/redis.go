package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pickpoint/internal/config"
	"pickpoint/internal/models"

	"github.com/redis/go-redis/v9"
)

const directoryKey = "locker_directory"

type RedisDirectoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisDirectoryCache(client *redis.Client, ttl time.Duration) *RedisDirectoryCache {
	return &RedisDirectoryCache{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisDirectoryCache) GetLockers(ctx context.Context) ([]models.Locker, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, directoryKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locker directory from redis: %w", err)
	}

	var lockers []models.Locker
	if err := json.Unmarshal([]byte(val), &lockers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal locker directory: %w", err)
	}

	return lockers, nil
}

func (r *RedisDirectoryCache) SetLockers(ctx context.Context, lockers []models.Locker) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(lockers)
	if err != nil {
		return fmt.Errorf("failed to marshal locker directory: %w", err)
	}

	if err := r.client.Set(ctx, directoryKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set locker directory in redis: %w", err)
	}

	return nil
}

func (r *RedisDirectoryCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, directoryKey).Err(); err != nil {
		return fmt.Errorf("failed to delete locker directory from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
