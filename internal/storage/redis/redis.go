package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * NewWithClient оборачивает уже созданный клиент (используется в тестах с miniredis)
func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

// * Set сохраняет значение с TTL; по истечении TTL ключ исчезает сам
func (r *RedisRepo) Set(ctx context.Context, key storage.Key, value []byte, ttl time.Duration) error {
	const op = "storage.redis.Set"

	if err := r.client.Set(ctx, key.String(), value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Get возвращает значение или storage.ErrKeyNotFound (истекший и отсутствующий ключ неразличимы)
func (r *RedisRepo) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	const op = "storage.redis.Get"

	value, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

// * GetDel атомарно читает и удаляет ключ (GETDEL).
// Только один из конкурентных вызовов получит значение
func (r *RedisRepo) GetDel(ctx context.Context, key storage.Key) ([]byte, error) {
	const op = "storage.redis.GetDel"

	value, err := r.client.GetDel(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

// * Delete удаляет ключ. Удаление отсутствующего ключа не является ошибкой
func (r *RedisRepo) Delete(ctx context.Context, key storage.Key) (bool, error) {
	const op = "storage.redis.Delete"

	n, err := r.client.Del(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// * Incr увеличивает счетчик; TTL выставляется при первом инкременте
func (r *RedisRepo) Incr(ctx context.Context, key storage.Key, ttl time.Duration) (int64, error) {
	const op = "storage.redis.Incr"

	n, err := r.client.Incr(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if n == 1 && ttl > 0 {
		if err := r.client.PExpire(ctx, key.String(), ttl).Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	return n, nil
}

// * TTL возвращает оставшееся время жизни ключа; 0 - ключ без срока
func (r *RedisRepo) TTL(ctx context.Context, key storage.Key) (time.Duration, error) {
	const op = "storage.redis.TTL"

	d, err := r.client.PTTL(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	// -2: ключа нет, -1: ключ без срока
	switch {
	case d == -2:
		return 0, storage.ErrKeyNotFound
	case d < 0:
		return 0, nil
	}

	return d, nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
