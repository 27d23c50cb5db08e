package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"panchayat/internal/config"
)

var ErrLocked = errors.New("lock is held by another request")

const keyPrefix = "panchayat:lock:"

// снимаем блокировку, только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker - взаимное исключение между экземплярами сервиса через SET NX PX
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

// Lock берёт блокировку по ключу; возвращает функцию освобождения или ErrLocked
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{keyPrefix + key}, token).Err()
	}
	return unlock, nil
}
