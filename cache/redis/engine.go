package redis

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// scanCount 是 Clear 每一轮 SCAN 的 COUNT
const scanCount = 100

// Engine 把数据放在 redis 里面，过期交给 redis 处理
type Engine struct {
	client redis.Cmdable
}

// NewEngine 创建一个基于 redis 的缓存引擎
// client 可以是单机、哨兵或者集群客户端
func NewEngine(client redis.Cmdable) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := e.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (e *Engine) Set(ctx context.Context, key string, val []byte, expiration time.Duration) error {
	if expiration < 0 {
		expiration = 0
	}
	return e.client.Set(ctx, key, val, expiration).Err()
}

func (e *Engine) Delete(ctx context.Context, key string) error {
	return e.client.Del(ctx, key).Err()
}

func (e *Engine) Clear(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := e.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err = e.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (e *Engine) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return e.client.IncrBy(ctx, key, offset).Result()
}
