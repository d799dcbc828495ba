package cache

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownEngine = errors.New("cache: 未知的缓存引擎")

// Engine 是具体的存储，只处理字节
// Get 在 key 不存在或者已经过期的时候返回 (nil, false, nil)
type Engine interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set expiration 为 0 表示永不过期
	Set(ctx context.Context, key string, val []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear 删除所有以 prefix 开头的 key
	Clear(ctx context.Context, prefix string) error
	// Increment 把 key 当作十进制整数加上 offset，key 不存在的时候从 0 开始
	Increment(ctx context.Context, key string, offset int64) (int64, error)
}
