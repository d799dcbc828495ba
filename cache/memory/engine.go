package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Engine 是进程内的缓存，过期由 go-cache 管理
type Engine struct {
	// Increment 是读改写，需要锁
	mutex sync.RWMutex
	c     *cache.Cache
}

func NewEngine() *Engine {
	return &Engine{
		c: cache.New(cache.NoExpiration, time.Second),
	}
}

func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	val, ok := e.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return val.([]byte), true, nil
}

func (e *Engine) Set(ctx context.Context, key string, val []byte, expiration time.Duration) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.c.Set(key, val, e.expiration(expiration))
	return nil
}

func (e *Engine) Delete(ctx context.Context, key string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.c.Delete(key)
	return nil
}

func (e *Engine) Clear(ctx context.Context, prefix string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for key := range e.c.Items() {
		if strings.HasPrefix(key, prefix) {
			e.c.Delete(key)
		}
	}
	return nil
}

func (e *Engine) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var cur int64
	if val, ok := e.c.Get(key); ok {
		n, err := strconv.ParseInt(string(val.([]byte)), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += offset
	// 计数器不过期
	e.c.Set(key, []byte(strconv.FormatInt(cur, 10)), cache.NoExpiration)
	return cur, nil
}

// go-cache 里面 0 表示默认过期时间，-1 才是永不过期
func (e *Engine) expiration(d time.Duration) time.Duration {
	if d <= 0 {
		return cache.NoExpiration
	}
	return d
}
