package lru

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const defaultSize = 128

// Engine 只保留最近使用的 size 个 key，过期时间在读的时候检查
type Engine struct {
	mutex sync.Mutex
	c     *lru.Cache
}

type item struct {
	data     []byte
	deadline time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.deadline.IsZero() && now.After(i.deadline)
}

// NewEngine size 小于等于 0 的时候使用默认大小
func NewEngine(size int) (*Engine, error) {
	if size <= 0 {
		size = defaultSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Engine{c: c}, nil
}

func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	it, ok := e.get(key)
	if !ok {
		return nil, false, nil
	}
	return it.data, true, nil
}

func (e *Engine) get(key string) (item, bool) {
	val, ok := e.c.Get(key)
	if !ok {
		return item{}, false
	}
	it := val.(item)
	if it.expired(time.Now()) {
		e.c.Remove(key)
		return item{}, false
	}
	return it, true
}

func (e *Engine) Set(ctx context.Context, key string, val []byte, expiration time.Duration) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	it := item{data: val}
	if expiration > 0 {
		it.deadline = time.Now().Add(expiration)
	}
	e.c.Add(key, it)
	return nil
}

func (e *Engine) Delete(ctx context.Context, key string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.c.Remove(key)
	return nil
}

func (e *Engine) Clear(ctx context.Context, prefix string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for _, k := range e.c.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			e.c.Remove(key)
		}
	}
	return nil
}

func (e *Engine) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var cur int64
	it, ok := e.get(key)
	if ok {
		n, err := strconv.ParseInt(string(it.data), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += offset
	it.data = []byte(strconv.FormatInt(cur, 10))
	e.c.Add(key, it)
	return cur, nil
}
