package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cakephp/cakephp-sub067/cache/lru"
	"github.com/cakephp/cakephp-sub067/cache/memory"
	rediscache "github.com/cakephp/cakephp-sub067/cache/redis"
)

// Config 缓存配置，一般从配置文件里面读出来
type Config struct {
	// Engine 可以是 memory, lru 或者 redis，空字符串等价于 memory
	Engine string `yaml:"engine"`
	// Duration 为 0 表示永不过期
	Duration time.Duration `yaml:"duration"`
	Prefix   string        `yaml:"prefix"`
	// Groups 里面任意一个组被清理，这个缓存里面的所有 key 都会失效
	Groups []string `yaml:"groups"`

	// lru
	Size int `yaml:"size"`

	// redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Option func(c *Cache)

// WithEngine 直接指定引擎，这时候 Config.Engine 会被忽略
func WithEngine(e Engine) Option {
	return func(c *Cache) {
		c.engine = e
	}
}

// WithRedisClient 在 redis 引擎下使用已有的客户端
func WithRedisClient(client redis.Cmdable) Option {
	return func(c *Cache) {
		c.client = client
	}
}

// Cache 在 Engine 之上处理前缀、分组、过期时间和序列化
// 值用 msgpack 编码
type Cache struct {
	cfg    Config
	engine Engine
	client redis.Cmdable
}

func New(cfg Config, opts ...Option) (*Cache, error) {
	res := &Cache{cfg: cfg}
	for _, opt := range opts {
		opt(res)
	}
	if res.engine != nil {
		return res, nil
	}
	switch cfg.Engine {
	case "", "memory":
		res.engine = memory.NewEngine()
	case "lru":
		e, err := lru.NewEngine(cfg.Size)
		if err != nil {
			return nil, err
		}
		res.engine = e
	case "redis":
		if res.client == nil {
			res.client = redis.NewClient(&redis.Options{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
		res.engine = rediscache.NewEngine(res.client)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, cfg.Engine)
	}
	return res, nil
}

func MustNew(cfg Config, opts ...Option) *Cache {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Config 返回创建时的配置
func (c *Cache) Config() Config {
	return c.cfg
}

// Get 把缓存的值解码到 val 里面，val 必须是指针
// 没有命中返回 (false, nil)
func (c *Cache) Get(ctx context.Context, key string, val any) (bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return false, err
	}
	data, ok, err := c.engine.Get(ctx, k)
	if err != nil || !ok {
		return false, err
	}
	if err = msgpack.Unmarshal(data, val); err != nil {
		return false, fmt.Errorf("cache: 解码 %s 失败: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val any) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache: 编码 %s 失败: %w", key, err)
	}
	return c.engine.Set(ctx, k, data, c.cfg.Duration)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	return c.engine.Delete(ctx, k)
}

// Increment 计数器，值不经过 msgpack，读取用 Increment(ctx, key, 0)
func (c *Cache) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return 0, err
	}
	return c.engine.Increment(ctx, k, offset)
}

// Clear 删掉这个前缀下面的所有 key，包括分组的版本号
func (c *Cache) Clear(ctx context.Context) error {
	return c.engine.Clear(ctx, c.cfg.Prefix)
}

// ClearGroup 让某个分组下面的 key 全部失效
// 实际上只是把分组的版本号加一，旧的 key 等着过期或者被淘汰
func (c *Cache) ClearGroup(ctx context.Context, group string) error {
	_, err := c.engine.Increment(ctx, c.groupKey(group), 1)
	return err
}

// key 的格式是 prefix + group1版本号_group2版本号_ + key
func (c *Cache) key(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("cache: key 不能为空")
	}
	if len(c.cfg.Groups) == 0 {
		return c.cfg.Prefix + key, nil
	}
	var sb strings.Builder
	sb.WriteString(c.cfg.Prefix)
	for _, g := range c.cfg.Groups {
		v, err := c.groupVersion(ctx, g)
		if err != nil {
			return "", err
		}
		sb.WriteString(g)
		sb.WriteString(strconv.FormatInt(v, 10))
		sb.WriteByte('_')
	}
	sb.WriteString(key)
	return sb.String(), nil
}

func (c *Cache) groupKey(group string) string {
	return c.cfg.Prefix + "_group_" + group
}

func (c *Cache) groupVersion(ctx context.Context, group string) (int64, error) {
	gk := c.groupKey(group)
	data, ok, err := c.engine.Get(ctx, gk)
	if err != nil {
		return 0, err
	}
	if !ok {
		// 第一次使用这个分组
		return c.engine.Increment(ctx, gk, 1)
	}
	return strconv.ParseInt(string(data), 10, 64)
}
