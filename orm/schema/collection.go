package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/cakephp/cakephp-sub067/cache"
)

// Querier 可以是 *sql.DB 也可以是 *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type CollectionOption func(c *Collection)

func CollectionWithLogger(logger *slog.Logger) CollectionOption {
	return func(c *Collection) {
		c.logger = logger
	}
}

// CollectionWithCache 表结构缓存在 c 里面，key 是 prefix_table
func CollectionWithCache(c *cache.Cache, prefix string) CollectionOption {
	return func(col *Collection) {
		col.cache = c
		col.prefix = prefix
	}
}

// CollectionWithSingleflight 共享同一个 g 的 Collection 并发 Describe 同一张表的时候只查询一次
func CollectionWithSingleflight(g *singleflight.Group) CollectionOption {
	return func(c *Collection) {
		c.g = g
	}
}

func CollectionWithConfig(cfg Config) CollectionOption {
	return func(c *Collection) {
		c.cfg = cfg
	}
}

// Collection 读取表结构
// 配置了缓存的时候，同一张表并发的 Describe 只会查询一次数据库
type Collection struct {
	q      Querier
	d      Dialect
	cfg    Config
	cache  *cache.Cache
	prefix string
	logger *slog.Logger
	g      *singleflight.Group
}

func NewCollection(q Querier, d Dialect, opts ...CollectionOption) *Collection {
	res := &Collection{
		q:      q,
		d:      d,
		prefix: "default",
		logger: slog.Default(),
		g:      &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (c *Collection) Dialect() Dialect {
	return c.d
}

// ListTables 返回所有的表名，不包括视图
func (c *Collection) ListTables(ctx context.Context) ([]string, error) {
	query, args := c.d.ListTablesSQL(c.cfg)
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, 16)
	for rows.Next() {
		// MySQL 的列名里面带了库名，所以只按位置取第一列
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		res = append(res, str(vals[0]))
	}
	return res, rows.Err()
}

// Describe 返回表结构，表不存在返回 ErrUnknownTable
func (c *Collection) Describe(ctx context.Context, table string) (*TableSchema, error) {
	if c.cache == nil {
		return c.describe(ctx, table)
	}
	key := c.cacheKey(table)
	var ts TableSchema
	ok, err := c.cache.Get(ctx, key, &ts)
	if err != nil {
		c.logger.WarnContext(ctx, "schema: 读取缓存失败", slog.String("key", key), slog.Any("error", err))
	}
	if ok {
		return &ts, nil
	}
	// 不同的缓存可能共享同一个 g
	val, err, _ := c.g.Do(fmt.Sprintf("%p:%s", c.cache, key), func() (any, error) {
		res, err := c.describe(ctx, table)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, res); err != nil {
			c.logger.WarnContext(ctx, "schema: 写入缓存失败", slog.String("key", key), slog.Any("error", err))
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*TableSchema), nil
}

// ClearCache 删掉所有表的缓存，返回删除的表名
func (c *Collection) ClearCache(ctx context.Context) ([]string, error) {
	if c.cache == nil {
		return nil, nil
	}
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err = c.cache.Delete(ctx, c.cacheKey(t)); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (c *Collection) cacheKey(table string) string {
	return c.prefix + "_" + table
}

func (c *Collection) describe(ctx context.Context, table string) (*TableSchema, error) {
	query, args := c.d.DescribeColumnSQL(table, c.cfg)
	rows, err := c.queryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	res := &TableSchema{
		Name:    table,
		Columns: make([]Column, 0, len(rows)),
	}
	for _, row := range rows {
		col, err := c.d.ConvertColumnDescription(row)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", table, err)
		}
		if col.PrimaryKey {
			res.PrimaryKey = append(res.PrimaryKey, col.Name)
		}
		res.Columns = append(res.Columns, col)
	}
	if n, ok := c.d.(tableNormalizer); ok {
		n.normalizeTable(res)
	}
	return res, nil
}

func (c *Collection) queryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := make([]Row, 0, 8)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, name := range cols {
			row[name] = vals[i]
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
