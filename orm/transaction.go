package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/cakephp/cakephp-sub067/orm/schema"
)

var _ Session = &Tx{}
var _ Session = &DB{}

// Session 代表一个抽象的概念，即会话
// 它的方法都是私有的，只有 DB 和 Tx 实现
type Session interface {
	getCore() core
	queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	execContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Tx struct {
	tx     *sql.Tx
	db     *DB
	schema *singleflight.Group
}

func (t *Tx) getCore() core {
	return t.db.core
}

func (t *Tx) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Table 和 DB.Table 返回同一个 Table，关联声明是共享的
func (t *Tx) Table(val any, opts ...TableOption) (*Table, error) {
	return t.db.Table(val, opts...)
}

// Schema 在事务里面读取表结构，可以看到事务里面还没有提交的 DDL
func (t *Tx) Schema(opts ...schema.CollectionOption) *schema.Collection {
	return newCollection(t, t.schema, opts...)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) RollbackIfNotCommit() error {
	err := t.tx.Rollback()
	if !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func newCollection(sess Session, g *singleflight.Group, opts ...schema.CollectionOption) *schema.Collection {
	c := sess.getCore()
	opts = append([]schema.CollectionOption{
		schema.CollectionWithLogger(c.logger),
		schema.CollectionWithSingleflight(g),
	}, opts...)
	return schema.NewCollection(schemaQuerier{sess: sess}, c.dialect.SchemaDialect(), opts...)
}

// schemaQuerier 让读取表结构的语句也经过中间件
type schemaQuerier struct {
	sess Session
}

func (s schemaQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	root := func(ctx context.Context, qc *QueryContext) *QueryResult {
		q, err := qc.Builder.Build()
		if err != nil {
			return &QueryResult{Err: err}
		}
		rows, err := s.sess.queryContext(ctx, q.SQL, q.Args...)
		return &QueryResult{Result: rows, Err: err}
	}
	qr := chain(s.sess.getCore().mdls, root)(ctx, &QueryContext{
		Type:    "RAW",
		Builder: RawQuery[any](s.sess, query, args...),
	})
	if qr.Err != nil {
		return nil, qr.Err
	}
	rows, ok := qr.Result.(*sql.Rows)
	if !ok {
		return nil, fmt.Errorf("orm: 中间件返回了非预期的结果 %T", qr.Result)
	}
	return rows, nil
}
