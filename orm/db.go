package orm

import (
	"context"
	"database/sql"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/cakephp/cakephp-sub067/orm/internal/valuer"
	"github.com/cakephp/cakephp-sub067/orm/model"
	"github.com/cakephp/cakephp-sub067/orm/schema"
)

type DBOption func(*DB)

// DB 是 sql.DB 的装饰器
type DB struct {
	core
	db *sql.DB
	// schema 让同一个 DB 上并发的 Describe 只查询一次
	schema *singleflight.Group
}

// Open 创建一个 DB 实例，方言由驱动名推断，可以用 DBWithDialect 覆盖
// 推断不出方言又没有指定的时候返回 ErrUnknownDialect
func Open(driver string, dsn string, opts ...DBOption) (*DB, error) {
	d, dErr := DialectFor(driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	res, err := openDB(db, d, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if res.dialect == nil {
		_ = db.Close()
		return nil, dErr
	}
	return res, nil
}

// OpenDB 可以利用 OpenDB 来传入一个 mock 的 DB
// 默认方言是 MySQL
func OpenDB(db *sql.DB, opts ...DBOption) (*DB, error) {
	return openDB(db, MySQL, opts)
}

func openDB(db *sql.DB, dialect Dialect, opts []DBOption) (*DB, error) {
	res := &DB{
		core: core{
			dialect:    dialect,
			r:          model.NewRegistry(),
			valCreator: valuer.NewUnsafeValue,
			tables:     newTableLocator(),
			logger:     slog.Default(),
		},
		db:     db,
		schema: &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(res)
	}
	return res, nil
}

// MustOpen creates a new DB and panics if it fails.
func MustOpen(driver string, dsn string, opts ...DBOption) *DB {
	db, err := Open(driver, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

func DBWithDialect(dialect Dialect) DBOption {
	return func(db *DB) {
		db.dialect = dialect
	}
}

func DBWithRegistry(r model.Registry) DBOption {
	return func(db *DB) {
		db.r = r
	}
}

func DBUseReflectValuer() DBOption {
	return func(db *DB) {
		db.valCreator = valuer.NewReflectValue
	}
}

func DBWithMiddlewares(mdls ...Middleware) DBOption {
	return func(db *DB) {
		db.mdls = mdls
	}
}

func DBWithLogger(logger *slog.Logger) DBOption {
	return func(db *DB) {
		db.logger = logger
	}
}

// Dialect returns the dialect queries are rendered for.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Schema 返回一个读取表结构的 Collection，语句会经过中间件
func (db *DB) Schema(opts ...schema.CollectionOption) *schema.Collection {
	return newCollection(db, db.schema, opts...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db, schema: &singleflight.Group{}}, nil
}

// DoTx 将会开启事务执行 fn。如果 fn 返回错误或者发生 panic，事务将会回滚，
// 否则提交事务
func (db *DB) DoTx(ctx context.Context,
	fn func(ctx context.Context, tx *Tx) error,
	opts *sql.TxOptions) (err error) {
	var tx *Tx
	tx, err = db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	panicked := true
	defer func() {
		if panicked || err != nil {
			e := tx.Rollback()
			if e != nil {
				db.logger.ErrorContext(ctx, "orm: rollback failed", slog.Any("error", e))
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(ctx, tx)
	panicked = false
	return err
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) getCore() core {
	return db.core
}

func (db *DB) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}
