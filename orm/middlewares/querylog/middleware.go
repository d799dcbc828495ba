package querylog

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cakephp/cakephp-sub067/orm"
)

type MiddlewareBuilder struct {
	logFunc func(ctx context.Context, q LoggedQuery)
}

// NewMiddlewareBuilder 默认用 slog.Default() 输出
func NewMiddlewareBuilder() *MiddlewareBuilder {
	return (&MiddlewareBuilder{}).Logger(slog.Default())
}

func (m *MiddlewareBuilder) LogFunc(fn func(ctx context.Context, q LoggedQuery)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

// Logger 出错的查询用 Error 级别，其它用 Debug 级别
func (m *MiddlewareBuilder) Logger(logger *slog.Logger) *MiddlewareBuilder {
	m.logFunc = func(ctx context.Context, q LoggedQuery) {
		level := slog.LevelDebug
		if q.Err != nil {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "orm: query", slog.Any("query", q))
	}
	return m
}

func (m MiddlewareBuilder) Build() orm.Middleware {
	if m.logFunc == nil {
		m.Logger(slog.Default())
	}
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			q, err := qc.Builder.Build()
			if err != nil {
				return &orm.QueryResult{Err: err}
			}
			start := time.Now()
			res := next(ctx, qc)
			m.logFunc(ctx, LoggedQuery{
				ID:      uuid.New(),
				Type:    qc.Type,
				Query:   q.SQL,
				Params:  q.Args,
				Took:    time.Since(start),
				NumRows: numRows(res),
				Err:     res.Err,
			})
			return res
		}
	}
}

// numRows 查询是返回的行数，其它语句是影响的行数
func numRows(res *orm.QueryResult) int64 {
	switch val := res.Result.(type) {
	case []orm.Row:
		return int64(len(val))
	case sql.Result:
		n, err := val.RowsAffected()
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
