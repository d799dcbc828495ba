package orm

import (
	"context"

	"github.com/cakephp/cakephp-sub067/orm/model"
)

// QueryContext 中间件的上下文，冗余了 Builder model 等，是因为还没有执行 sql 前，有的中间件，需要使用这些信息
type QueryContext struct {
	// Type 声明查询类型。即 SELECT, UPDATE, DELETE, INSERT 和 RAW
	Type string

	// builder 使用的时候，大多数情况下你需要转换到具体的类型
	// 才能篡改查询
	Builder QueryBuilder
	// qc.Model.TableName 为了有的中间件在拦截时需要 Model 信息
	Model *model.Model
}

type QueryResult struct {
	// Result 在不同的查询里面，类型是不同的
	// SELECT 和 RAW 查询里面，这会是 []Row
	// 其它情况下，它会是 sql.Result 类型
	Result any
	Err    error
}

type Middleware func(next Handler) Handler

type Handler func(ctx context.Context, qc *QueryContext) *QueryResult

// chain 从后往前组装中间件，保证第一个注册的中间件在最外层
func chain(mdls []Middleware, root Handler) Handler {
	handler := root
	for j := len(mdls) - 1; j >= 0; j-- {
		handler = mdls[j](handler)
	}
	return handler
}

// exec 经过中间件执行 INSERT UPDATE DELETE 和原生语句
func exec(ctx context.Context, sess Session, c core, qc *QueryContext) Result {
	root := func(ctx context.Context, qc *QueryContext) *QueryResult {
		q, err := qc.Builder.Build()
		if err != nil {
			return &QueryResult{Err: err}
		}
		res, err := sess.execContext(ctx, q.SQL, q.Args...)
		return &QueryResult{Result: res, Err: err}
	}
	return resultOf(chain(c.mdls, root)(ctx, qc))
}

// query 经过中间件执行查询，结果是没有装饰过的 []Row
func query(ctx context.Context, sess Session, c core, qc *QueryContext) ([]Row, error) {
	root := func(ctx context.Context, qc *QueryContext) *QueryResult {
		q, err := qc.Builder.Build()
		if err != nil {
			return &QueryResult{Err: err}
		}
		rows, err := sess.queryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return &QueryResult{Err: err}
		}
		defer func() { _ = rows.Close() }()
		res, err := scanRows(rows)
		return &QueryResult{Result: res, Err: err}
	}
	qr := chain(c.mdls, root)(ctx, qc)
	if qr.Err != nil {
		return nil, qr.Err
	}
	rows, _ := qr.Result.([]Row)
	return rows, nil
}
