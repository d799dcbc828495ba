package orm

import (
	"context"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
)

// RawQuerier 执行原生 SQL，占位符按照方言改写
type RawQuerier[T any] struct {
	core
	sess Session
	sql  string
	args []any
}

// RawQuery 创建一个 RawQuerier 实例
// 泛型参数 T 是目标类型。
// 例如，如果查询 User 的数据，那么 T 就是 User
func RawQuery[T any](sess Session, query string, args ...any) *RawQuerier[T] {
	return &RawQuerier[T]{
		core: sess.getCore(),
		sess: sess,
		sql:  query,
		args: args,
	}
}

func (r *RawQuerier[T]) Build() (*Query, error) {
	return &Query{
		SQL:  r.dialect.rebind(r.sql),
		Args: r.args,
	}, nil
}

func (r *RawQuerier[T]) Exec(ctx context.Context) Result {
	m, _ := r.r.Get(new(T))
	return exec(ctx, r.sess, r.core, &QueryContext{
		Type:    "RAW",
		Builder: r,
		Model:   m,
	})
}

func (r *RawQuerier[T]) Get(ctx context.Context) (*T, error) {
	res, err := r.GetMulti(ctx)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errs.ErrNoRows
	}
	return res[0], nil
}

func (r *RawQuerier[T]) GetMulti(ctx context.Context) ([]*T, error) {
	m, err := r.r.Get(new(T))
	if err != nil {
		return nil, err
	}
	rows, err := query(ctx, r.sess, r.core, &QueryContext{
		Type:    "RAW",
		Builder: r,
		Model:   m,
	})
	if err != nil {
		return nil, err
	}
	res := make([]*T, 0, len(rows))
	for _, row := range rows {
		tp := new(T)
		if err = r.hydrate(tp, m, row); err != nil {
			return nil, err
		}
		res = append(res, tp)
	}
	return res, nil
}

// Rows 返回没有映射的结果
func (r *RawQuerier[T]) Rows(ctx context.Context) ([]Row, error) {
	return query(ctx, r.sess, r.core, &QueryContext{
		Type:    "RAW",
		Builder: r,
	})
}
