package orm

import (
	"context"
)

// Querier 把结果映射到 T
// 关联的数据映射到 T 里面和属性名同名的字段
type Querier[T any] interface {
	Get(ctx context.Context) (*T, error)
	GetMulti(ctx context.Context) ([]*T, error)
}

// RowQuerier 返回没有映射的行，关联的数据以属性名为 key 嵌套在行里面
type RowQuerier interface {
	Rows(ctx context.Context) ([]Row, error)
}

type Executor interface {
	Exec(ctx context.Context) Result
}

// Query 是构造好的 SQL 和参数，占位符已经是方言的格式
type Query struct {
	SQL  string
	Args []any
}

type QueryBuilder interface {
	Build() (*Query, error)
}

var (
	_ Querier[any] = &Selector[any]{}
	_ RowQuerier   = &Selector[any]{}
	_ Querier[any] = &RawQuerier[any]{}
	_ RowQuerier   = &RawQuerier[any]{}
	_ Executor     = &RawQuerier[any]{}
	_ Executor     = &Inserter[any]{}
	_ Executor     = &Updater[any]{}
	_ Executor     = &Deleter[any]{}
	_ QueryBuilder = &Inserter[any]{}
	_ QueryBuilder = &Updater[any]{}
	_ QueryBuilder = &Deleter[any]{}
	_ Subquery     = &Selector[any]{}
	_ QueryBuilder = &selectQuery{}
)
