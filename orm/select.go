package orm

import (
	"context"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
)

var _ Querier[any] = &Selector[any]{}

// Selector 用于构造 SELECT 语句，T 是结果的类型
// 它本身不是并发安全的，一个 Selector 只用于一次查询
type Selector[T any] struct {
	*selectQuery
}

// NewSelector creates a new instance of Selector.
func NewSelector[T any](sess Session) *Selector[T] {
	c := sess.getCore()
	m, err := c.r.Get(new(T))
	q := newSelectQuery(sess, m)
	q.err = err
	return &Selector[T]{selectQuery: q}
}

// Select 检索指定 column
func (s *Selector[T]) Select(cols ...Selectable) *Selector[T] {
	s.columns = cols
	return s
}

// From sets the table name for the selector.
// 这里没有处理 添加`符号，让用户自己应该名字自己在做什么
func (s *Selector[T]) From(tbl string) *Selector[T] {
	s.table = tbl
	return s
}

// Alias 设置主表的别名，关联 JOIN 进来的时候默认使用 Table 的别名
func (s *Selector[T]) Alias(alias string) *Selector[T] {
	s.alias = alias
	return s
}

// Join 手动 JOIN 另外一张表，val 是那张表对应的结构体指针
func (s *Selector[T]) Join(typ string, val any, alias string, on ...Predicate) *Selector[T] {
	m, err := s.r.Get(val)
	if err != nil {
		s.err = err
		return s
	}
	s.joins = append(s.joins, join{typ: typ, table: m.TableName, alias: alias, model: m, on: on})
	return s
}

// Where 用于构造 WHERE 查询条件。如果 ps 长度为 0，那么不会构造 WHERE 部分
func (s *Selector[T]) Where(ps ...Predicate) *Selector[T] {
	s.where = ps
	return s
}

func (s *Selector[T]) GroupBy(cols ...Column) *Selector[T] {
	s.groupBy = cols
	return s
}

func (s *Selector[T]) Having(ps ...Predicate) *Selector[T] {
	s.having = ps
	return s
}

func (s *Selector[T]) Offset(offset int) *Selector[T] {
	s.offset = offset
	return s
}

func (s *Selector[T]) Limit(limit int) *Selector[T] {
	s.limit = limit
	return s
}

func (s *Selector[T]) OrderBy(orderBys ...OrderBy) *Selector[T] {
	s.orderBy = orderBys
	return s
}

// Contain 预加载关联，例如 Contain("Author", "Posts.Tags")
func (s *Selector[T]) Contain(names ...string) *Selector[T] {
	s.contain = append(s.contain, names...)
	return s
}

// Decorate 注册一个处理结果行的函数，在关联数据注入之前执行
func (s *Selector[T]) Decorate(fns ...RowDecorator) *Selector[T] {
	s.decorators = append(s.decorators, fns...)
	return s
}

// Get 只取一条数据，没有数据的时候返回 ErrNoRows
func (s *Selector[T]) Get(ctx context.Context) (*T, error) {
	s.limit = 1
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNoRows
	}
	tp := new(T)
	if err = s.hydrate(tp, s.model, rows[0]); err != nil {
		return nil, err
	}
	return tp, nil
}

func (s *Selector[T]) GetMulti(ctx context.Context) ([]*T, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*T, 0, len(rows))
	for _, r := range rows {
		tp := new(T)
		if err = s.hydrate(tp, s.model, r); err != nil {
			return nil, err
		}
		res = append(res, tp)
	}
	return res, nil
}

// Rows 返回没有映射到结构体的结果，关联数据以 Row 或者 []Row 的形式放在属性名下面
func (s *Selector[T]) Rows(ctx context.Context) ([]Row, error) {
	return s.all(ctx)
}

func (s *Selector[T]) subquery() *selectQuery {
	return s.selectQuery
}
