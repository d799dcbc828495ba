package orm

import (
	"context"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

// Selectable 是一个标记接口
// 使用接口为的是：让 聚合函数， columns， 以及 RawExpr（原生sql） 都能作为参数传入统一个函数，做统一处理
type Selectable interface {
	selectable()
}

type OrderBy struct {
	expr  Expression
	order string
}

func Asc(col string) OrderBy {
	return OrderBy{expr: C(col), order: "ASC"}
}

func Desc(col string) OrderBy {
	return OrderBy{expr: C(col), order: "DESC"}
}

type join struct {
	typ   string
	table string
	alias string
	model *model.Model
	on    []Predicate
}

// selectQuery 是不带类型参数的 SELECT 构造器
// Selector[T] 和关联的预加载都基于它
type selectQuery struct {
	core
	sess Session
	err  error

	model   *model.Model
	table   string // 用户自己指定的表名，不会转义
	alias   string
	columns []Selectable
	// extra 是关联或者方言追加的列，总是在 columns 后面
	extra   []Selectable
	joins   []join
	where   []Predicate
	groupBy []Column
	having  []Predicate
	orderBy []OrderBy
	offset  int
	limit   int

	// from 不为 nil 的时候，FROM 是一个派生表
	from      *selectQuery
	fromAlias string

	contain    []string
	decorators []RowDecorator
	// translated 标记已经处理过关联和方言，可以直接构造 SQL
	translated bool
}

func newSelectQuery(sess Session, m *model.Model) *selectQuery {
	return &selectQuery{
		core:  sess.getCore(),
		sess:  sess,
		model: m,
	}
}

func (q *selectQuery) clone() *selectQuery {
	cp := *q
	cp.columns = append([]Selectable(nil), q.columns...)
	cp.extra = append([]Selectable(nil), q.extra...)
	cp.joins = append([]join(nil), q.joins...)
	cp.where = append([]Predicate(nil), q.where...)
	cp.groupBy = append([]Column(nil), q.groupBy...)
	cp.having = append([]Predicate(nil), q.having...)
	cp.orderBy = append([]OrderBy(nil), q.orderBy...)
	cp.contain = append([]string(nil), q.contain...)
	cp.decorators = append([]RowDecorator(nil), q.decorators...)
	return &cp
}

// qualifier 返回主表在 SQL 中的名字，没有别名也没有 JOIN 的时候为空
func (q *selectQuery) qualifier() string {
	if q.alias != "" {
		return q.alias
	}
	if len(q.joins) > 0 {
		return q.model.TableName
	}
	return ""
}

// Build 构造 SQL，关联的 JOIN 和方言的改写都会体现在结果里
func (q *selectQuery) Build() (*Query, error) {
	pq, _, err := q.prepare()
	if err != nil {
		return nil, err
	}
	b := newBuilder(pq.core)
	if err = pq.buildSelect(b); err != nil {
		return nil, err
	}
	return b.query(), nil
}

// prepare 返回一个可以直接构造 SQL 的副本：关联的 JOIN 已经加上，方言已经翻译过
// 需要单独查询的关联以 eagerLoad 的形式返回
func (q *selectQuery) prepare() (*selectQuery, []*eagerLoad, error) {
	if q.err != nil {
		return nil, nil, q.err
	}
	if q.translated {
		return q, nil, nil
	}
	eq := q.clone()
	loaders, err := eq.attachAssociations()
	if err != nil {
		return nil, nil, err
	}
	tq, err := eq.dialect.translate(eq)
	if err != nil {
		return nil, nil, err
	}
	tq.translated = true
	return tq, loaders, nil
}

func (q *selectQuery) buildSelect(b *builder) error {
	b.model = q.model
	b.qualifier = q.qualifier()
	b.aliases = make(map[string]*model.Model, len(q.joins)+1)
	if b.qualifier != "" {
		b.aliases[b.qualifier] = q.model
	}
	for _, j := range q.joins {
		b.aliases[j.alias] = j.model
	}

	b.sb.WriteString("SELECT ")
	if err := q.buildColumns(b); err != nil {
		return err
	}
	b.sb.WriteString(" FROM ")

	switch {
	case q.from != nil:
		b.sb.WriteByte('(')
		if err := b.buildSubquery(q.from); err != nil {
			return err
		}
		b.sb.WriteByte(')')
		b.buildAs(q.fromAlias)
	case q.table != "":
		// 这里没有处理 添加`符号，让用户自己应该名字自己在做什么
		b.sb.WriteString(q.table)
		b.buildAs(q.alias)
	default:
		b.quote(q.model.TableName)
		b.buildAs(q.alias)
	}

	for _, j := range q.joins {
		b.sb.WriteByte(' ')
		b.sb.WriteString(j.typ)
		b.sb.WriteString(" JOIN ")
		b.quote(j.table)
		b.buildAs(j.alias)
		if len(j.on) > 0 {
			b.sb.WriteString(" ON ")
			if err := b.buildPredicates(j.on); err != nil {
				return err
			}
		}
	}

	// 类似这种可有可无的部分，都要在前面加一个空格
	if len(q.where) > 0 {
		b.sb.WriteString(" WHERE ")
		if err := b.buildPredicates(q.where); err != nil {
			return err
		}
	}

	if len(q.groupBy) > 0 {
		b.sb.WriteString(" GROUP BY ")
		for i, c := range q.groupBy {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			if err := b.buildColumn(c); err != nil {
				return err
			}
		}
	}

	if len(q.having) > 0 {
		b.sb.WriteString(" HAVING ")
		if err := b.buildPredicates(q.having); err != nil {
			return err
		}
	}

	if len(q.orderBy) > 0 {
		b.sb.WriteString(" ORDER BY ")
		if err := buildOrderBy(b, q.orderBy); err != nil {
			return err
		}
	}

	if q.limit > 0 || q.offset > 0 {
		b.dialect.buildLimitOffset(b, q.limit, q.offset)
	}
	return nil
}

func (q *selectQuery) buildColumns(b *builder) error {
	n := 0
	write := func(s Selectable) error {
		if n > 0 {
			b.sb.WriteByte(',')
		}
		n++
		return buildSelectable(b, s)
	}

	switch {
	case len(q.columns) > 0:
		for _, c := range q.columns {
			if err := write(c); err != nil {
				return err
			}
		}
	case len(q.joins) > 0:
		// 有 JOIN 的时候 * 会带出关联表的列，所以展开主表的列
		for _, fd := range q.model.Fields {
			if err := write(Column{name: fd.GoName}); err != nil {
				return err
			}
		}
	default:
		b.sb.WriteByte('*')
		n++
	}

	for _, c := range q.extra {
		if err := write(c); err != nil {
			return err
		}
	}
	return nil
}

func buildSelectable(b *builder, s Selectable) error {
	switch val := s.(type) {
	case Column:
		if err := b.buildColumn(val); err != nil {
			return err
		}
		b.buildAs(val.alias)
	case Aggregate:
		if err := b.buildExpression(val); err != nil {
			return err
		}
		b.buildAs(val.alias)
	case FuncExpr:
		if err := b.buildFunc(val); err != nil {
			return err
		}
		b.buildAs(val.alias)
	case RawExpr:
		b.sb.WriteString(val.raw)
		if len(val.args) != 0 {
			b.addArgs(val.args...)
		}
		b.buildAs(val.alias)
	case rowNumber:
		b.sb.WriteString("ROW_NUMBER() OVER (")
		if len(val.orderBy) > 0 {
			b.sb.WriteString("ORDER BY ")
			if err := buildOrderBy(b, val.orderBy); err != nil {
				return err
			}
		}
		b.sb.WriteByte(')')
		b.buildAs(val.alias)
	default:
		return errs.NewErrUnsupportedSelectable(s)
	}
	return nil
}

func buildOrderBy(b *builder, obs []OrderBy) error {
	for i, ob := range obs {
		if i > 0 {
			b.sb.WriteByte(',')
		}
		if err := b.buildExpression(ob.expr); err != nil {
			return err
		}
		b.sb.WriteByte(' ')
		b.sb.WriteString(ob.order)
	}
	return nil
}

// all 执行查询，完成关联的预加载，返回装饰过的结果行
func (q *selectQuery) all(ctx context.Context) ([]Row, error) {
	pq, loaders, err := q.prepare()
	if err != nil {
		return nil, err
	}
	rows, err := pq.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range loaders {
		if rows, err = l.apply(ctx, rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// fetch 经过中间件执行一个已经准备好的查询
func (q *selectQuery) fetch(ctx context.Context) ([]Row, error) {
	rows, err := query(ctx, q.sess, q.core, &QueryContext{
		Type:    "SELECT",
		Builder: q,
		Model:   q.model,
	})
	if err != nil {
		return nil, err
	}
	return decorate(rows, q.decorators)
}

// subqueryFor 复制一份查询，只保留 key 这一列，用作 IN 子查询
func (q *selectQuery) subqueryFor(key string) *selectQuery {
	sub := q.clone()
	sub.columns = []Selectable{Column{name: key}}
	sub.extra = nil
	sub.contain = nil
	sub.decorators = nil
	if sub.limit == 0 && sub.offset == 0 {
		// 没有分页的时候排序没有意义
		sub.orderBy = nil
	}
	return sub
}

// selects 判断自定义的列里面有没有 key 这一列
func (q *selectQuery) selects(key string) bool {
	if len(q.columns) == 0 {
		return true
	}
	for _, s := range q.columns {
		c, ok := s.(Column)
		if !ok {
			continue
		}
		if c.alias == key {
			return true
		}
		if c.alias != "" || (c.table != "" && c.table != q.qualifier()) {
			continue
		}
		if fd, ok := q.model.FieldByColumnOrName(c.name); ok && fd.ColName == key {
			return true
		}
	}
	return false
}
