package orm

import (
	"strings"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

type builder struct {
	sb      strings.Builder // sb is used to build the SQL query string.
	args    []any           // args holds the arguments for the query.
	model   *model.Model    // model is the model of the main table.
	dialect Dialect
	quoter  byte

	// qualifier 是主表在 SQL 里面的名字，为空的时候列名不带表名
	qualifier string
	// aliases 记录 JOIN 进来的表别名对应的模型
	aliases map[string]*model.Model
}

func newBuilder(c core) *builder {
	return &builder{
		dialect: c.dialect,
		quoter:  c.dialect.quoter(),
	}
}

func (b *builder) quote(name string) {
	b.sb.WriteByte(b.quoter)
	b.sb.WriteString(name)
	b.sb.WriteByte(b.quoter)
}

func (b *builder) buildAs(alias string) {
	if alias != "" {
		b.sb.WriteString(" AS ")
		b.quote(alias)
	}
}

// resolve 找到列所属的模型和表名
func (b *builder) resolve(c Column) (*model.Field, string, error) {
	m, qualifier := b.model, b.qualifier
	if c.table != "" {
		mm, ok := b.aliases[c.table]
		if !ok {
			return nil, "", errs.NewErrUnknownField(c.table + "." + c.name)
		}
		m, qualifier = mm, c.table
	}
	if m == nil {
		return nil, "", errs.NewErrUnknownField(c.name)
	}
	fd, ok := m.FieldByColumnOrName(c.name)
	if !ok {
		return nil, "", errs.NewErrUnknownField(c.name)
	}
	return fd, qualifier, nil
}

func (b *builder) buildColumn(c Column) error {
	fd, qualifier, err := b.resolve(c)
	if err != nil {
		return err
	}
	if qualifier != "" {
		b.quote(qualifier)
		b.sb.WriteByte('.')
	}
	b.quote(fd.ColName)
	return nil
}

// buildPredicates builds the predicates for the given list of predicates.
func (b *builder) buildPredicates(ps []Predicate) error {
	p := ps[0]
	for i := 1; i < len(ps); i++ {
		// Merge multiple predicates using the `And` method.
		p = p.And(ps[i])
	}
	return b.buildExpression(p)
}

// buildExpression builds the SQL query for the given expression.
// Column 代表是列名，直接拼接列名
// value 代表参数，加入参数列表
// Predicate 代表一个查询条件：
// 如果左边是一个 Predicate，那么加上括号
// 递归构造左边
// 构造操作符
// 如果右边是一个 Predicate，那么加上括号
func (b *builder) buildExpression(e Expression) error {
	if e == nil {
		return nil
	}

	switch expr := e.(type) {
	case Column:
		return b.buildColumn(expr)
	case value:
		b.parameter(expr.val)
	case RawExpr:
		b.sb.WriteString(expr.raw)
		if len(expr.args) != 0 {
			b.addArgs(expr.args...)
		}
	case listExpr:
		b.sb.WriteByte('(')
		if len(expr.vals) == 0 {
			b.sb.WriteString("NULL")
		}
		for i, v := range expr.vals {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			b.parameter(v)
		}
		b.sb.WriteByte(')')
	case subqueryExpr:
		b.sb.WriteByte('(')
		if err := b.buildSubquery(expr.q); err != nil {
			return err
		}
		b.sb.WriteByte(')')
	case Aggregate:
		b.sb.WriteString(expr.fn)
		b.sb.WriteByte('(')
		if err := b.buildColumn(expr.arg); err != nil {
			return err
		}
		b.sb.WriteByte(')')
	case FuncExpr:
		return b.buildFunc(expr)
	case MathExpr:
		return b.buildBinary(binaryExpr(expr))
	case binaryExpr:
		return b.buildBinary(expr)
	case Predicate:
		return b.buildPredicate(expr)
	default:
		return errs.NewErrUnsupportedExpressionType(expr)
	}
	return nil
}

func (b *builder) buildPredicate(p Predicate) error {
	if p.left != nil {
		if err := b.buildSubExpr(p.left); err != nil {
			return err
		}
	}
	if p.op == "" {
		// 只有左边，例如执行原生 sql raw 的时候
		return nil
	}
	if p.left != nil {
		b.sb.WriteByte(' ')
	}
	b.sb.WriteString(p.op.String())
	if p.right == nil {
		// IS NULL
		return nil
	}
	b.sb.WriteByte(' ')
	return b.buildSubExpr(p.right)
}

// buildSubExpr 如果是复杂结构，则在外边套一层括号
func (b *builder) buildSubExpr(e Expression) error {
	switch e.(type) {
	case Predicate, MathExpr:
		b.sb.WriteByte('(')
		if err := b.buildExpression(e); err != nil {
			return err
		}
		b.sb.WriteByte(')')
		return nil
	default:
		return b.buildExpression(e)
	}
}

func (b *builder) buildBinary(e binaryExpr) error {
	if err := b.buildSubExpr(e.left); err != nil {
		return err
	}
	b.sb.WriteByte(' ')
	b.sb.WriteString(e.op.String())
	b.sb.WriteByte(' ')
	return b.buildSubExpr(e.right)
}

func (b *builder) buildFunc(f FuncExpr) error {
	if f.bare {
		b.sb.WriteString(f.name)
		return nil
	}
	if f.name != "" {
		b.sb.WriteString(f.name)
		b.sb.WriteByte('(')
	}
	for i, arg := range f.args {
		if i > 0 {
			if f.conj != "" {
				b.sb.WriteByte(' ')
				b.sb.WriteString(f.conj)
				b.sb.WriteByte(' ')
			} else {
				b.sb.WriteString(", ")
			}
		}
		if err := b.buildExpression(arg); err != nil {
			return err
		}
	}
	if f.name != "" {
		b.sb.WriteByte(')')
	}
	return nil
}

// buildSubquery 在同一个 builder 里面构造子查询，参数会合并到一起
// DELETE 和 UPDATE 里面的子查询没有经过翻译，在这里补上
func (b *builder) buildSubquery(q *selectQuery) error {
	if !q.translated {
		pq, _, err := q.prepare()
		if err != nil {
			return err
		}
		q = pq
	}
	m, qualifier, aliases := b.model, b.qualifier, b.aliases
	defer func() {
		b.model, b.qualifier, b.aliases = m, qualifier, aliases
	}()
	return q.buildSelect(b)
}

func (b *builder) parameter(val any) {
	b.sb.WriteByte('?')
	b.addArgs(val)
}

func (b *builder) addArgs(args ...any) {
	if b.args == nil {
		b.args = make([]any, 0, 8)
	}
	b.args = append(b.args, args...)
}

// query 结束构造，交给方言处理占位符
func (b *builder) query() *Query {
	b.sb.WriteByte(';')
	return &Query{
		SQL:  b.dialect.rebind(b.sb.String()),
		Args: b.args,
	}
}

// buildAssignment 构造 `col`=expr，UPDATE 和 UPSERT 共用
func (b *builder) buildAssignment(a Assignment) error {
	if err := b.buildColumn(C(a.column)); err != nil {
		return err
	}
	b.sb.WriteByte('=')
	return b.buildExpression(a.val)
}
