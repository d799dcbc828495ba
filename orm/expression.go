package orm

// RawExpr 原样写进 SQL 的片段，参数按出现的顺序追加
// 方言翻译不会进入 RawExpr 内部，所以里面不要写 CONCAT 这类需要翻译的函数
type RawExpr struct {
	raw   string
	args  []any
	alias string
}

func (r RawExpr) selectable() {}

func (r RawExpr) expr() {}

// As 在 SELECT 里面使用的时候指定别名
func (r RawExpr) As(alias string) RawExpr {
	r.alias = alias
	return r
}

func (r RawExpr) AsPredicate() Predicate {
	return Predicate{
		left: r,
	}
}

func Raw(expr string, args ...any) RawExpr {
	return RawExpr{
		raw:  expr,
		args: args,
	}
}

type binaryExpr struct {
	left  Expression
	op    op
	right Expression
}

func (b binaryExpr) expr() {}

// MathExpr 列上的四则运算，用在 SET 和 upsert 的赋值里面
// 例如 Assign("Age", C("Age").Add(1))
type MathExpr binaryExpr

func (m MathExpr) Add(val any) MathExpr {
	return m.math(opAdd, val)
}

func (m MathExpr) Sub(val any) MathExpr {
	return m.math(opSub, val)
}

func (m MathExpr) Multi(val any) MathExpr {
	return m.math(opMulti, val)
}

func (m MathExpr) Div(val any) MathExpr {
	return m.math(opDiv, val)
}

func (m MathExpr) math(o op, val any) MathExpr {
	return MathExpr{
		left:  m,
		op:    o,
		right: exprOf(val),
	}
}

func (m MathExpr) expr() {}

// listExpr 是 IN 后面的括号列表，空列表渲染成 (NULL)
type listExpr struct {
	vals []any
}

func (listExpr) expr() {}

// Subquery 可以放在 IN 后面的查询，例如 *Selector[T]
type Subquery interface {
	subquery() *selectQuery
}

// subqueryExpr 代表一个子查询，翻译的时候会用外层的方言一起翻译
type subqueryExpr struct {
	q *selectQuery
}

func (subqueryExpr) expr() {}
