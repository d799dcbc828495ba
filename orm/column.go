package orm

import "strings"

// Column 代表一个列，name 既可以是字段名，也可以是列名
// 带表别名的写法是 C("Author.Name")
type Column struct {
	table string
	name  string
	alias string
}

func (c Column) expr() {}

func (c Column) selectable() {}

func (c Column) assign() {}

type value struct {
	val any
}

func (v value) expr() {}

// valueOf creates a new value object with the given value.
func valueOf(val any) value {
	return value{val: val}
}

func C(name string) Column {
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		return Column{table: name[:idx], name: name[idx+1:]}
	}
	return Column{name: name}
}

// As 这里使用 值 作为接收者，每次都返回一个新的
func (c Column) As(alias string) Column {
	return Column{
		table: c.table,
		name:  c.name,
		alias: alias,
	}
}

// EQ 例如 C("id").Eq(12)
func (c Column) EQ(arg any) Predicate {
	return c.binary(opEQ, arg)
}

func (c Column) NEQ(arg any) Predicate {
	return c.binary(opNEQ, arg)
}

// LT 例如 C("id").LT(12)
func (c Column) LT(arg any) Predicate {
	return c.binary(opLT, arg)
}

func (c Column) LTE(arg any) Predicate {
	return c.binary(opLTE, arg)
}

func (c Column) GT(arg any) Predicate {
	return c.binary(opGT, arg)
}

func (c Column) GTE(arg any) Predicate {
	return c.binary(opGTE, arg)
}

func (c Column) Like(pattern string) Predicate {
	return c.binary(opLike, pattern)
}

// In 构造 IN 查询，vals 为空的时候生成 IN (NULL)，不会匹配任何行
func (c Column) In(vals ...any) Predicate {
	return Predicate{
		left:  c,
		op:    opIn,
		right: listExpr{vals: vals},
	}
}

func (c Column) NotIn(vals ...any) Predicate {
	return Predicate{
		left:  c,
		op:    opNotIn,
		right: listExpr{vals: vals},
	}
}

// InQuery 例如 C("AuthorId").InQuery(NewSelector[Author](db).Select(C("Id")))
func (c Column) InQuery(sub Subquery) Predicate {
	return Predicate{
		left:  c,
		op:    opIn,
		right: subqueryExpr{q: sub.subquery()},
	}
}

func (c Column) IsNull() Predicate {
	return Predicate{left: c, op: opIsNull}
}

func (c Column) IsNotNull() Predicate {
	return Predicate{left: c, op: opIsNotNull}
}

// Add 用于 UPDATE 中的计算，例如 C("Age").Add(1)
func (c Column) Add(val any) MathExpr {
	return c.math(opAdd, val)
}

func (c Column) Sub(val any) MathExpr {
	return c.math(opSub, val)
}

func (c Column) Multi(val any) MathExpr {
	return c.math(opMulti, val)
}

func (c Column) Div(val any) MathExpr {
	return c.math(opDiv, val)
}

func (c Column) math(o op, val any) MathExpr {
	return MathExpr{
		left:  c,
		op:    o,
		right: exprOf(val),
	}
}

func (c Column) binary(o op, arg any) Predicate {
	return Predicate{
		left:  c,
		op:    o,
		right: exprOf(arg), // 如果 arg 不是 Expression 类型 就让他变成这个类型
	}
}
