package orm

// Aggregate 代表聚合函数， 例如 AVG, MAX, MIN 等 以及别名
type Aggregate struct {
	fn    string
	arg   Column
	alias string
}

func (a Aggregate) selectable() {}

func (a Aggregate) expr() {}

// As 这里使用 值 作为接收者，可以防止并发问题，每次都返回一个新的
func (a Aggregate) As(alias string) Aggregate {
	return Aggregate{
		fn:    a.fn,
		arg:   a.arg,
		alias: alias,
	}
}

// EQ 例如 AVG("id").EQ(12)
func (a Aggregate) EQ(arg any) Predicate {
	return Predicate{left: a, op: opEQ, right: exprOf(arg)}
}

func (a Aggregate) LT(arg any) Predicate {
	return Predicate{left: a, op: opLT, right: exprOf(arg)}
}

func (a Aggregate) GT(arg any) Predicate {
	return Predicate{left: a, op: opGT, right: exprOf(arg)}
}

// Avg 求平均值
func Avg(c string) Aggregate {
	return Aggregate{fn: "AVG", arg: C(c)}
}

// Max 求最大值
func Max(c string) Aggregate {
	return Aggregate{fn: "MAX", arg: C(c)}
}

// Min 求最小值
func Min(c string) Aggregate {
	return Aggregate{fn: "MIN", arg: C(c)}
}

// Count 获取数量
func Count(c string) Aggregate {
	return Aggregate{fn: "COUNT", arg: C(c)}
}

// Sum 求和
func Sum(c string) Aggregate {
	return Aggregate{fn: "SUM", arg: C(c)}
}
