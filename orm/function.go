package orm

// 可移植的函数名，由方言在生成 SQL 之前翻译成各自的写法
const (
	fnConcat      = "CONCAT"
	fnDateDiff    = "DATEDIFF"
	fnNow         = "NOW"
	fnCurrentDate = "CURRENT_DATE"
	fnCurrentTime = "CURRENT_TIME"
)

// FuncExpr 代表一个 SQL 函数调用
// conj 不为空的时候，参数之间用 conj 连接，例如 a || b
// bare 为 true 的时候，只输出函数名，例如 CURRENT_DATE
type FuncExpr struct {
	name   string
	args   []Expression
	conj   string
	bare   bool
	alias  string
	native bool
}

func (f FuncExpr) expr() {}

func (f FuncExpr) selectable() {}

func (f FuncExpr) As(alias string) FuncExpr {
	f.alias = alias
	return f
}

func (f FuncExpr) EQ(arg any) Predicate {
	return Predicate{left: f, op: opEQ, right: exprOf(arg)}
}

func (f FuncExpr) LT(arg any) Predicate {
	return Predicate{left: f, op: opLT, right: exprOf(arg)}
}

func (f FuncExpr) GT(arg any) Predicate {
	return Predicate{left: f, op: opGT, right: exprOf(arg)}
}

// Func 构造任意函数调用，方言不会翻译它
func Func(name string, args ...any) FuncExpr {
	return FuncExpr{name: name, args: exprsOf(args), native: true}
}

// Concat 拼接字符串，非 Expression 的参数会作为绑定参数
func Concat(args ...any) FuncExpr {
	return FuncExpr{name: fnConcat, args: exprsOf(args)}
}

// DateDiff 返回 a 和 b 相差的天数
func DateDiff(a, b any) FuncExpr {
	return FuncExpr{name: fnDateDiff, args: []Expression{exprOf(a), exprOf(b)}}
}

func Now() FuncExpr {
	return FuncExpr{name: fnNow}
}

func CurrentDate() FuncExpr {
	return FuncExpr{name: fnCurrentDate}
}

func CurrentTime() FuncExpr {
	return FuncExpr{name: fnCurrentTime}
}

func exprsOf(args []any) []Expression {
	res := make([]Expression, 0, len(args))
	for _, a := range args {
		res = append(res, exprOf(a))
	}
	return res
}
