package orm

import (
	"fmt"
)

const (
	// rowNumberColumn 是分页子查询里的行号列，返回给用户之前会被删掉
	rowNumberColumn = "_cake_page_rownum_"
	pagingAlias     = "_cake_paging_"
)

// rowNumber 是 ROW_NUMBER() OVER (ORDER BY ...) AS alias
type rowNumber struct {
	orderBy []OrderBy
	alias   string
}

func (rowNumber) selectable() {}

// funcRewriter 把一个可移植函数改写成方言自己的表达式，参数已经翻译过
type funcRewriter func(f FuncExpr) FuncExpr

var sqliteFuncs = map[string]funcRewriter{
	fnConcat: concatOperator,
	fnDateDiff: func(f FuncExpr) FuncExpr {
		return FuncExpr{name: "ROUND", args: []Expression{
			FuncExpr{conj: "-", native: true, args: []Expression{
				FuncExpr{name: "JULIANDAY", args: f.args[:1], native: true},
				FuncExpr{name: "JULIANDAY", args: f.args[1:2], native: true},
			}},
		}}
	},
	fnNow:         sqliteNow("DATETIME"),
	fnCurrentDate: sqliteNow("DATE"),
	fnCurrentTime: sqliteNow("TIME"),
}

var postgresFuncs = map[string]funcRewriter{
	fnConcat: concatOperator,
	fnDateDiff: func(f FuncExpr) FuncExpr {
		return FuncExpr{name: "DATE_PART", args: []Expression{
			Raw("'day'"),
			FuncExpr{conj: "-", args: f.args[:2], native: true},
		}}
	},
	fnCurrentDate: bareFunc,
	fnCurrentTime: bareFunc,
}

func concatOperator(f FuncExpr) FuncExpr {
	return FuncExpr{conj: "||", args: f.args}
}

func bareFunc(f FuncExpr) FuncExpr {
	return FuncExpr{name: f.name, bare: true}
}

func sqliteNow(name string) funcRewriter {
	return func(f FuncExpr) FuncExpr {
		return FuncExpr{name: name, args: []Expression{Raw("'now'")}}
	}
}

// translator 遍历查询里的所有表达式，改写可移植函数
// 子查询交给方言递归翻译
type translator struct {
	d     Dialect
	funcs map[string]funcRewriter
}

func newTranslator(d Dialect, funcs map[string]funcRewriter) translator {
	return translator{d: d, funcs: funcs}
}

func (t translator) query(q *selectQuery) (*selectQuery, error) {
	cp := q.clone()
	var err error
	for i, s := range cp.columns {
		if cp.columns[i], err = t.selectable(s); err != nil {
			return nil, err
		}
	}
	for i, s := range cp.extra {
		if cp.extra[i], err = t.selectable(s); err != nil {
			return nil, err
		}
	}
	for i, j := range cp.joins {
		if cp.joins[i].on, err = t.predicates(j.on); err != nil {
			return nil, err
		}
	}
	if cp.where, err = t.predicates(cp.where); err != nil {
		return nil, err
	}
	if cp.having, err = t.predicates(cp.having); err != nil {
		return nil, err
	}
	for i, ob := range cp.orderBy {
		if cp.orderBy[i].expr, err = t.expr(ob.expr); err != nil {
			return nil, err
		}
	}
	if cp.from != nil && !cp.from.translated {
		if cp.from, err = t.d.translate(cp.from); err != nil {
			return nil, err
		}
		cp.from.translated = true
	}
	return cp, nil
}

func (t translator) selectable(s Selectable) (Selectable, error) {
	f, ok := s.(FuncExpr)
	if !ok {
		return s, nil
	}
	e, err := t.expr(f)
	if err != nil {
		return nil, err
	}
	return e.(FuncExpr), nil
}

func (t translator) predicates(ps []Predicate) ([]Predicate, error) {
	if len(ps) == 0 {
		return ps, nil
	}
	res := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		e, err := t.expr(p)
		if err != nil {
			return nil, err
		}
		res = append(res, e.(Predicate))
	}
	return res, nil
}

func (t translator) expr(e Expression) (Expression, error) {
	var err error
	switch val := e.(type) {
	case Predicate:
		if val.left, err = t.expr(val.left); err != nil {
			return nil, err
		}
		if val.right, err = t.expr(val.right); err != nil {
			return nil, err
		}
		return val, nil
	case MathExpr:
		if val.left, err = t.expr(val.left); err != nil {
			return nil, err
		}
		if val.right, err = t.expr(val.right); err != nil {
			return nil, err
		}
		return val, nil
	case binaryExpr:
		if val.left, err = t.expr(val.left); err != nil {
			return nil, err
		}
		if val.right, err = t.expr(val.right); err != nil {
			return nil, err
		}
		return val, nil
	case subqueryExpr:
		sub, err := t.d.translate(val.q)
		if err != nil {
			return nil, err
		}
		sub.translated = true
		return subqueryExpr{q: sub}, nil
	case FuncExpr:
		return t.fn(val)
	default:
		return e, nil
	}
}

func (t translator) fn(f FuncExpr) (FuncExpr, error) {
	args := make([]Expression, 0, len(f.args))
	for _, a := range f.args {
		e, err := t.expr(a)
		if err != nil {
			return FuncExpr{}, err
		}
		args = append(args, e)
	}
	f.args = args
	if f.native {
		return f, nil
	}
	if f.name == fnDateDiff && len(f.args) != 2 {
		return FuncExpr{}, fmt.Errorf("%w: DATEDIFF 需要两个参数", ErrInvalidArgument)
	}
	if rw, ok := t.funcs[f.name]; ok {
		res := rw(f)
		res.alias = f.alias
		res.native = true
		return res, nil
	}
	f.native = true
	return f, nil
}

// pageWithRowNumber 把 LIMIT/OFFSET 改写成 ROW_NUMBER() 的子查询
// SELECT ... FROM (SELECT ..., ROW_NUMBER() OVER (ORDER BY ...) AS "_cake_page_rownum_" FROM ...) AS "_cake_paging_"
// WHERE "_cake_paging_"."_cake_page_rownum_" > offset AND "_cake_paging_"."_cake_page_rownum_" <= offset+limit
func pageWithRowNumber(q *selectQuery) *selectQuery {
	inner := q.clone()
	order := inner.orderBy
	if len(order) == 0 && inner.model.PrimaryKey != nil {
		order = []OrderBy{{expr: Column{name: inner.model.PrimaryKey.ColName}, order: "ASC"}}
	}
	inner.orderBy = nil
	inner.limit, inner.offset = 0, 0
	inner.decorators = nil
	inner.contain = nil
	inner.translated = true

	outer := &selectQuery{
		core:       q.core,
		sess:       q.sess,
		model:      q.model,
		from:       inner,
		fromAlias:  pagingAlias,
		columns:    pagingColumns(inner),
		decorators: append(append([]RowDecorator(nil), q.decorators...), dropColumn(rowNumberColumn)),
		translated: true,
	}
	inner.extra = append(inner.extra, rowNumber{orderBy: order, alias: rowNumberColumn})

	rn := fmt.Sprintf(`"%s"."%s"`, pagingAlias, rowNumberColumn)
	cond := Raw(rn+" > ?", q.offset).AsPredicate()
	if q.limit > 0 {
		cond = cond.And(Raw(rn+" <= ?", q.offset+q.limit).AsPredicate())
	}
	outer.where = []Predicate{cond}
	outer.orderBy = []OrderBy{{expr: Raw(rn), order: "ASC"}}
	return outer
}

// pagingColumns 内层只选了普通列的时候，外层按输出的列名选出来，不带行号
// 这样分页之后的查询还可以作为 IN 的子查询。否则用 *
func pagingColumns(inner *selectQuery) []Selectable {
	if len(inner.columns) == 0 || len(inner.extra) > 0 {
		return nil
	}
	res := make([]Selectable, 0, len(inner.columns))
	for _, s := range inner.columns {
		c, ok := s.(Column)
		if !ok {
			return nil
		}
		name := c.alias
		if name == "" {
			m := inner.model
			if c.table != "" && c.table != inner.qualifier() {
				m = nil
				for _, j := range inner.joins {
					if j.alias == c.table {
						m = j.model
					}
				}
			}
			if m == nil {
				return nil
			}
			fd, ok := m.FieldByColumnOrName(c.name)
			if !ok {
				return nil
			}
			name = fd.ColName
		}
		res = append(res, Raw(fmt.Sprintf(`"%s"."%s"`, pagingAlias, name)))
	}
	return res
}
