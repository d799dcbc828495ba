package orm

import (
	"sort"
)

// Assignable 可以出现在 SET 和 upsert 的更新列表里面
// Column 表示用实体里面的值，Assignment 表示指定的值或者表达式
type Assignable interface {
	assign()
}

type Assignment struct {
	column string
	val    Expression
}

// Assign column 是字段名或者列名，val 可以是值，也可以是 Column、MathExpr、RawExpr
func Assign(column string, val any) Assignment {
	return Assignment{
		column: column,
		val:    exprOf(val),
	}
}

// AssignMap 按照 key 排序，保证生成的 SQL 是稳定的
func AssignMap(vals map[string]any) []Assignable {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res := make([]Assignable, 0, len(keys))
	for _, k := range keys {
		res = append(res, Assign(k, vals[k]))
	}
	return res
}

func (a Assignment) assign() {}
