package orm

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

// Row 是一行结果，key 是列名或者别名
// 关联的数据以属性名为 key 放在里面，值是 Row 或者 []Row
type Row = map[string]any

// RowDecorator 在结果交给用户之前处理每一行
type RowDecorator func(row Row) (Row, error)

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := make([]Row, 0, 8)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

func decorate(rows []Row, decorators []RowDecorator) ([]Row, error) {
	if len(decorators) == 0 {
		return rows, nil
	}
	var err error
	for i := range rows {
		for _, d := range decorators {
			if rows[i], err = d(rows[i]); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

// dropColumn 删掉方言或者关联引入的辅助列
func dropColumn(name string) RowDecorator {
	return func(row Row) (Row, error) {
		delete(row, name)
		return row, nil
	}
}

// nestJoined 把 JOIN 进来的 Alias__col 列收拢到 row[property]
// key 是连接键，它是 NULL 说明 LEFT JOIN 没有匹配，得到 nil
func nestJoined(alias, property, key string) RowDecorator {
	prefix := alias + "__"
	return func(row Row) (Row, error) {
		nested := make(Row, 4)
		for k, v := range row {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			nested[k[len(prefix):]] = v
			delete(row, k)
		}
		if nested[key] != nil {
			row[property] = nested
		} else {
			row[property] = nil
		}
		return row, nil
	}
}

// keyOf 把不同驱动返回的键统一成字符串，[]byte("1") 和 int64(1) 是同一个键
func keyOf(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case []byte:
		return string(val), true
	case string:
		return val, true
	default:
		return fmt.Sprint(val), true
	}
}

// hydrate 把一行结果写到 dst 里，dst 是指向结构体的指针
// 关联属性会递归处理
func (c core) hydrate(dst any, m *model.Model, row Row) error {
	if err := c.valCreator(dst, m).SetColumns(row); err != nil {
		return err
	}
	if len(m.RelationMap) == 0 {
		return nil
	}
	val := reflect.ValueOf(dst).Elem()
	for prop, fd := range m.RelationMap {
		v, ok := row[prop]
		if !ok {
			continue
		}
		if err := c.hydrateRelation(prop, val.Field(fd.Index), v); err != nil {
			return err
		}
	}
	return nil
}

func (c core) hydrateRelation(prop string, field reflect.Value, v any) error {
	var rows []Row
	switch val := v.(type) {
	case nil:
	case Row:
		rows = []Row{val}
	case []Row:
		rows = val
	default:
		return errs.NewErrUnsupportedConversion(prop, v, field.Type().String())
	}

	typ := field.Type()
	if typ.Kind() == reflect.Slice {
		slice := reflect.MakeSlice(typ, 0, len(rows))
		for _, r := range rows {
			e, err := c.newRelated(typ.Elem(), r)
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, e)
		}
		field.Set(slice)
		return nil
	}

	if len(rows) == 0 {
		field.Set(reflect.Zero(typ))
		return nil
	}
	e, err := c.newRelated(typ, rows[0])
	if err != nil {
		return err
	}
	field.Set(e)
	return nil
}

func (c core) newRelated(typ reflect.Type, row Row) (reflect.Value, error) {
	isPtr := typ.Kind() == reflect.Ptr
	if isPtr {
		typ = typ.Elem()
	}
	ptr := reflect.New(typ)
	m, err := c.r.Get(ptr.Interface())
	if err != nil {
		return reflect.Value{}, err
	}
	if err = c.hydrate(ptr.Interface(), m, row); err != nil {
		return reflect.Value{}, err
	}
	if isPtr {
		return ptr, nil
	}
	return ptr.Elem(), nil
}
