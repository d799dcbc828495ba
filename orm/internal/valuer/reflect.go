package valuer

import (
	"reflect"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

// reflectValue 基于反射的 Value
type reflectValue struct {
	val  reflect.Value
	meta *model.Model
}

var _ Creator = NewReflectValue

// NewReflectValue 返回一个封装好的，基于反射实现的 Value
// 输入 val 必须是一个指向结构体实例的指针，而不能是任何其它类型
func NewReflectValue(val any, meta *model.Model) Value {
	return reflectValue{
		val:  reflect.ValueOf(val).Elem(),
		meta: meta,
	}
}

func (r reflectValue) Field(name string) (any, error) {
	fd, ok := r.meta.FieldMap[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	return r.val.Field(fd.Index).Interface(), nil
}

// SetColumns 将数据库中的数据设置到对应的 struct 上
func (r reflectValue) SetColumns(row map[string]any) error {
	for c, v := range row {
		// 找到 db column name 对应的映射信息
		cm, ok := r.meta.ColumnMap[c]
		if !ok {
			if _, rel := r.meta.RelationMap[c]; rel {
				continue
			}
			return errs.NewErrUnknownColumn(c)
		}
		if err := assign(c, r.val.Field(cm.Index), v); err != nil {
			return err
		}
	}
	return nil
}
