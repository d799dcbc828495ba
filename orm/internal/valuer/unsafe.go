package valuer

import (
	"reflect"
	"unsafe"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

type unsafeValue struct {
	addr unsafe.Pointer // 使用 unsafe Pointer 而不是 uintptr 是因为 gc 后 uintptr 会发生变化
	meta *model.Model
}

var _ Creator = NewUnsafeValue

func NewUnsafeValue(val any, meta *model.Model) Value {
	return unsafeValue{
		addr: reflect.ValueOf(val).UnsafePointer(),
		meta: meta,
	}
}

func (u unsafeValue) Field(name string) (any, error) {
	fd, ok := u.meta.FieldMap[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	ptr := unsafe.Add(u.addr, fd.Offset)
	return reflect.NewAt(fd.Type, ptr).Elem().Interface(), nil
}

func (u unsafeValue) SetColumns(row map[string]any) error {
	for c, v := range row {
		cm, ok := u.meta.ColumnMap[c]
		if !ok {
			if _, rel := u.meta.RelationMap[c]; rel {
				continue
			}
			return errs.NewErrUnknownColumn(c)
		}
		ptr := unsafe.Add(u.addr, cm.Offset)
		if err := assign(c, reflect.NewAt(cm.Type, ptr).Elem(), v); err != nil {
			return err
		}
	}
	return nil
}
