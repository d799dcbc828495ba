package model

import "reflect"

// Option is a function type that modifies a Model.
type Option func(model *Model) error

// Model 结构体映射db后的结构
type Model struct {
	// TableName 结构体对应的表名
	TableName string
	// Type is the struct type, used to allocate rows of this model.
	Type      reflect.Type
	Fields    []*Field          // 按照定义顺序
	FieldMap  map[string]*Field // 结构体 属性名 attr name 为 key  ItemId
	ColumnMap map[string]*Field // DB column name 为 key    item_id
	// RelationMap holds the fields that receive associated rows, keyed by
	// property name (the underscored field name unless tagged).
	RelationMap map[string]*Field
	PrimaryKey  *Field
}

// Field 字段相关的属性
type Field struct {
	ColName string       // 数据库中的字段名，关联字段则是属性名
	GoName  string       // go struct 中的名字
	Type    reflect.Type // go 中的数据类型，转换成 reflect.Value 的时候，知道是什么类型，不然那没法转
	// Index 是字段在结构体中的下标
	Index int
	// Offset 相对于对象起始地址的字段偏移量
	// uintptr 这个类型的值，只是简单记录一下位置
	Offset uintptr
}

// 我们支持的全部标签上的 key 都放在这里
// 方便用户查找，和我们后期维护
const (
	tagKeyColumn     = "column"
	tagKeyPrimaryKey = "pk"
	tagORMName       = "orm"
	tagIgnore        = "-"
)

// TableName 用户实现这个接口来返回自定义的表名
type TableName interface {
	TableName() string
}

// Column returns the column name of a Go field, or ok=false.
func (m *Model) Column(goName string) (string, bool) {
	fd, ok := m.FieldMap[goName]
	if !ok {
		return "", false
	}
	return fd.ColName, true
}

// ColumnNames lists the columns in declaration order.
func (m *Model) ColumnNames() []string {
	res := make([]string, 0, len(m.Fields))
	for _, fd := range m.Fields {
		res = append(res, fd.ColName)
	}
	return res
}

// FieldByColumnOrName accepts either a Go field name or a column name.
func (m *Model) FieldByColumnOrName(name string) (*Field, bool) {
	if fd, ok := m.FieldMap[name]; ok {
		return fd, true
	}
	fd, ok := m.ColumnMap[name]
	return fd, ok
}
