package valuer

import "github.com/cakephp/cakephp-sub067/orm/model"

// Value 是对结构体实例的内部抽象
type Value interface {
	// Field 返回字段对应的值
	Field(name string) (any, error)
	// SetColumns 将一行结果按照列名设置到结构体上
	// keys that name a relation of the model are skipped, the caller hydrates those
	SetColumns(row map[string]any) error
}

// Creator 本质上也可以看所是 factory 模式，极其简单的 factory 模式
type Creator func(val any, meta *model.Model) Value
