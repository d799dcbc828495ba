package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrPointerOnly 只支持一级指针作为输入
	// 看到这个 error 说明你输入了其它的东西
	// 我们并不希望用户能够直接使用 err == ErrPointerOnly
	// 所以放在我们的 internal 包里
	ErrPointerOnly = errors.New("orm: 只支持一级指针作为输入，例如 *User")

	ErrNoRows                 = errors.New("orm: 未找到数据")
	ErrTooManyReturnedColumns = errors.New("orm: 过多列")
	ErrInsertZeroRow          = errors.New("orm: 插入 0 行")
	ErrNoUpdatedColumns       = errors.New("orm: 未指定更新的列")
	ErrNoPrimaryKey           = errors.New("orm: 模型没有主键")

	// ErrInvalidArgument 关联和预加载用错了的时候，返回的错误都包装了它
	ErrInvalidArgument = errors.New("orm: 非法参数")
	// ErrUnknownAssociation Contain 了一个没有声明过的关联
	ErrUnknownAssociation = errors.New("orm: 未知关联")
	ErrUnknownDialect     = errors.New("orm: 未知方言")
	// ErrNoResult 中间件没有返回 sql.Result
	ErrNoResult = errors.New("orm: 没有执行结果")
)

func NewErrUnknownField(name string) error {
	return fmt.Errorf("orm: 未知字段 %s", name)
}

func NewErrUnknownColumn(name string) error {
	return fmt.Errorf("orm: 未知列 %s", name)
}

func NewErrUnsupportedExpressionType(expr any) error {
	return fmt.Errorf("orm: 不支持的表达式类型 %v", expr)
}

func NewErrUnsupportedSelectable(exp any) error {
	return fmt.Errorf("orm: 不支持的目标列 %v", exp)
}

func NewErrUnsupportedAssignableType(exp any) error {
	return fmt.Errorf("orm: 不支持的赋值表达式类型 %v", exp)
}

func NewErrInvalidTagContent(pair string) error {
	return fmt.Errorf("orm: 非法标签值 %s", pair)
}

func NewErrUnknownAssociation(name string) error {
	return fmt.Errorf("%w %s", ErrUnknownAssociation, name)
}

func NewErrUnknownDialect(driver string) error {
	return fmt.Errorf("%w，驱动 %q", ErrUnknownDialect, driver)
}

// NewErrMissingForeignKey 自定义的列里面没有关联需要的键，预加载的结果无法对应回主表
func NewErrMissingForeignKey(assoc, key string) error {
	return fmt.Errorf("%w: 关联 %s 必须查询 %q 列", ErrInvalidArgument, assoc, key)
}

func NewErrInvalidStrategy(assoc, strategy string) error {
	return fmt.Errorf("%w: 关联 %s 不支持策略 %q", ErrInvalidArgument, assoc, strategy)
}

func NewErrUnsupportedConversion(col string, from any, to string) error {
	return fmt.Errorf("orm: 无法将列 %s 的值 %T 转换为 %s", col, from, to)
}
