package orm

import (
	"context"
	"reflect"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

// UpsertBuilder 构造 UPSERT 部分，MySQL 是 ON DUPLICATE KEY UPDATE，其它是 ON CONFLICT
type UpsertBuilder[T any] struct {
	i               *Inserter[T]
	conflictColumns []string
}

type Upsert struct {
	conflictColumns []string
	assigns         []Assignable
}

// ConflictColumns 只对 ON CONFLICT 的方言有效
func (o *UpsertBuilder[T]) ConflictColumns(cols ...string) *UpsertBuilder[T] {
	o.conflictColumns = cols
	return o
}

// Update 也可以看做是一个终结方法，重新回到 Inserter 里面
// 传入 Column 表示使用插入的值，传入 Assignment 表示使用指定的值
func (o *UpsertBuilder[T]) Update(assigns ...Assignable) *Inserter[T] {
	o.i.onDuplicate = &Upsert{
		conflictColumns: o.conflictColumns,
		assigns:         assigns,
	}
	return o.i
}

type Inserter[T any] struct {
	core
	sess        Session
	values      []*T     // 缓存要插入的数据
	columns     []string // 只插入哪些字段
	onDuplicate *Upsert
}

func NewInserter[T any](sess Session) *Inserter[T] {
	return &Inserter[T]{
		core: sess.getCore(),
		sess: sess,
	}
}

// Values 将插入数据库中的数据
func (i *Inserter[T]) Values(vals ...*T) *Inserter[T] {
	i.values = vals
	return i
}

// Columns 只插入指定的字段
func (i *Inserter[T]) Columns(cols ...string) *Inserter[T] {
	i.columns = cols
	return i
}

func (i *Inserter[T]) OnDuplicateKey() *UpsertBuilder[T] {
	return &UpsertBuilder[T]{i: i}
}

func (i *Inserter[T]) Build() (*Query, error) {
	if len(i.values) == 0 {
		return nil, errs.ErrInsertZeroRow
	}
	// 由于多条数据都一样，同一个 struct 所以这里处理第一条就可以拿到 db field 和 struct 的映射关系
	m, err := i.r.Get(i.values[0])
	if err != nil {
		return nil, err
	}
	b := newBuilder(i.core)
	b.model = m

	b.sb.WriteString("INSERT INTO ")
	b.quote(m.TableName)
	b.sb.WriteString(" (")

	fields := m.Fields
	if len(i.columns) != 0 {
		fields = make([]*model.Field, 0, len(i.columns))
		for _, c := range i.columns {
			fd, ok := m.FieldByColumnOrName(c)
			if !ok {
				return nil, errs.NewErrUnknownField(c)
			}
			fields = append(fields, fd)
		}
	}

	// +1 是考虑到 UPSERT 语句会传递额外的参数
	b.args = make([]any, 0, len(fields)*len(i.values)+1)
	for idx, fd := range fields {
		if idx > 0 {
			b.sb.WriteByte(',')
		}
		b.quote(fd.ColName)
	}

	b.sb.WriteString(") VALUES ")
	for vIdx, val := range i.values {
		if vIdx > 0 {
			b.sb.WriteByte(',')
		}
		refVal := reflect.ValueOf(val).Elem()
		b.sb.WriteByte('(')
		for fIdx, fd := range fields {
			if fIdx > 0 {
				b.sb.WriteByte(',')
			}
			b.parameter(refVal.Field(fd.Index).Interface())
		}
		b.sb.WriteByte(')')
	}

	if i.onDuplicate != nil {
		if err = i.dialect.buildUpsert(b, i.onDuplicate); err != nil {
			return nil, err
		}
	}
	return b.query(), nil
}

func (i *Inserter[T]) Exec(ctx context.Context) Result {
	var m *model.Model
	if len(i.values) > 0 {
		m, _ = i.r.Get(i.values[0])
	}
	return exec(ctx, i.sess, i.core, &QueryContext{
		Type:    "INSERT",
		Builder: i,
		Model:   m,
	})
}
