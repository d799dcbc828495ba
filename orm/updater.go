package orm

import (
	"context"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
)

type Updater[T any] struct {
	core
	sess    Session
	assigns []Assignable // 由于处理 name=zheng
	val     *T           // 更新用的结构体
	where   []Predicate
}

func NewUpdater[T any](sess Session) *Updater[T] {
	return &Updater[T]{
		core: sess.getCore(),
		sess: sess,
	}
}

func (u *Updater[T]) Update(t *T) *Updater[T] {
	u.val = t
	return u
}

// Set 传入 Column 的时候，值从 Update 的结构体里取
func (u *Updater[T]) Set(assigns ...Assignable) *Updater[T] {
	u.assigns = assigns
	return u
}

func (u *Updater[T]) Where(ps ...Predicate) *Updater[T] {
	u.where = ps
	return u
}

func (u *Updater[T]) Build() (*Query, error) {
	if len(u.assigns) == 0 {
		return nil, errs.ErrNoUpdatedColumns
	}
	m, err := u.r.Get(new(T))
	if err != nil {
		return nil, err
	}
	b := newBuilder(u.core)
	b.model = m

	b.sb.WriteString("UPDATE ")
	b.quote(m.TableName)
	b.sb.WriteString(" SET ")
	for i, a := range u.assigns {
		if i > 0 {
			b.sb.WriteByte(',')
		}
		switch assign := a.(type) {
		case Column:
			if err = b.buildColumn(assign); err != nil {
				return nil, err
			}
			if u.val == nil {
				return nil, errs.NewErrUnknownField(assign.name)
			}
			arg, err := u.valCreator(u.val, m).Field(assign.name)
			if err != nil {
				return nil, err
			}
			b.sb.WriteByte('=')
			b.parameter(arg)
		case Assignment:
			if err = b.buildAssignment(assign); err != nil {
				return nil, err
			}
		default:
			return nil, errs.NewErrUnsupportedAssignableType(a)
		}
	}
	if len(u.where) > 0 {
		b.sb.WriteString(" WHERE ")
		if err = b.buildPredicates(u.where); err != nil {
			return nil, err
		}
	}
	return b.query(), nil
}

func (u *Updater[T]) Exec(ctx context.Context) Result {
	m, _ := u.r.Get(new(T))
	return exec(ctx, u.sess, u.core, &QueryContext{
		Type:    "UPDATE",
		Builder: u,
		Model:   m,
	})
}
