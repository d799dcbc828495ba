package orm

import (
	"context"
)

type Deleter[T any] struct {
	core
	sess  Session
	table string
	where []Predicate
}

// NewDeleter creates a new instance of Deleter.
func NewDeleter[T any](sess Session) *Deleter[T] {
	return &Deleter[T]{
		core: sess.getCore(),
		sess: sess,
	}
}

// From sets the table for the Deleter and returns a pointer to the Deleter.
// The table parameter is written as is.
func (d *Deleter[T]) From(table string) *Deleter[T] {
	d.table = table
	return d
}

// Where accepts predicates and adds them to the Deleter's where clause.
func (d *Deleter[T]) Where(predicates ...Predicate) *Deleter[T] {
	d.where = predicates
	return d
}

// Build generates a DELETE query based on the provided parameters.
func (d *Deleter[T]) Build() (*Query, error) {
	m, err := d.r.Get(new(T))
	if err != nil {
		return nil, err
	}
	b := newBuilder(d.core)
	b.model = m

	b.sb.WriteString("DELETE FROM ")
	if d.table == "" {
		b.quote(m.TableName)
	} else {
		b.sb.WriteString(d.table)
	}

	if len(d.where) > 0 {
		b.sb.WriteString(" WHERE ")
		if err = b.buildPredicates(d.where); err != nil {
			return nil, err
		}
	}
	return b.query(), nil
}

func (d *Deleter[T]) Exec(ctx context.Context) Result {
	m, _ := d.r.Get(new(T))
	return exec(ctx, d.sess, d.core, &QueryContext{
		Type:    "DELETE",
		Builder: d,
		Model:   m,
	})
}
