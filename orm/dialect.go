package orm

import (
	"strconv"
	"strings"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/schema"
)

var (
	MySQL    Dialect = &mysqlDialect{}
	SQLite3  Dialect = &sqlite3Dialect{}
	Postgres Dialect = &postgresDialect{}
)

// Dialect 方言，负责转义、分页、UPSERT 和可移植函数的翻译
type Dialect interface {
	Name() string
	// SchemaDialect 返回读取表结构用的方言
	SchemaDialect() schema.Dialect

	quoter() byte
	buildUpsert(b *builder, u *Upsert) error
	buildLimitOffset(b *builder, limit, offset int)
	// translate 在构造 SQL 之前改写查询，返回的是副本
	translate(q *selectQuery) (*selectQuery, error)
	// rebind 把 ? 占位符换成方言自己的写法
	rebind(query string) string
}

// PostgresWithRowNumberPaging 返回用 ROW_NUMBER() 模拟分页的 Postgres 方言
func PostgresWithRowNumberPaging() Dialect {
	return &postgresDialect{rowNumberPaging: true}
}

// DialectFor 根据 database/sql 的驱动名返回方言
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "sqlite3", "sqlite":
		return SQLite3, nil
	case "postgres", "pgx":
		return Postgres, nil
	default:
		return nil, errs.NewErrUnknownDialect(driver)
	}
}

type standardSQL struct {
}

func (s *standardSQL) quoter() byte {
	return '"'
}

func (s *standardSQL) buildLimitOffset(b *builder, limit, offset int) {
	if limit > 0 {
		b.sb.WriteString(" LIMIT ")
		b.parameter(limit)
	}
	if offset > 0 {
		b.sb.WriteString(" OFFSET ")
		b.parameter(offset)
	}
}

func (s *standardSQL) rebind(query string) string {
	return query
}

// buildUpsert ON CONFLICT 的写法，SQLite 和 Postgres 一样
func (s *standardSQL) buildUpsert(b *builder, u *Upsert) error {
	b.sb.WriteString(" ON CONFLICT")
	if len(u.conflictColumns) > 0 {
		b.sb.WriteByte('(')
		for i, col := range u.conflictColumns {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			if err := b.buildColumn(C(col)); err != nil {
				return err
			}
		}
		b.sb.WriteByte(')')
	}
	b.sb.WriteString(" DO UPDATE SET ")

	for idx, assign := range u.assigns {
		if idx > 0 {
			b.sb.WriteByte(',')
		}
		switch a := assign.(type) {
		case Column:
			fd, ok := b.model.FieldByColumnOrName(a.name)
			if !ok {
				return errs.NewErrUnknownField(a.name)
			}
			// 使用原本插入的值
			b.quote(fd.ColName)
			b.sb.WriteString("=excluded.")
			b.quote(fd.ColName)
		case Assignment:
			if err := b.buildAssignment(a); err != nil {
				return err
			}
		default:
			return errs.NewErrUnsupportedAssignableType(a)
		}
	}
	return nil
}

type mysqlDialect struct {
	standardSQL
}

func (m *mysqlDialect) Name() string {
	return "mysql"
}

func (m *mysqlDialect) SchemaDialect() schema.Dialect {
	return schema.MySQL
}

func (m *mysqlDialect) quoter() byte {
	return '`'
}

// buildLimitOffset MySQL 不支持只有 OFFSET，用最大的 LIMIT 代替
func (m *mysqlDialect) buildLimitOffset(b *builder, limit, offset int) {
	if limit <= 0 && offset > 0 {
		b.sb.WriteString(" LIMIT 18446744073709551615 OFFSET ")
		b.parameter(offset)
		return
	}
	m.standardSQL.buildLimitOffset(b, limit, offset)
}

func (m *mysqlDialect) translate(q *selectQuery) (*selectQuery, error) {
	return newTranslator(m, nil).query(q)
}

func (m *mysqlDialect) buildUpsert(b *builder, u *Upsert) error {
	b.sb.WriteString(" ON DUPLICATE KEY UPDATE ")
	for idx, a := range u.assigns {
		if idx > 0 {
			b.sb.WriteByte(',')
		}

		switch assign := a.(type) {
		case Column:
			// 使用原本插入的值
			// ON DUPLICATE KEY UPDATE `first_name`=VALUES(`first_name`)
			fd, ok := b.model.FieldByColumnOrName(assign.name)
			if !ok {
				return errs.NewErrUnknownField(assign.name)
			}
			b.quote(fd.ColName)
			b.sb.WriteString("=VALUES(")
			b.quote(fd.ColName)
			b.sb.WriteByte(')')
		case Assignment:
			if err := b.buildAssignment(assign); err != nil {
				return err
			}
		default:
			return errs.NewErrUnsupportedAssignableType(assign)
		}
	}
	return nil
}

type sqlite3Dialect struct {
	standardSQL
}

func (s *sqlite3Dialect) Name() string {
	return "sqlite3"
}

func (s *sqlite3Dialect) SchemaDialect() schema.Dialect {
	return schema.SQLite
}

func (s *sqlite3Dialect) quoter() byte {
	return '`'
}

// buildLimitOffset SQLite 里 LIMIT -1 表示不限制
func (s *sqlite3Dialect) buildLimitOffset(b *builder, limit, offset int) {
	if limit <= 0 && offset > 0 {
		b.sb.WriteString(" LIMIT -1 OFFSET ")
		b.parameter(offset)
		return
	}
	s.standardSQL.buildLimitOffset(b, limit, offset)
}

func (s *sqlite3Dialect) translate(q *selectQuery) (*selectQuery, error) {
	return newTranslator(s, sqliteFuncs).query(q)
}

type postgresDialect struct {
	standardSQL
	// rowNumberPaging 为 true 的时候用 ROW_NUMBER() 子查询实现 LIMIT/OFFSET
	rowNumberPaging bool
}

func (p *postgresDialect) Name() string {
	return "postgres"
}

func (p *postgresDialect) SchemaDialect() schema.Dialect {
	return schema.Postgres
}

func (p *postgresDialect) translate(q *selectQuery) (*selectQuery, error) {
	tq, err := newTranslator(p, postgresFuncs).query(q)
	if err != nil {
		return nil, err
	}
	if p.rowNumberPaging && (tq.limit > 0 || tq.offset > 0) {
		return pageWithRowNumber(tq), nil
	}
	return tq, nil
}

// rebind 把 ? 换成 $1, $2 ...，引号里面的 ? 不处理
func (p *postgresDialect) rebind(query string) string {
	if strings.IndexByte(query, '?') < 0 {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
