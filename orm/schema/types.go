package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownColumnType = errors.New("schema: 无法解析的列类型")
	ErrUnknownTable      = errors.New("schema: 表不存在")
)

// 抽象的列类型，和具体的数据库无关
const (
	TypeString       = "string"
	TypeText         = "text"
	TypeUUID         = "uuid"
	TypeBinaryUUID   = "binaryuuid"
	TypeBinary       = "binary"
	TypeBoolean      = "boolean"
	TypeTinyInteger  = "tinyinteger"
	TypeSmallInteger = "smallinteger"
	TypeInteger      = "integer"
	TypeBigInteger   = "biginteger"
	TypeFloat        = "float"
	TypeDecimal      = "decimal"
	TypeDate         = "date"
	TypeTime         = "time"
	TypeDateTime     = "datetime"
	TypeTimestamp    = "timestamp"
	TypeJSON         = "json"
)

// Row 是 describe 语句返回的一行，key 是列名
type Row = map[string]any

// Config 连接相关的配置，决定去哪个库或者 schema 里面找表
type Config struct {
	// Database MySQL 的库名，空字符串表示当前库
	Database string `yaml:"database"`
	// Schema Postgres 的 schema，默认是 public
	Schema string `yaml:"schema"`
}

// ColumnType 是解析数据库原生类型之后的结果
// Length 和 Precision 为 0 表示没有
type ColumnType struct {
	Type      string
	Length    int
	Precision int
	Unsigned  bool
}

type Column struct {
	Name      string
	Type      string
	Length    int
	Precision int
	Unsigned  bool
	Null      bool
	// Default nil 表示没有默认值
	Default       *string
	PrimaryKey    bool
	AutoIncrement bool
	Comment       string
}

func (c *Column) setType(ct ColumnType) {
	c.Type = ct.Type
	c.Length = ct.Length
	c.Precision = ct.Precision
	c.Unsigned = ct.Unsigned
}

type TableSchema struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Column 按名字查找列
func (t *TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Dialect 屏蔽不同数据库读取表结构的差异
type Dialect interface {
	Name() string
	ListTablesSQL(cfg Config) (string, []any)
	DescribeColumnSQL(table string, cfg Config) (string, []any)
	ConvertColumn(native string) (ColumnType, error)
	ConvertColumnDescription(row Row) (Column, error)
}

// tableNormalizer 由需要在 Describe 之后再修正整张表的方言实现
type tableNormalizer interface {
	normalizeTable(ts *TableSchema)
}

var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

func unknownColumnType(native string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumnType, native)
}

// parseLength 解析 (10,2) 里面的数字
func parseLength(s string) (length int, precision int) {
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, ",", 2)
	length, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		precision, _ = strconv.Atoi(parts[1])
	}
	return length, precision
}

// str 驱动返回的文本可能是 []byte 也可能是 string
func str(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func strPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := str(v)
	return &s
}

func toInt(v any) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case int32:
		return int(val)
	default:
		n, _ := strconv.Atoi(str(v))
		return n
	}
}

func isTrue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	default:
		switch strings.ToLower(str(v)) {
		case "1", "t", "true", "yes", "y":
			return true
		}
		return false
	}
}
