package schema

import (
	"regexp"
	"strings"
)

var sqliteColumnType = regexp.MustCompile(`(unsigned)?\s*([a-z]+)(?:\(([0-9,]+)\))?`)

type sqliteDialect struct{}

func (sqliteDialect) Name() string {
	return "sqlite"
}

func (sqliteDialect) ListTablesSQL(cfg Config) (string, []any) {
	return "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name", nil
}

// DescribeColumnSQL PRAGMA 不支持占位符
func (sqliteDialect) DescribeColumnSQL(table string, cfg Config) (string, []any) {
	return `PRAGMA table_info("` + strings.ReplaceAll(table, `"`, `""`) + `")`, nil
}

func (sqliteDialect) ConvertColumn(native string) (ColumnType, error) {
	if strings.TrimSpace(native) == "" {
		// 没有声明类型的列
		return ColumnType{Type: TypeText}, nil
	}
	matches := sqliteColumnType.FindStringSubmatch(strings.ToLower(native))
	if matches == nil {
		return ColumnType{}, unknownColumnType(native)
	}
	unsigned := matches[1] != ""
	col := matches[2]
	length, precision := parseLength(matches[3])

	switch {
	case col == "bigint":
		return ColumnType{Type: TypeBigInteger, Unsigned: unsigned}, nil
	case col == "smallint":
		return ColumnType{Type: TypeSmallInteger, Unsigned: unsigned}, nil
	case col == "tinyint":
		return ColumnType{Type: TypeTinyInteger, Unsigned: unsigned}, nil
	case strings.Contains(col, "int"):
		return ColumnType{Type: TypeInteger, Unsigned: unsigned}, nil
	case strings.Contains(col, "decimal"):
		return ColumnType{Type: TypeDecimal, Length: length, Precision: precision, Unsigned: unsigned}, nil
	case col == "float" || col == "real" || col == "double":
		return ColumnType{Type: TypeFloat, Length: length, Precision: precision, Unsigned: unsigned}, nil
	case strings.Contains(col, "boolean"):
		return ColumnType{Type: TypeBoolean}, nil
	case (col == "char" && length == 36) || col == "uuid":
		return ColumnType{Type: TypeUUID, Length: length}, nil
	case strings.Contains(col, "char"):
		return ColumnType{Type: TypeString, Length: length}, nil
	case col == "binary" && length == 16:
		return ColumnType{Type: TypeBinaryUUID, Length: length}, nil
	case col == "blob" || col == "clob" || col == "binary" || col == "varbinary":
		return ColumnType{Type: TypeBinary, Length: length}, nil
	case col == "date" || col == "time" || col == "timestamp" || col == "datetime":
		return ColumnType{Type: col}, nil
	}
	return ColumnType{Type: TypeText}, nil
}

// ConvertColumnDescription 处理 PRAGMA table_info 的一行
func (d sqliteDialect) ConvertColumnDescription(row Row) (Column, error) {
	ct, err := d.ConvertColumn(str(row["type"]))
	if err != nil {
		return Column{}, err
	}
	res := Column{
		Name:       str(row["name"]),
		Null:       !isTrue(row["notnull"]),
		PrimaryKey: toInt(row["pk"]) > 0,
	}
	res.setType(ct)
	// INTEGER PRIMARY KEY 是 rowid 的别名
	res.AutoIncrement = res.PrimaryKey && ct.Type == TypeInteger

	def := strPtr(row["dflt_value"])
	if def != nil && strings.ToUpper(*def) != "NULL" {
		v := strings.TrimSuffix(strings.TrimPrefix(*def, "'"), "'")
		res.Default = &v
	}
	return res, nil
}

// normalizeTable 复合主键不是 rowid 的别名，不会自增
func (sqliteDialect) normalizeTable(ts *TableSchema) {
	if len(ts.PrimaryKey) < 2 {
		return
	}
	for i := range ts.Columns {
		ts.Columns[i].AutoIncrement = false
	}
}
