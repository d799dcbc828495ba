package schema

import (
	"regexp"
	"strings"
)

var mysqlColumnType = regexp.MustCompile(`([a-z]+)(?:\(([0-9,]+)\))?\s*([a-z]+)?`)

type mysqlDialect struct{}

func (mysqlDialect) Name() string {
	return "mysql"
}

func (mysqlDialect) ListTablesSQL(cfg Config) (string, []any) {
	if cfg.Database == "" {
		return "SHOW FULL TABLES WHERE Table_type = 'BASE TABLE'", nil
	}
	return "SHOW FULL TABLES FROM " + mysqlQuote(cfg.Database) + " WHERE Table_type = 'BASE TABLE'", nil
}

func (mysqlDialect) DescribeColumnSQL(table string, cfg Config) (string, []any) {
	name := mysqlQuote(table)
	if cfg.Database != "" {
		name = mysqlQuote(cfg.Database) + "." + name
	}
	return "SHOW FULL COLUMNS FROM " + name, nil
}

func (mysqlDialect) ConvertColumn(native string) (ColumnType, error) {
	matches := mysqlColumnType.FindStringSubmatch(strings.ToLower(native))
	if matches == nil {
		return ColumnType{}, unknownColumnType(native)
	}
	col := matches[1]
	length, precision := parseLength(matches[2])
	unsigned := matches[3] == "unsigned"

	switch {
	case col == "date" || col == "time" || col == "datetime" || col == "timestamp":
		return ColumnType{Type: col}, nil
	case col == "tinyint" && length == 1:
		return ColumnType{Type: TypeBoolean}, nil
	case col == "bigint":
		return ColumnType{Type: TypeBigInteger, Unsigned: unsigned}, nil
	case col == "tinyint":
		return ColumnType{Type: TypeTinyInteger, Unsigned: unsigned}, nil
	case col == "smallint":
		return ColumnType{Type: TypeSmallInteger, Unsigned: unsigned}, nil
	case col == "int" || col == "integer" || col == "mediumint":
		return ColumnType{Type: TypeInteger, Unsigned: unsigned}, nil
	case col == "char" && length == 36:
		return ColumnType{Type: TypeUUID, Length: length}, nil
	case strings.Contains(col, "char"):
		return ColumnType{Type: TypeString, Length: length}, nil
	case strings.Contains(col, "text"):
		return ColumnType{Type: TypeText}, nil
	case col == "binary" && length == 16:
		return ColumnType{Type: TypeBinaryUUID, Length: length}, nil
	case strings.Contains(col, "blob") || col == "binary" || col == "varbinary":
		return ColumnType{Type: TypeBinary, Length: length}, nil
	case col == "float" || col == "double":
		return ColumnType{Type: TypeFloat, Length: length, Precision: precision, Unsigned: unsigned}, nil
	case col == "decimal":
		return ColumnType{Type: TypeDecimal, Length: length, Precision: precision, Unsigned: unsigned}, nil
	case col == "json":
		return ColumnType{Type: TypeJSON}, nil
	}
	return ColumnType{Type: TypeString, Length: length}, nil
}

// ConvertColumnDescription 处理 SHOW FULL COLUMNS 的一行
func (d mysqlDialect) ConvertColumnDescription(row Row) (Column, error) {
	ct, err := d.ConvertColumn(str(row["Type"]))
	if err != nil {
		return Column{}, err
	}
	res := Column{
		Name:          str(row["Field"]),
		Null:          str(row["Null"]) == "YES",
		Default:       strPtr(row["Default"]),
		PrimaryKey:    str(row["Key"]) == "PRI",
		AutoIncrement: strings.Contains(strings.ToLower(str(row["Extra"])), "auto_increment"),
		Comment:       str(row["Comment"]),
	}
	res.setType(ct)
	return res, nil
}

func mysqlQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
