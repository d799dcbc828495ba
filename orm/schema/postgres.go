package schema

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

var (
	postgresColumnType = regexp.MustCompile(`([a-z\s]+)(?:\(([0-9,]+)\))?`)
	// 'draft'::character varying
	postgresCastDefault = regexp.MustCompile(`^'(.*)'::[a-z\s]+$`)
)

const postgresDescribe = `SELECT c.column_name AS name, c.data_type AS type, c.is_nullable AS null, ` +
	`c.column_default AS default, c.character_maximum_length AS char_length, ` +
	`c.numeric_precision AS column_precision, c.numeric_scale AS column_scale, ` +
	`col_description($1::regclass, c.ordinal_position) AS comment, ` +
	`EXISTS (SELECT 1 FROM information_schema.table_constraints tc ` +
	`JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema ` +
	`WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name ` +
	`AND kcu.column_name = c.column_name) AS pk ` +
	`FROM information_schema.columns c WHERE c.table_schema = $2 AND c.table_name = $3 ORDER BY c.ordinal_position`

type postgresDialect struct{}

func (postgresDialect) Name() string {
	return "postgres"
}

func (postgresDialect) ListTablesSQL(cfg Config) (string, []any) {
	return "SELECT table_name AS name FROM information_schema.tables " +
		"WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY name", []any{postgresSchema(cfg)}
}

func (postgresDialect) DescribeColumnSQL(table string, cfg Config) (string, []any) {
	s := postgresSchema(cfg)
	return postgresDescribe, []any{pq.QuoteIdentifier(s) + "." + pq.QuoteIdentifier(table), s, table}
}

func (postgresDialect) ConvertColumn(native string) (ColumnType, error) {
	matches := postgresColumnType.FindStringSubmatch(strings.ToLower(native))
	if matches == nil {
		return ColumnType{}, unknownColumnType(native)
	}
	col := strings.TrimSpace(matches[1])
	if col == "" {
		return ColumnType{}, unknownColumnType(native)
	}
	length, precision := parseLength(matches[2])

	switch {
	case col == "date" || col == "time" || col == "boolean":
		return ColumnType{Type: col}, nil
	case strings.Contains(col, "timestamp"):
		return ColumnType{Type: TypeTimestamp}, nil
	case strings.Contains(col, "time"):
		return ColumnType{Type: TypeTime}, nil
	case col == "serial" || col == "integer":
		return ColumnType{Type: TypeInteger}, nil
	case col == "bigserial" || col == "bigint":
		return ColumnType{Type: TypeBigInteger}, nil
	case col == "smallint":
		return ColumnType{Type: TypeSmallInteger}, nil
	case col == "inet":
		return ColumnType{Type: TypeString, Length: 39}, nil
	case col == "uuid":
		return ColumnType{Type: TypeUUID}, nil
	case col == "char" || strings.Contains(col, "character"):
		return ColumnType{Type: TypeString, Length: length}, nil
	case strings.Contains(col, "text"):
		return ColumnType{Type: TypeText}, nil
	case col == "bytea":
		return ColumnType{Type: TypeBinary}, nil
	case col == "real" || strings.Contains(col, "double"):
		return ColumnType{Type: TypeFloat, Length: length, Precision: precision}, nil
	case col == "numeric" || col == "decimal":
		return ColumnType{Type: TypeDecimal, Length: length, Precision: precision}, nil
	case col == "json" || col == "jsonb":
		return ColumnType{Type: TypeJSON}, nil
	}
	return ColumnType{Type: TypeString, Length: length}, nil
}

func (d postgresDialect) ConvertColumnDescription(row Row) (Column, error) {
	ct, err := d.ConvertColumn(str(row["type"]))
	if err != nil {
		return Column{}, err
	}
	res := Column{
		Name:       str(row["name"]),
		Null:       str(row["null"]) == "YES",
		PrimaryKey: isTrue(row["pk"]),
		Comment:    str(row["comment"]),
	}
	res.setType(ct)
	switch ct.Type {
	case TypeString, TypeText:
		if l := toInt(row["char_length"]); l > 0 {
			res.Length = l
		}
	case TypeDecimal:
		res.Length = toInt(row["column_precision"])
		res.Precision = toInt(row["column_scale"])
	}

	def := strPtr(row["default"])
	switch {
	case def == nil:
	case strings.HasPrefix(*def, "nextval("):
		res.AutoIncrement = true
	case strings.HasPrefix(strings.ToUpper(*def), "NULL::"):
	default:
		if m := postgresCastDefault.FindStringSubmatch(*def); m != nil {
			v := m[1]
			def = &v
		}
		res.Default = def
	}
	return res, nil
}

func postgresSchema(cfg Config) string {
	if cfg.Schema == "" {
		return "public"
	}
	return cfg.Schema
}
