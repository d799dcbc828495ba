package querylog

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// LoggedQuery 是一次执行过的查询，只用于日志
type LoggedQuery struct {
	ID uuid.UUID
	// Type SELECT, INSERT, UPDATE, DELETE 或者 RAW
	Type    string
	Query   string
	Params  []any
	Took    time.Duration
	NumRows int64
	Err     error
}

// String 把参数填回 SQL 里面，只用来展示，不能用来执行
func (q LoggedQuery) String() string {
	if len(q.Params) == 0 {
		return q.Query
	}
	var sb strings.Builder
	sb.Grow(len(q.Query) + 16*len(q.Params))
	next := 0
	var quote byte
	for i := 0; i < len(q.Query); i++ {
		ch := q.Query[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			sb.WriteByte(ch)
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			sb.WriteByte(ch)
		case ch == '?' && next < len(q.Params):
			sb.WriteString(formatParam(q.Params[next]))
			next++
		case ch == '$' && i+1 < len(q.Query) && isDigit(q.Query[i+1]):
			// Postgres 的 $n
			j := i + 1
			for j < len(q.Query) && isDigit(q.Query[j]) {
				j++
			}
			n, _ := strconv.Atoi(q.Query[i+1 : j])
			if n < 1 || n > len(q.Params) {
				sb.WriteString(q.Query[i:j])
			} else {
				sb.WriteString(formatParam(q.Params[n-1]))
			}
			i = j - 1
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// LogValue 让 slog 按分组输出
func (q LoggedQuery) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", q.ID.String()),
		slog.String("type", q.Type),
		slog.String("query", q.String()),
		slog.Duration("took", q.Took),
		slog.Int64("rows", q.NumRows),
	}
	if q.Err != nil {
		attrs = append(attrs, slog.String("error", q.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func formatParam(p any) string {
	if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "NULL"
	}
	switch val := p.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quote(val)
	case []byte:
		if utf8.Valid(val) {
			return quote(string(val))
		}
		return "X'" + hex.EncodeToString(val) + "'"
	case time.Time:
		return quote(val.Format("2006-01-02 15:04:05"))
	case driver.Valuer:
		v, err := val.Value()
		if err != nil {
			return "?"
		}
		return formatParam(v)
	case fmt.Stringer:
		return quote(val.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val)
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
