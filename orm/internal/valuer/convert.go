package valuer

import (
	"database/sql"
	"reflect"
	"strconv"
	"time"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// 驱动返回的时间字符串，SQLite 常见
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// assign 把驱动返回的值 src 写入 dst，dst 必须可以 Set
func assign(col string, dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}

	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(col, elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		if b, ok := src.([]byte); ok {
			// 驱动会复用 []byte 的底层数组
			src = append([]byte(nil), b...)
			sv = reflect.ValueOf(src)
		}
		dst.Set(sv)
		return nil
	}

	switch s := src.(type) {
	case []byte:
		return assignString(col, dst, string(s), src)
	case string:
		return assignString(col, dst, s, src)
	case time.Time:
		if dst.Kind() == reflect.String {
			dst.SetString(s.Format(time.RFC3339Nano))
			return nil
		}
	case bool:
		if isInt(dst.Kind()) {
			if s {
				dst.SetInt(1)
			} else {
				dst.SetInt(0)
			}
			return nil
		}
	}

	switch {
	case dst.Kind() == reflect.Bool && isInt(sv.Kind()):
		// SQLite 没有布尔类型
		dst.SetBool(sv.Int() != 0)
		return nil
	case isNumber(dst.Kind()) && isNumber(sv.Kind()):
		dst.Set(sv.Convert(dst.Type()))
		return nil
	case dst.Kind() == reflect.String && isNumber(sv.Kind()):
		dst.SetString(strconv.FormatFloat(toFloat(sv), 'f', -1, 64))
		return nil
	}
	return errs.NewErrUnsupportedConversion(col, src, dst.Type().String())
}

func assignString(col string, dst reflect.Value, s string, src any) error {
	switch {
	case dst.Kind() == reflect.String:
		dst.SetString(s)
		return nil
	case dst.Type() == bytesType:
		dst.SetBytes([]byte(s))
		return nil
	case dst.Type() == timeType:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
	case dst.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		dst.SetBool(b)
		return nil
	case isInt(dst.Kind()):
		i, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(i)
		return nil
	case isUint(dst.Kind()):
		u, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetUint(u)
		return nil
	case dst.Kind() == reflect.Float32 || dst.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetFloat(f)
		return nil
	}
	return errs.NewErrUnsupportedConversion(col, src, dst.Type().String())
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}
