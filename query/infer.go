package query

import (
	"math"
	"regexp"
	"time"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/tds"
)

var guidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Infer maps a runtime value to its TDS type tag. It is a pure function;
// first matching rule wins:
//
//	nil                          VarChar
//	string with non-ASCII runes  NVarChar
//	GUID-shaped string           UniqueIdentifier
//	other string                 VarChar
//	bool                         Bit
//	non-integral float           Float
//	integer in [0, 255]          TinyInt
//	integer in [-32767, 32767]   SmallInt
//	integer in [-2^31+1, 2^31-1] Int
//	larger integer               BigInt
//	[]byte                       VarBinary
//	time.Time                    DateTimeOffset
//
// Any other shape is a ValidationError.
func Infer(value any) (tds.Type, error) {
	switch v := value.(type) {
	case nil:
		return tds.TypeVarChar, nil
	case string:
		if !isASCII(v) {
			return tds.TypeNVarChar, nil
		}
		if guidRe.MatchString(v) {
			return tds.TypeUniqueIdentifier, nil
		}
		return tds.TypeVarChar, nil
	case bool:
		return tds.TypeBit, nil
	case float64:
		return inferFloat(v)
	case float32:
		return inferFloat(float64(v))
	case int:
		return inferInt(int64(v)), nil
	case int8:
		return inferInt(int64(v)), nil
	case int16:
		return inferInt(int64(v)), nil
	case int32:
		return inferInt(int64(v)), nil
	case int64:
		return inferInt(v), nil
	case uint:
		return inferUint(uint64(v)), nil
	case uint8:
		return inferUint(uint64(v)), nil
	case uint16:
		return inferUint(uint64(v)), nil
	case uint32:
		return inferUint(uint64(v)), nil
	case uint64:
		return inferUint(v), nil
	case []byte:
		return tds.TypeVarBinary, nil
	case time.Time:
		return tds.TypeDateTimeOffset, nil
	default:
		return tds.TypeNone, mssqlx.Validationf("query.Infer", "cannot infer a type for value of type %T", value)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func inferFloat(f float64) (tds.Type, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return tds.TypeNone, mssqlx.Validationf("query.Infer", "cannot infer a type for %v", f)
		}
		return tds.TypeFloat, nil
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return tds.TypeFloat, nil
	}
	return inferInt(int64(f)), nil
}

func inferInt(n int64) tds.Type {
	switch {
	case n >= 0 && n <= 255:
		return tds.TypeTinyInt
	case n >= -32767 && n <= 32767:
		return tds.TypeSmallInt
	case n >= -2147483647 && n <= 2147483647:
		return tds.TypeInt
	default:
		return tds.TypeBigInt
	}
}

func inferUint(n uint64) tds.Type {
	if n > math.MaxInt64 {
		return tds.TypeBigInt
	}
	return inferInt(int64(n))
}
