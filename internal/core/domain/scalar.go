package domain

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ScalarKind is the closed set of leaf value kinds that can be rendered as text.
type ScalarKind string

// Scalar kinds.
const (
	KindNull     ScalarKind = "null"
	KindString   ScalarKind = "string"
	KindBool     ScalarKind = "bool"
	KindInt      ScalarKind = "int"
	KindFloat    ScalarKind = "float"
	KindDecimal  ScalarKind = "decimal"
	KindTime     ScalarKind = "time"
	KindObjectID ScalarKind = "object_id"
	KindBinary   ScalarKind = "binary"
	KindUnknown  ScalarKind = "unknown"
)

// KindOf classifies a leaf value.
// Objects, arrays and foreign types report KindUnknown.
func KindOf(v any) ScalarKind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case Decimal:
		return KindDecimal
	case time.Time:
		return KindTime
	case ObjectID:
		return KindObjectID
	case []byte:
		return KindBinary
	default:
		return KindUnknown
	}
}

// Stringify renders a scalar leaf as its canonical text.
//
// Null renders as "", floats use the shortest round-trippable form,
// times are RFC 3339 in UTC with nanoseconds, and binary is standard base64.
// Any other value returns ErrUnstringifiableValue.
func Stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32), nil
	case float64:
		return formatFloat(x, 64), nil
	case Decimal:
		return string(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case ObjectID:
		return string(x), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnstringifiableValue, v)
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
