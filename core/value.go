package core

import (
	"fmt"
	"strconv"
	"time"
)

type Type int

const (
	NullType Type = iota
	IntegerType
	FloatType
	TextType
	BlobType
	BoolType
	TimestampType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "NULL"
	case IntegerType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case TextType:
		return "TEXT"
	case BlobType:
		return "BLOB"
	case BoolType:
		return "BOOL"
	case TimestampType:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged variant holding one column value. Only the field
// matching Type is meaningful.
type Value struct {
	Type  Type
	Int   int64
	Float float64
	Text  string
	Blob  []byte
	Bool  bool
	Time  time.Time
}

func Null() Value {
	return Value{Type: NullType}
}

func Integer(i int64) Value {
	return Value{Type: IntegerType, Int: i}
}

func Float(f float64) Value {
	return Value{Type: FloatType, Float: f}
}

func Text(s string) Value {
	return Value{Type: TextType, Text: s}
}

func Blob(b []byte) Value {
	return Value{Type: BlobType, Blob: b}
}

func Boolean(b bool) Value {
	return Value{Type: BoolType, Bool: b}
}

func Timestamp(t time.Time) Value {
	return Value{Type: TimestampType, Time: t}
}

func (v Value) IsNull() bool {
	return v.Type == NullType
}

// Native returns the representation passed to the driver when the value
// is bound as a statement parameter.
func (v Value) Native() any {
	switch v.Type {
	case NullType:
		return nil
	case IntegerType:
		return v.Int
	case FloatType:
		return v.Float
	case TextType:
		return v.Text
	case BlobType:
		return v.Blob
	case BoolType:
		return v.Bool
	case TimestampType:
		return v.Time
	default:
		return nil
	}
}

// FromNative converts a value scanned from database/sql into a Value.
func FromNative(src any) (Value, error) {
	switch s := src.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(s), nil
	case int:
		return Integer(int64(s)), nil
	case int32:
		return Integer(int64(s)), nil
	case uint64:
		return Integer(int64(s)), nil
	case float64:
		return Float(s), nil
	case float32:
		return Float(float64(s)), nil
	case string:
		return Text(s), nil
	case []byte:
		// Copy: drivers reuse the scan buffer between rows.
		b := make([]byte, len(s))
		copy(b, s)
		return Blob(b), nil
	case bool:
		return Boolean(s), nil
	case time.Time:
		return Timestamp(s), nil
	default:
		return Value{}, fmt.Errorf("unsupported column value type %T", src)
	}
}

func (v Value) String() string {
	switch v.Type {
	case NullType:
		return "NULL"
	case IntegerType:
		return strconv.FormatInt(v.Int, 10)
	case FloatType:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TextType:
		return v.Text
	case BlobType:
		return string(v.Blob)
	case BoolType:
		return strconv.FormatBool(v.Bool)
	case TimestampType:
		return v.Time.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Row is an ordered sequence of column values.
type Row []Value

// Strings renders every value for tabular display.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}
