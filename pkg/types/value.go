package types

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Type codes discriminate the closed set of property value kinds.
// Decode accepts the legacy lowercase 'd' as an alias for Double.
const (
	CodeString    = "S"
	CodeInt       = "I"
	CodeLong      = "L"
	CodeDouble    = "D"
	CodeFloat     = "F"
	CodeDate      = "T"
	CodeTimestamp = "t"
)

// Value decode and encode errors.
var (
	ErrUnknownTypeCode      = errors.New("unknown property type code")
	ErrUnsupportedValueType = errors.New("unsupported property value type")
)

// Value is a tagged union over the closed set of property value kinds
// {string, int32, int64, double, float, date, timestamp}. The zero Value
// is a String holding "".
type Value struct {
	code string
	s    string
	i32  int32
	i64  int64
	f64  float64
	f32  float32
	t    time.Time
}

// Constructors, one per kind.

func StringValue(s string) Value       { return Value{code: CodeString, s: s} }
func IntValue(i int32) Value           { return Value{code: CodeInt, i32: i} }
func LongValue(i int64) Value          { return Value{code: CodeLong, i64: i} }
func DoubleValue(f float64) Value      { return Value{code: CodeDouble, f64: f} }
func FloatValue(f float32) Value       { return Value{code: CodeFloat, f32: f} }
func DateValue(t time.Time) Value      { return Value{code: CodeDate, t: t} }
func TimestampValue(t time.Time) Value { return Value{code: CodeTimestamp, t: t} }

// ValueOf converts a runtime value into a Value. Supported input types are
// string, int, int32, int64, float32, float64, and time.Time (stored as a
// timestamp). Anything else fails with ErrUnsupportedValueType.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return StringValue(x), nil
	case int:
		return LongValue(int64(x)), nil
	case int32:
		return IntValue(x), nil
	case int64:
		return LongValue(x), nil
	case float32:
		return FloatValue(x), nil
	case float64:
		return DoubleValue(x), nil
	case time.Time:
		return TimestampValue(x), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValueType, v)
	}
}

// Code returns the type code discriminating this value's kind.
func (v Value) Code() string {
	if v.code == "" {
		return CodeString
	}
	return v.code
}

// Native returns the value as its native Go type.
func (v Value) Native() any {
	switch v.Code() {
	case CodeString:
		return v.s
	case CodeInt:
		return v.i32
	case CodeLong:
		return v.i64
	case CodeDouble:
		return v.f64
	case CodeFloat:
		return v.f32
	case CodeDate, CodeTimestamp:
		return v.t
	}
	return nil
}

// Text returns the value rendered as a string, as stored in the value_text
// column. Times use RFC 3339.
func (v Value) Text() string {
	switch v.Code() {
	case CodeString:
		return v.s
	case CodeInt:
		return strconv.FormatInt(int64(v.i32), 10)
	case CodeLong:
		return strconv.FormatInt(v.i64, 10)
	case CodeDouble:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case CodeFloat:
		return strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case CodeDate, CodeTimestamp:
		return v.t.Format(time.RFC3339Nano)
	}
	return ""
}

// Time returns the time payload for date and timestamp values, and the
// zero time otherwise.
func (v Value) Time() time.Time { return v.t }

// DecodeValue reconstructs a Value from a stored type code and its textual
// representation. An unrecognized code fails with ErrUnknownTypeCode; the
// decode is fatal and must not be retried.
func DecodeValue(code, text string) (Value, error) {
	switch code {
	case CodeString:
		return StringValue(text), nil
	case CodeInt:
		i, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("decoding int property: %w", err)
		}
		return IntValue(int32(i)), nil
	case CodeLong:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding long property: %w", err)
		}
		return LongValue(i), nil
	case CodeDouble, "d":
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding double property: %w", err)
		}
		return DoubleValue(f), nil
	case CodeFloat:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, fmt.Errorf("decoding float property: %w", err)
		}
		return FloatValue(float32(f)), nil
	case CodeDate:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return Value{}, fmt.Errorf("decoding date property: %w", err)
		}
		return DateValue(t), nil
	case CodeTimestamp:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return Value{}, fmt.Errorf("decoding timestamp property: %w", err)
		}
		return TimestampValue(t), nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownTypeCode, code)
	}
}
