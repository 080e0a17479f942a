package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags the underlying representation of a Value so callers can
// dispatch without runtime type assertions on interface{}.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBytes
)

// Value is a tagged variant for raw SNMP varbind values. gosnmp (and traps)
// hand back numbers, strings or byte blobs; wrapping them here keeps the
// metric parser free of gosnmp's wire types and free of type-switches on
// interface{} beyond the single point where a Value is constructed.
type Value struct {
	Kind ValueKind
	I    int64
	F    float64
	S    string
	B    []byte
}

func NilValue() Value                { return Value{Kind: KindNil} }
func IntValue(v int64) Value         { return Value{Kind: KindInt, I: v} }
func FloatValue(v float64) Value     { return Value{Kind: KindFloat, F: v} }
func StringValue(v string) Value     { return Value{Kind: KindString, S: v} }
func BytesValue(v []byte) Value      { return Value{Kind: KindBytes, B: v} }

// IsNumeric reports whether the value can be interpreted as a number.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// Float64 returns the numeric interpretation of the value, if any.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I), true
	case KindFloat:
		return v.F, true
	case KindString:
		f, err := strconv.ParseFloat(v.S, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String returns the display form of the value, decoding byte blobs as
// UTF-8 text.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return ""
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'f', -1, 64)
	case KindString:
		return v.S
	case KindBytes:
		return string(v.B)
	default:
		return ""
	}
}

// MarshalJSON renders the value as its natural JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNil:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.I)
	case KindFloat:
		return json.Marshal(v.F)
	case KindString:
		return json.Marshal(v.S)
	case KindBytes:
		return json.Marshal(string(v.B))
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.Kind)
	}
}

// UnmarshalJSON accepts any JSON scalar and tags it accordingly.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = NilValue()
	case float64:
		*v = FloatValue(t)
	case string:
		*v = StringValue(t)
	default:
		return fmt.Errorf("value: unsupported JSON scalar %T", raw)
	}

	return nil
}
