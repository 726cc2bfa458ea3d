// Package value provides the property value type carried by analytics events.
//
// A Value is a tagged variant: exactly one of null, string, number, bool,
// array or map. Validator recursion switches on Kind, so every shape a
// property can take is handled explicitly.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is the zero Kind. Missing, nil and unsupported values are null.
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable property value.
// The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   float64
	flag  bool
	items []Value
	props Properties
}

// Properties maps property names to values.
type Properties map[string]Value

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Int returns a numeric value from an integer.
func Int(n int64) Value { return Value{kind: KindNumber, num: float64(n)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Array returns an array value holding items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// Map returns a map value holding props.
func Map(props Properties) Value {
	if props == nil {
		props = Properties{}
	}
	return Value{kind: KindMap, props: props}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string and true if v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number and true if v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool and true if v is a bool.
func (v Value) Boolean() (bool, bool) { return v.flag, v.kind == KindBool }

// Items returns the elements of an array value, or nil.
// The returned slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Fields returns the entries of a map value, or nil.
// The returned map must not be modified.
func (v Value) Fields() Properties {
	if v.kind != KindMap {
		return nil
	}
	return v.props
}

// Equal reports whether v and o hold the same variant and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.props.Equal(o.props)
	}
	return false
}

// Any converts v back to a plain Go value (string, float64, bool, []any,
// map[string]any or nil).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		return v.props.ToMap()
	default:
		return nil
	}
}

// FromAny converts a dynamic Go value into a Value.
//
// Accepts strings, bools, all integer and float types, slices of those,
// []any, map[string]any, Properties and Value. Anything else (funcs,
// channels, structs, nil) converts to null.
func FromAny(x any) Value {
	switch val := x.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case Properties:
		return Map(val)
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int8:
		return Int(int64(val))
	case int16:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint:
		return Number(float64(val))
	case uint8:
		return Number(float64(val))
	case uint16:
		return Number(float64(val))
	case uint32:
		return Number(float64(val))
	case uint64:
		return Number(float64(val))
	case float32:
		return Number(float64(val))
	case float64:
		return Number(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return Number(f)
		}
		return String(val.String())
	case []string:
		items := make([]Value, len(val))
		for i, s := range val {
			items[i] = String(s)
		}
		return Array(items...)
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromAny(item)
		}
		return Array(items...)
	case []map[string]any:
		items := make([]Value, len(val))
		for i, m := range val {
			items[i] = Map(FromMap(m))
		}
		return Array(items...)
	case map[string]any:
		return Map(FromMap(val))
	case map[string]string:
		props := make(Properties, len(val))
		for k, s := range val {
			props[k] = String(s)
		}
		return Map(props)
	default:
		return Null()
	}
}

// FromMap converts a map of dynamic values into Properties.
// Entries keep their keys even when the value converts to null; the
// validator decides what to omit.
func FromMap(m map[string]any) Properties {
	props := make(Properties, len(m))
	for k, x := range m {
		props[k] = FromAny(x)
	}
	return props
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	case KindArray:
		items := v.items
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	case KindMap:
		return json.Marshal(v.props)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	*v = FromAny(raw)
	return nil
}
