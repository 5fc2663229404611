// Package eval interprets expressions and conditions from package lang
// against a per-request context, producing dynamically typed values.
package eval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the concrete type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is the dynamically typed value every expression evaluates to
// (spec.md §4.2). ObjKeys holds an object's keys in insertion order beside
// the map. JSON output goes through Interface(), which builds a Go map, so
// encoding/json writes object keys in sorted order, not insertion order.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     float64
	Str     string
	Array   []Value
	Object  map[string]Value
	ObjKeys []string
}

func Null() Value           { return Value{Kind: KindNull} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Array(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }

// Object builds an object Value, preserving the given key order.
func Object(keys []string, vals []Value) Value {
	obj := make(map[string]Value, len(keys))
	for i, k := range keys {
		obj[k] = vals[i]
	}
	return Value{Kind: KindObject, Object: obj, ObjKeys: append([]string(nil), keys...)}
}

// ErrorObject builds the in-band {"error": msg} value used to report SQL
// failures without failing the HTTP transport (spec.md §4.4).
func ErrorObject(msg string) Value {
	return Object([]string{"error"}, []Value{String(msg)})
}

// Truthy implements spec.md §4.2's truthiness rules: null, false, 0, "",
// an empty array, and an empty object are all falsy; everything else is
// truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		return len(v.Array) > 0
	case KindObject:
		return len(v.ObjKeys) > 0
	}
	return false
}

// AsNumber coerces a Value to a float64 for numeric comparisons, following
// spec.md §4.2's coercion rules: numbers pass through, strings parse as
// numbers, booleans are 0/1, everything else fails.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindString:
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Equal implements the "=" / "!=" comparison: numeric coercion is attempted
// first (so 1 = "1" is true), falling back to same-kind structural equality.
func Equal(a, b Value) bool {
	if an, aok := a.AsNumber(); aok {
		if bn, bok := b.AsNumber(); bok {
			return an == bn
		}
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.ObjKeys) != len(b.ObjKeys) {
			return false
		}
		for _, k := range a.ObjKeys {
			bv, ok := b.Object[k]
			if !ok || !Equal(a.Object[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts a Value to the plain Go value the JSON encoder and the
// SQL driver expect.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.ObjKeys))
		for _, k := range v.ObjKeys {
			out[k] = v.Object[k].Interface()
		}
		return out
	}
	return nil
}

// Text renders a Value as the textual form an html(...) response body
// uses (spec.md §4.5): strings pass through verbatim, numbers and booleans
// render in their usual Go textual form, null renders as the empty string,
// and arrays/objects fall back to their JSON encoding.
func (v Value) Text() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindArray, KindObject:
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// FromInterface wraps a decoded-JSON Go value (as produced by
// encoding/json.Unmarshal into any) into a Value.
func FromInterface(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromInterface(e)
		}
		return Array(out)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]Value, len(keys))
		for i, k := range keys {
			vals[i] = FromInterface(t[k])
		}
		return Object(keys, vals)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
