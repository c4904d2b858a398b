// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package inventory

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindRef
	KindList
	KindStruct
)

// Value is a property value as reported by the remote endpoint: a scalar,
// an object reference, a list or a nested data object. Fields are exported
// so values can be deep copied.
type Value struct {
	Kind     ValueKind
	Str      string
	Int      int64
	Float    float64
	Bool     bool
	Ref      ObjectRef
	List     []Value
	Fields   map[string]Value
	TypeName string
}

func Null() Value { return Value{} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func RefValue(ref ObjectRef) Value { return Value{Kind: KindRef, Ref: ref} }
func ListValue(items ...Value) Value { return Value{Kind: KindList, List: items} }

// StructValue builds a data object value. typeName is the remote type, e.g.
// "VirtualDisk", and may be empty.
func StructValue(typeName string, fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}

	return Value{Kind: KindStruct, Fields: fields, TypeName: typeName}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) IsList() bool { return v.Kind == KindList }

// AsString returns string-ish scalars as text.
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindInt:
		return strconv.FormatInt(v.Int, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	case KindRef:
		return v.Ref.Value, true
	default:
		return "", false
	}
}

// AsInt coerces numbers and numeric strings to an integer. Floats are
// truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return 0, false
		}

		return int64(v.Float), true
	case KindString:
		s := strings.TrimSpace(v.Str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}

		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f), true
		}

		return 0, false
	default:
		return 0, false
	}
}

// AsFloat coerces numbers and numeric strings to a float.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// AsBool accepts booleans and the strings "true"/"false" in any case. Some
// properties, e.g. the HA settings of a cluster, arrive as strings.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}

	return false, false
}

func (v Value) AsRef() (ObjectRef, bool) {
	if v.Kind != KindRef {
		return ObjectRef{}, false
	}

	return v.Ref, true
}

// AsList returns list items; a null value is an empty list.
func (v Value) AsList() ([]Value, bool) {
	switch v.Kind {
	case KindList:
		return v.List, true
	case KindNull:
		return nil, true
	default:
		return nil, false
	}
}

// Field returns a direct field of a struct value.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindStruct {
		return Value{}, false
	}

	f, ok := v.Fields[name]

	return f, ok
}

// Lookup walks a dotted path through nested struct values.
func (v Value) Lookup(path string) (Value, bool) {
	cur := v

	for _, part := range strings.Split(path, ".") {
		next, ok := cur.Field(part)
		if !ok {
			return Value{}, false
		}

		cur = next
	}

	return cur, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v

	if v.List != nil {
		out.List = make([]Value, len(v.List))
		for i, item := range v.List {
			out.List[i] = item.Clone()
		}
	}

	if v.Fields != nil {
		out.Fields = make(map[string]Value, len(v.Fields))
		for k, f := range v.Fields {
			out.Fields[k] = f.Clone()
		}
	}

	return out
}

// Interface converts the value into plain Go data suitable for JSON
// encoding. References become their value string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindRef:
		return v.Ref.Value
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}

		return out
	case KindStruct:
		out := make(map[string]any, len(v.Fields))
		for k, f := range v.Fields {
			out[k] = f.Interface()
		}

		return out
	default:
		return nil
	}
}
