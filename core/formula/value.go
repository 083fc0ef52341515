// Package formula provides the pricing formula language.
// Formulas are parsed into an AST and interpreted against an environment.
// Formula text is never compiled or executed as Go code.
package formula

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ValueKind represents the type of a value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindObject // only reachable through member access, never a formula result
)

// String returns string representation
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a formula value with type information
type Value struct {
	kind      ValueKind
	boolVal   bool
	numberVal decimal.Decimal
	stringVal string
	objectVal map[string]Value
}

// Null creates a null value
func Null() Value {
	return Value{kind: KindNull}
}

// Bool creates a boolean value
func Bool(v bool) Value {
	return Value{kind: KindBool, boolVal: v}
}

// Number creates a numeric value
func Number(v decimal.Decimal) Value {
	return Value{kind: KindNumber, numberVal: v}
}

// NumberFromInt creates a numeric value from an integer
func NumberFromInt(v int64) Value {
	return Number(decimal.NewFromInt(v))
}

// NumberFromFloat creates a numeric value from a float
func NumberFromFloat(v float64) Value {
	return Number(decimal.NewFromFloat(v))
}

// String creates a string value
func String(v string) Value {
	return Value{kind: KindString, stringVal: v}
}

// Object creates an object value. The map is owned by the value afterwards.
func Object(fields map[string]Value) Value {
	return Value{kind: KindObject, objectVal: fields}
}

// FromGo converts a Go value to a Value
func FromGo(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return NumberFromInt(int64(val)), nil
	case int32:
		return NumberFromInt(int64(val)), nil
	case int64:
		return NumberFromInt(val), nil
	case float64:
		return NumberFromFloat(val), nil
	case decimal.Decimal:
		return Number(val), nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q", val.String())
		}
		return Number(d), nil
	case string:
		return String(val), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(val))
		for k, e := range val {
			fv, err := FromGo(e)
			if err != nil {
				return Null(), fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = fv
		}
		return Object(fields), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", v)
	}
}

// Kind returns the value kind
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull returns true if value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean value
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("value is %v, not bool", v.kind)
	}
	return v.boolVal, nil
}

// AsNumber returns the numeric value
func (v Value) AsNumber() (decimal.Decimal, error) {
	if v.kind != KindNumber {
		return decimal.Zero, fmt.Errorf("value is %v, not number", v.kind)
	}
	return v.numberVal, nil
}

// AsString returns the string value
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("value is %v, not string", v.kind)
	}
	return v.stringVal, nil
}

// GetAttr gets an attribute by name (objects only)
func (v Value) GetAttr(name string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	val, ok := v.objectVal[name]
	return val, ok
}

// Equals compares values for equality
func (v Value) Equals(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindNumber:
		return v.numberVal.Equal(other.numberVal)
	case KindString:
		return v.stringVal == other.stringVal
	case KindObject:
		if len(v.objectVal) != len(other.objectVal) {
			return false
		}
		for k, val := range v.objectVal {
			otherVal, ok := other.objectVal[k]
			if !ok || !val.Equals(otherVal) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToGo converts the value to a Go interface{}
func (v Value) ToGo() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numberVal
	case KindString:
		return v.stringVal
	case KindObject:
		result := make(map[string]interface{}, len(v.objectVal))
		for k, e := range v.objectVal {
			result[k] = e.ToGo()
		}
		return result
	default:
		return nil
	}
}

// String returns a string representation
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return v.numberVal.String()
	case KindString:
		return strconv.Quote(v.stringVal)
	case KindObject:
		keys := make([]string, 0, len(v.objectVal))
		for k := range v.objectVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.objectVal[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "(invalid)"
	}
}

// Env binds identifiers to values for one evaluation
type Env map[string]Value

// EnvFromGo converts plain Go values into an environment
func EnvFromGo(vars map[string]interface{}) (Env, error) {
	env := make(Env, len(vars))
	for name, raw := range vars {
		v, err := FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}
