package rsa

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType tags the scalar held by a Value.
type ValueType int

const (
	Invalid ValueType = iota
	Undef
	Integer
	Float
	String
)

var valueTypeNames = [...]string{"INVALID", "UNDEF", "INTEGER", "FLOAT", "STRING"}

func (t ValueType) String() string {
	if t < Invalid || int(t) >= len(valueTypeNames) {
		return valueTypeNames[Invalid]
	}
	return valueTypeNames[t]
}

// ParseValueType maps a broker type name back onto a ValueType.
func ParseValueType(s string) ValueType {
	for i, name := range valueTypeNames {
		if strings.EqualFold(s, name) {
			return ValueType(i)
		}
	}
	return Invalid
}

// Value is the typed scalar exchanged through handleParam. The zero Value is
// Invalid.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	s   string
}

func IntValue(i int64) Value     { return Value{typ: Integer, i: i} }
func FloatValue(f float64) Value { return Value{typ: Float, f: f} }
func StringValue(s string) Value { return Value{typ: String, s: s} }
func UndefValue() Value          { return Value{typ: Undef} }

// BoolValue stores b as 0 or 1.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsValid() bool   { return v.typ != Invalid }

// IsNumeric reports whether v holds an integer or a float.
func (v Value) IsNumeric() bool { return v.typ == Integer || v.typ == Float }

// Int returns v as an integer. Floats are rounded, strings are parsed and
// yield 0 when they are not numbers.
func (v Value) Int() int64 {
	switch v.typ {
	case Integer:
		return v.i
	case Float:
		return int64(math.Round(v.f))
	case String:
		s := strings.TrimSpace(v.s)
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Round(f))
		}
	}
	return 0
}

// Float returns v as a float, parsing strings.
func (v Value) Float() float64 {
	switch v.typ {
	case Integer:
		return float64(v.i)
	case Float:
		return v.f
	case String:
		s := strings.TrimSpace(v.s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return float64(n)
		}
	}
	return 0
}

// Bool is Int() != 0.
func (v Value) Bool() bool { return v.Int() != 0 }

// String returns the canonical text form used in setup strings and profiles.
func (v Value) String() string {
	switch v.typ {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	case Undef:
		return ""
	}
	return "n/a"
}

// Convert returns v re-expressed as type t. Converting to Invalid or Undef
// returns v unchanged.
func (v Value) Convert(t ValueType) Value {
	if v.typ == t {
		return v
	}
	switch t {
	case Integer:
		return IntValue(v.Int())
	case Float:
		return FloatValue(v.Float())
	case String:
		return StringValue(v.String())
	}
	return v
}

// Equal compares type and content.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Integer:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case String:
		return v.s == o.s
	}
	return true
}

// Compare orders numeric values. Non-numeric values compare by text.
func (v Value) Compare(o Value) int {
	if v.IsNumeric() && o.IsNumeric() {
		if v.typ == Integer && o.typ == Integer {
			switch {
			case v.i < o.i:
				return -1
			case v.i > o.i:
				return 1
			}
			return 0
		}
		a, b := v.Float(), o.Float()
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return strings.Compare(v.String(), o.String())
}

// Clip limits v to [lo, hi] when both bounds are numeric.
func (v Value) Clip(lo, hi Value) Value {
	if !v.IsNumeric() || !lo.IsNumeric() || !hi.IsNumeric() {
		return v
	}
	if lo.Compare(hi) > 0 {
		return v
	}
	if v.Compare(lo) < 0 {
		return lo.Convert(v.typ)
	}
	if v.Compare(hi) > 0 {
		return hi.Convert(v.typ)
	}
	return v
}

// ParseValue reads text as type t.
func ParseValue(t ValueType, s string) (Value, error) {
	switch t {
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if ferr != nil {
				return Value{}, fmt.Errorf("rsa: invalid integer %q: %w", s, err)
			}
			n = int64(math.Round(f))
		}
		return IntValue(n), nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, fmt.Errorf("rsa: invalid float %q: %w", s, err)
		}
		return FloatValue(f), nil
	case String:
		return StringValue(s), nil
	case Undef:
		return UndefValue(), nil
	}
	return Value{}, fmt.Errorf("rsa: cannot parse %q as %s", s, t)
}
