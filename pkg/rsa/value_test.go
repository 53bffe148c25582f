package rsa

import "testing"

func TestValueConversions(t *testing.T) {
	tests := []struct {
		name      string
		v         Value
		wantInt   int64
		wantFloat float64
		wantStr   string
	}{
		{"integer", IntValue(42), 42, 42, "42"},
		{"float rounds", FloatValue(2.5), 3, 2.5, "2.5"},
		{"negative float", FloatValue(-1.4), -1, -1.4, "-1.4"},
		{"numeric string", StringValue(" 17 "), 17, 17, " 17 "},
		{"hex string", StringValue("0x10"), 16, 16, "0x10"},
		{"float string", StringValue("3.75"), 4, 3.75, "3.75"},
		{"text", StringValue("loud"), 0, 0, "loud"},
		{"bool", BoolValue(true), 1, 1, "1"},
		{"undef", UndefValue(), 0, 0, ""},
		{"invalid", Value{}, 0, 0, "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Int(); got != tt.wantInt {
				t.Errorf("Int() = %d, want %d", got, tt.wantInt)
			}
			if got := tt.v.Float(); got != tt.wantFloat {
				t.Errorf("Float() = %g, want %g", got, tt.wantFloat)
			}
			if got := tt.v.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestValueConvert(t *testing.T) {
	if v := StringValue("12.5").Convert(Float); v.Type() != Float || v.Float() != 12.5 {
		t.Errorf("string to float = %v (%s)", v, v.Type())
	}
	if v := FloatValue(12.5).Convert(Integer); v.Type() != Integer || v.Int() != 13 {
		t.Errorf("float to integer = %v (%s)", v, v.Type())
	}
	if v := IntValue(7).Convert(String); v.Type() != String || v.String() != "7" {
		t.Errorf("integer to string = %v (%s)", v, v.Type())
	}
	if v := IntValue(7).Convert(Undef); !v.Equal(IntValue(7)) {
		t.Errorf("conversion to undef changed the value: %v", v)
	}
	if (Value{}).IsValid() {
		t.Error("zero value is valid")
	}
}

func TestValueEqualAndCompare(t *testing.T) {
	if IntValue(1).Equal(FloatValue(1)) {
		t.Error("values of different types are equal")
	}
	if !StringValue("a").Equal(StringValue("a")) {
		t.Error("equal strings differ")
	}

	tests := []struct {
		a, b Value
		want int
	}{
		{IntValue(1), IntValue(2), -1},
		{IntValue(2), IntValue(2), 0},
		{FloatValue(2.5), IntValue(2), 1},
		{IntValue(3), FloatValue(3), 0},
		{StringValue("a"), StringValue("b"), -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValueClip(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		lo, hi Value
		want   Value
	}{
		{"inside", FloatValue(35), FloatValue(-20), FloatValue(80), FloatValue(35)},
		{"above", FloatValue(100), FloatValue(-20), FloatValue(80), FloatValue(80)},
		{"below", FloatValue(-30), FloatValue(-20), FloatValue(80), FloatValue(-20)},
		{"keeps type", IntValue(100), FloatValue(-20), FloatValue(80), IntValue(80)},
		{"inverted bounds", IntValue(5), IntValue(10), IntValue(1), IntValue(5)},
		{"no bounds", IntValue(5), Value{}, Value{}, IntValue(5)},
		{"string untouched", StringValue("x"), IntValue(0), IntValue(1), StringValue("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Clip(tt.lo, tt.hi); !got.Equal(tt.want) {
				t.Errorf("Clip = %v (%s), want %v (%s)", got, got.Type(), tt.want, tt.want.Type())
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ     ValueType
		in      string
		want    Value
		wantErr bool
	}{
		{Integer, "12", IntValue(12), false},
		{Integer, "0x1F", IntValue(31), false},
		{Integer, "2.6", IntValue(3), false},
		{Integer, "many", Value{}, true},
		{Float, " 0.1 ", FloatValue(0.1), false},
		{Float, "x", Value{}, true},
		{String, "a,b", StringValue("a,b"), false},
		{Undef, "", UndefValue(), false},
		{Invalid, "1", Value{}, true},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.typ, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseValue(%s, %q) error = %v, wantErr %v", tt.typ, tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("ParseValue(%s, %q) = %v, want %v", tt.typ, tt.in, got, tt.want)
		}
	}
}

func TestValueTypeNames(t *testing.T) {
	for _, typ := range []ValueType{Undef, Integer, Float, String} {
		if got := ParseValueType(typ.String()); got != typ {
			t.Errorf("ParseValueType(%q) = %s", typ.String(), got)
		}
	}
	if got := ParseValueType("float"); got != Float {
		t.Errorf("ParseValueType is case sensitive: %s", got)
	}
	if got := ParseValueType("DOUBLE"); got != Invalid {
		t.Errorf("ParseValueType(DOUBLE) = %s", got)
	}
}
