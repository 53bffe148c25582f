package broker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

// VariableFlags are the broker side attributes of a variable.
type VariableFlags uint32

const (
	FlagReadonly VariableFlags = 1 << iota
	FlagArchive
	FlagShare
	FlagLink
	FlagFunction
	FlagParameter
	FlagHidden
	FlagExport
	FlagWriteable
)

const variableFlagLetters = "RASLFPHEW"

func (f VariableFlags) Has(m VariableFlags) bool { return f&m != 0 }

// String returns the letters of the set flags.
func (f VariableFlags) String() string {
	return flagLetters(uint32(f), variableFlagLetters)
}

// ParseVariableFlags reads a letter string. Unknown letters are ignored.
func ParseVariableFlags(s string) VariableFlags {
	return VariableFlags(parseLetters(s, variableFlagLetters))
}

// ResultFlags are the broker side attributes of a result.
type ResultFlags uint32

const (
	ResultRecycle ResultFlags = 1 << iota
	ResultArchive
	ResultShare
	ResultHidden
)

const resultFlagLetters = "RASH"

func (f ResultFlags) Has(m ResultFlags) bool { return f&m != 0 }

func (f ResultFlags) String() string {
	return flagLetters(uint32(f), resultFlagLetters)
}

func ParseResultFlags(s string) ResultFlags {
	return ResultFlags(parseLetters(s, resultFlagLetters))
}

func flagLetters(f uint32, letters string) string {
	var b strings.Builder
	for i := 0; i < len(letters); i++ {
		if f&(1<<uint(i)) != 0 {
			b.WriteByte(letters[i])
		}
	}
	return b.String()
}

func parseLetters(s, letters string) uint32 {
	var f uint32
	for i := 0; i < len(s); i++ {
		if k := strings.IndexByte(letters, s[i]); k >= 0 {
			f |= 1 << uint(k)
		}
	}
	return f
}

// Variable setup string fields.
const (
	vfID = iota
	vfName
	vfUnit
	vfFlags
	vfDescription
	vfType
	vfConversion
	vfRound
	vfDefault
	vfMinimum
	vfMaximum
	vfFirstState
)

// ErrZeroID is returned for setup strings without a usable id.
var ErrZeroID = errors.New("broker: zero id")

// Definition is the decoded form of a variable setup string.
type Definition struct {
	ID          uint32
	Name        string
	Unit        string
	Flags       VariableFlags
	Description string
	Type        rsa.ValueType
	Conversion  string
	Round       rsa.Value
	Default     rsa.Value
	Minimum     rsa.Value
	Maximum     rsa.Value
	States      []rsa.State
}

// String formats d as a setup string.
func (d *Definition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "0x%X,", d.ID)
	for _, f := range []string{
		d.Name,
		d.Unit,
		d.Flags.String(),
		quoteField(Escape(d.Description, '"')),
		d.Type.String(),
		d.Conversion,
		valueField(d.Round),
		valueField(d.Default),
		valueField(d.Minimum),
		valueField(d.Maximum),
	} {
		b.WriteString(f)
		b.WriteByte(',')
	}
	for _, st := range d.States {
		b.WriteString(st.Name)
		b.WriteByte('=')
		b.WriteString(valueField(st.Value))
		b.WriteByte(',')
	}
	return b.String()
}

// ParseDefinition decodes a variable setup string.
func ParseDefinition(s string) (Definition, error) {
	f := SplitFields(s)
	id, err := parseID(Field(f, vfID))
	if err != nil {
		return Definition{}, fmt.Errorf("broker: variable setup %q: %w", s, err)
	}
	d := Definition{
		ID:          id,
		Name:        Field(f, vfName),
		Unit:        Field(f, vfUnit),
		Flags:       ParseVariableFlags(Field(f, vfFlags)),
		Description: Unescape(Field(f, vfDescription)),
		Type:        rsa.ParseValueType(Field(f, vfType)),
		Conversion:  Field(f, vfConversion),
	}
	if d.Name == "" {
		return Definition{}, fmt.Errorf("broker: variable setup %q: missing name", s)
	}
	switch d.Type {
	case rsa.Integer, rsa.Float, rsa.String:
	default:
		return Definition{}, fmt.Errorf("broker: variable setup %q: unsupported type %q", s, Field(f, vfType))
	}
	for _, v := range []struct {
		dst   *rsa.Value
		field int
	}{
		{&d.Round, vfRound},
		{&d.Default, vfDefault},
		{&d.Minimum, vfMinimum},
		{&d.Maximum, vfMaximum},
	} {
		if *v.dst, err = parseField(d.Type, Field(f, v.field)); err != nil {
			return Definition{}, fmt.Errorf("broker: variable setup %q: %w", s, err)
		}
	}
	for i := vfFirstState; i < len(f); i++ {
		if f[i] == "" {
			continue
		}
		k := strings.LastIndexByte(f[i], '=')
		if k < 0 {
			return Definition{}, fmt.Errorf("broker: variable setup %q: state %q lacks a value", s, f[i])
		}
		v, err := parseField(d.Type, f[i][k+1:])
		if err != nil {
			return Definition{}, fmt.Errorf("broker: variable setup %q: state %q: %w", s, f[i], err)
		}
		d.States = append(d.States, rsa.State{Name: f[i][:k], Value: v})
	}
	return d, nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad id %q: %w", s, err)
	}
	if id == 0 {
		return 0, ErrZeroID
	}
	return uint32(id), nil
}

// valueField renders v, leaving invalid values empty.
func valueField(v rsa.Value) string {
	if !v.IsValid() {
		return ""
	}
	return v.String()
}

// parseField reads an optional numeric field; empty text is Undef.
func parseField(t rsa.ValueType, s string) (rsa.Value, error) {
	if s == "" && t != rsa.String {
		return rsa.UndefValue(), nil
	}
	return rsa.ParseValue(t, s)
}

// ResultType is the sample type of a result.
type ResultType int

const (
	ResultInvalid ResultType = iota
	ResultInt8
	ResultInt16
	ResultInt32
	ResultInt64
)

var resultTypeNames = [...]string{"INVALID", "INT8", "INT16", "INT32", "INT64"}

func (t ResultType) String() string {
	if t < ResultInvalid || int(t) >= len(resultTypeNames) {
		return resultTypeNames[ResultInvalid]
	}
	return resultTypeNames[t]
}

// Size returns the bytes per sample.
func (t ResultType) Size() int {
	switch t {
	case ResultInt8:
		return 1
	case ResultInt16:
		return 2
	case ResultInt32:
		return 4
	case ResultInt64:
		return 8
	}
	return 0
}

// ResultTypeForSize maps a word size onto a result type.
func ResultTypeForSize(n int) ResultType {
	switch n {
	case 1:
		return ResultInt8
	case 2:
		return ResultInt16
	case 4:
		return ResultInt32
	case 8:
		return ResultInt64
	}
	return ResultInvalid
}

func parseResultType(s string) ResultType {
	for i, name := range resultTypeNames {
		if strings.EqualFold(s, name) {
			return ResultType(i)
		}
	}
	return ResultInvalid
}

// Result setup string fields.
const (
	rfID = iota
	rfName
	rfFlags
	rfDescription
	rfType
	rfBlockSize
	rfSegmentSize
	rfBits
	rfOffset
)

// ResultFlagsField is the CompareFields bit of the flags field.
const ResultFlagsField = 1 << rfFlags

// ResultDefinition is the decoded form of a result setup string.
type ResultDefinition struct {
	ID          uint32
	Name        string
	Flags       ResultFlags
	Description string
	Type        ResultType
	BlockSize   int // samples per block
	SegmentSize int // blocks kept
	Bits        int
	Offset      int64
}

func (d *ResultDefinition) String() string {
	return fmt.Sprintf("0x%X,%s,%s,%s,%s,%d,%d,%d,%d",
		d.ID, d.Name, d.Flags, quoteField(Escape(d.Description, '"')),
		d.Type, d.BlockSize, d.SegmentSize, d.Bits, d.Offset)
}

// ParseResultDefinition decodes a result setup string. A block size below
// one becomes one and bits outside the type's width become the full width.
func ParseResultDefinition(s string) (ResultDefinition, error) {
	f := SplitFields(s)
	id, err := parseID(Field(f, rfID))
	if err != nil {
		return ResultDefinition{}, fmt.Errorf("broker: result setup %q: %w", s, err)
	}
	d := ResultDefinition{
		ID:          id,
		Name:        Field(f, rfName),
		Flags:       ParseResultFlags(Field(f, rfFlags)),
		Description: Unescape(Field(f, rfDescription)),
		Type:        parseResultType(Field(f, rfType)),
	}
	if d.Name == "" {
		return ResultDefinition{}, fmt.Errorf("broker: result setup %q: missing name", s)
	}
	if d.Type == ResultInvalid {
		return ResultDefinition{}, fmt.Errorf("broker: result setup %q: unsupported type %q", s, Field(f, rfType))
	}
	ints := []struct {
		dst   *int64
		field int
	}{
		{new(int64), rfBlockSize},
		{new(int64), rfSegmentSize},
		{new(int64), rfBits},
		{&d.Offset, rfOffset},
	}
	for _, n := range ints {
		if *n.dst, err = strconv.ParseInt(strings.TrimSpace(Field(f, n.field)), 0, 64); err != nil {
			return ResultDefinition{}, fmt.Errorf("broker: result setup %q: field %d: %w", s, n.field, err)
		}
	}
	d.BlockSize = int(max(*ints[0].dst, 1))
	d.SegmentSize = int(*ints[1].dst)
	d.Bits = int(*ints[2].dst)
	if d.SegmentSize <= 0 {
		return ResultDefinition{}, fmt.Errorf("broker: result setup %q: zero segment size", s)
	}
	if maxBits := d.Type.Size() * 8; d.Bits <= 0 || d.Bits > maxBits {
		d.Bits = maxBits
	}
	return d, nil
}
