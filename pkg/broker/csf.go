package broker

import (
	"fmt"
	"strconv"
	"strings"
)

// Setup strings are comma separated. A double quote toggles protection of
// commas and is itself dropped.

// SplitFields splits a setup string into its fields. A trailing separator
// yields a trailing empty field.
func SplitFields(s string) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// Field returns field i of a split setup string, or "" when absent.
func Field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// CompareFields returns a bit set with bit i set when field i differs.
func CompareFields(a, b string) uint64 {
	fa, fb := SplitFields(a), SplitFields(b)
	var diff uint64
	for i := 0; i < max(len(fa), len(fb)) && i < 64; i++ {
		if Field(fa, i) != Field(fb, i) {
			diff |= 1 << uint(i)
		}
	}
	return diff
}

var escapes = []struct {
	code byte
	ch   byte
}{
	{'\'', '\''},
	{'"', '"'},
	{'\a', 'a'},
	{'\b', 'b'},
	{'\f', 'f'},
	{'\n', 'n'},
	{'\r', 'r'},
	{'\t', 't'},
	{'\v', 'v'},
	{'\\', '\\'},
}

// Escape applies backslash escapes. The delimiter, when non-zero, and other
// control characters are written as \xHH.
func Escape(s string, delim byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if delim != 0 && c == delim {
			fmt.Fprintf(&b, `\x%02X`, c)
			continue
		}
		if e, ok := escapeOf(c); ok {
			b.WriteByte('\\')
			b.WriteByte(e)
			continue
		}
		if c < ' ' {
			fmt.Fprintf(&b, `\x%02X`, c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape reverses Escape. Unknown escapes yield the escaped character.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		c = s[i]
		if code, ok := codeOf(c); ok {
			b.WriteByte(code)
			continue
		}
		if (c == 'x' || c == 'X') && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quoteField protects commas in free text fields.
func quoteField(s string) string {
	if strings.ContainsRune(s, ',') {
		return `"` + s + `"`
	}
	return s
}

func escapeOf(c byte) (byte, bool) {
	for _, e := range escapes {
		if e.code == c {
			return e.ch, true
		}
	}
	return 0, false
}

func codeOf(c byte) (byte, bool) {
	for _, e := range escapes {
		if e.ch == c {
			return e.code, true
		}
	}
	return 0, false
}
