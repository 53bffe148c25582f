package profile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// INILexer tokenizes profile files. A line is either a [section] header or a
// key=value pair; keys run up to the first '=' and may hold spaces and '|',
// values run to the end of the line.
var INILexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments start a line with ';' or '#'
	{Name: "Comment", Pattern: `[;#][^\n]*`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	{Name: "Section", Pattern: `\[[^\]\n]*\]`},

	// '=' and the rest of the line
	{Name: "Value", Pattern: `=[^\n]*`},

	{Name: "Key", Pattern: `[^=\[\s;#][^=\n]*`},
})
