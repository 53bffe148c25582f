package profile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// Parser reads profile text into a Memory.
type Parser struct {
	parser *participle.Parser[iniFile]
}

// NewParser creates a profile parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[iniFile](
		participle.Lexer(INILexer),
		participle.Elide("Comment", "Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse reads a profile from r.
func (p *Parser) Parse(r io.Reader) (*Memory, error) {
	ast, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("profile: parse error: %w", err)
	}
	return ast.memory(), nil
}

// ParseString reads a profile from text.
func (p *Parser) ParseString(input string) (*Memory, error) {
	ast, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("profile: parse error: %w", err)
	}
	return ast.memory(), nil
}

// ParseFile reads a profile from a file.
func (p *Parser) ParseFile(filename string) (*Memory, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

func (f *iniFile) memory() *Memory {
	m := NewMemory()
	for _, kv := range f.Globals {
		m.set("", kv.key(), kv.value())
	}
	for _, s := range f.Sections {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s.Header, "["), "]"))
		m.section(name, true)
		for _, kv := range s.Pairs {
			m.set(name, kv.key(), kv.value())
		}
	}
	return m
}

func (kv *iniPair) key() string   { return strings.TrimSpace(kv.Key) }
func (kv *iniPair) value() string { return strings.TrimSpace(strings.TrimPrefix(kv.Value, "=")) }
