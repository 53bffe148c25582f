// Package profile stores flat section/key settings for acquisition
// implementations. Memory keeps them in process, File in an INI file and Bolt
// in a boltdb database.
package profile

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

type section struct {
	name   string
	keys   []string
	values map[string]string
}

// Memory is an in-process profile. Sections and keys keep the order in which
// they were first written.
type Memory struct {
	mu       sync.RWMutex
	sections []*section
}

var _ rsa.Profile = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

// section returns the named section, creating it when create is set.
func (m *Memory) section(name string, create bool) *section {
	for _, s := range m.sections {
		if s.name == name {
			return s
		}
	}
	if !create {
		return nil
	}
	s := &section{name: name, values: make(map[string]string)}
	m.sections = append(m.sections, s)
	return s
}

func (m *Memory) set(sec, key, value string) {
	s := m.section(sec, true)
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// String returns the stored value or def when the key is absent.
func (m *Memory) String(sec, key, def string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.section(sec, false); s != nil {
		if v, ok := s.values[key]; ok {
			return v, nil
		}
	}
	return def, nil
}

func (m *Memory) SetString(sec, key, value string) error {
	if key == "" {
		return fmt.Errorf("profile: empty key in section %q", sec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(sec, key, value)
	return nil
}

// Flush is a no-op for Memory.
func (m *Memory) Flush() error { return nil }

// Sections lists the section names in order.
func (m *Memory) Sections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sections))
	for _, s := range m.sections {
		names = append(names, s.name)
	}
	return names
}

// Keys lists the keys of a section in order.
func (m *Memory) Keys(sec string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.section(sec, false)
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// WriteTo writes the profile in INI form.
func (m *Memory) WriteTo(w io.Writer) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cw := &countWriter{w: bufio.NewWriter(w)}
	for i, s := range m.sections {
		if s.name != "" {
			if i > 0 {
				fmt.Fprintln(cw)
			}
			fmt.Fprintf(cw, "[%s]\n", s.name)
		}
		for _, k := range s.keys {
			fmt.Fprintf(cw, "%s=%s\n", k, s.values[k])
		}
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// CopyTo writes every pair of m into dst.
func (m *Memory) CopyTo(dst rsa.Profile) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sections {
		for _, k := range s.keys {
			if err := dst.SetString(s.name, k, s.values[k]); err != nil {
				return err
			}
		}
	}
	return dst.Flush()
}

type countWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
