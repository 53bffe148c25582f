package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/golang/glog"
)

// File is a Memory backed by an INI file. Changes reach the disk on Flush.
type File struct {
	*Memory
	path string

	mu    sync.Mutex
	dirty bool
}

// OpenFile loads path. A missing file yields an empty profile that is created
// on the first Flush.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	m, err := p.ParseFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.V(1).Infof("profile: %s does not exist yet", path)
		m = NewMemory()
	case err != nil:
		return nil, err
	}
	f.Memory = m
	return f, nil
}

// Path returns the file the profile is stored in.
func (f *File) Path() string { return f.path }

func (f *File) SetString(sec, key, value string) error {
	if err := f.Memory.SetString(sec, key, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
	return nil
}

// Flush writes the profile when it changed. The file is replaced through a
// rename so readers never see a partial write.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}
	var buf bytes.Buffer
	if _, err := f.Memory.WriteTo(&buf); err != nil {
		return fmt.Errorf("profile: format %s: %w", f.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("profile: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("profile: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("profile: %w", err)
	}
	f.dirty = false
	log.V(1).Infof("profile: wrote %s", f.path)
	return nil
}

// Close flushes pending changes.
func (f *File) Close() error { return f.Flush() }
