package profile

import (
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

// Store is a profile that holds an external resource.
type Store interface {
	rsa.Profile
	Close() error
}

// Open picks the backend from the file extension: .db and .bolt open a bolt
// database, anything else an INI file.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return OpenBolt(path)
	}
	return OpenFile(path)
}
