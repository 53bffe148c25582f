package profile

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

// Bolt keeps a profile in a boltdb file, one bucket per section. Every
// SetString is its own transaction.
type Bolt struct {
	db *bolt.DB
}

var _ rsa.Profile = (*Bolt)(nil)

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("profile: open %s: %w", path, err)
	}
	log.V(1).Infof("profile: opened bolt database %s", path)
	return &Bolt{db: db}, nil
}

func bucketName(sec string) []byte {
	if sec == "" {
		return []byte("_")
	}
	return []byte(sec)
}

func (b *Bolt) String(sec, key, def string) (string, error) {
	val := def
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketName(sec))
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			val = string(v)
		}
		return nil
	})
	if err != nil {
		return def, fmt.Errorf("profile: read [%s] %s: %w", sec, key, err)
	}
	return val, nil
}

func (b *Bolt) SetString(sec, key, value string) error {
	if key == "" {
		return fmt.Errorf("profile: empty key in section %q", sec)
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(bucketName(sec))
		if err != nil {
			return err
		}
		return bk.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("profile: write [%s] %s: %w", sec, key, err)
	}
	return nil
}

// Flush syncs the database file.
func (b *Bolt) Flush() error {
	return b.db.Sync()
}

// Export copies every bucket into a Memory, sections in key order.
func (b *Bolt) Export() (*Memory, error) {
	m := NewMemory()
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, bk *bolt.Bucket) error {
			sec := string(name)
			if sec == "_" {
				sec = ""
			}
			return bk.ForEach(func(k, v []byte) error {
				m.set(sec, string(k), string(v))
				return nil
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("profile: export: %w", err)
	}
	return m, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
