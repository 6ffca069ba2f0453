package ens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("ens")

// BoltStore keeps the cache in a bbolt database, one key per address.
// Values use the same encoding as the JSON document.
type BoltStore struct {
	table
	db *bolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string, opts StoreOptions) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{table: newTable(opts), db: db}, nil
}

// Load reads every key and keeps the fresh entries.
func (s *BoltStore) Load() error {
	s.reset()

	raw := make(map[string]json.RawMessage)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			raw[string(k)] = append(json.RawMessage(nil), v...)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to read cache db: %w", err)
	}
	s.load(raw)
	return nil
}

// Save replaces the bucket contents with the in-memory mapping in one transaction.
func (s *BoltStore) Save() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) != nil {
			if err := tx.DeleteBucket(boltBucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(boltBucket)
		if err != nil {
			return err
		}
		for addr, d := range s.document() {
			v, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(addr), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
