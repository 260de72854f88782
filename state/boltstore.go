package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"
)

// BoltStore keeps snapshots in a bbolt database, one bucket per Kind.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("state: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("state: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range Kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return fmt.Errorf("create bucket %q: %w", kind, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *BoltStore) Path() string { return s.db.Path() }

// Put stores v under name, replacing any earlier snapshot.
func (s *BoltStore) Put(kind Kind, name string, v interface{}) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	data, err := encodeGob(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(kind)).Put([]byte(name), data); err != nil {
			return fmt.Errorf("state: put %s/%s: %w", kind, name, err)
		}
		return nil
	})
}

// Get decodes the snapshot stored under name into v.
func (s *BoltStore) Get(kind Kind, name string, v interface{}) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(kind)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
		}
		// data is only valid inside the transaction; gob copies what it reads.
		return decodeGob(data, v)
	})
}

// Names returns the stored snapshot names of kind in sorted order.
func (s *BoltStore) Names(kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(kind)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the snapshot stored under name.
func (s *BoltStore) Delete(kind Kind, name string) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
		}
		return b.Delete([]byte(name))
	})
}
