// Package storage persists trained model bundles in a BoltDB file.
// Each training run writes one immutable bundle under a new version key and
// marks it active; the inference service reads the active bundle at startup.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bundlesBucket   = "bundles"   // version -> full bundle JSON
	manifestsBucket = "manifests" // version -> small summary JSON
	metaBucket      = "meta"      // active -> version
)

var activeKey = []byte("active")

var (
	// ErrNoActiveBundle means no bundle has been saved or activated yet.
	ErrNoActiveBundle = errors.New("no active model bundle")
	// ErrVersionNotFound means the requested version is not stored.
	ErrVersionNotFound = errors.New("model version not found")
)

// Store provides persistent storage for model bundles using BoltDB.
type Store struct {
	db       *bbolt.DB
	readOnly bool
}

// New opens or creates the database at path, creating parent directories
// and buckets as needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bundlesBucket, manifestsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewReadOnly opens an existing database without write access. It fails if
// the file does not exist.
func NewReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model database %s: %w", path, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, readOnly: true}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func bucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("bucket %s missing: %w", name, ErrNoActiveBundle)
	}
	return b, nil
}
