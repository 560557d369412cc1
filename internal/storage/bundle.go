package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"income-predictor/internal/features"
	"income-predictor/internal/ml"
)

// Bundle is everything the inference service needs to reproduce the
// training-time encoding and scoring.
type Bundle struct {
	Version      string              `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	Features     []string            `json:"features"`
	Classes      []string            `json:"classes"`
	Vocabulary   features.Vocabulary `json:"vocabulary"`
	Scaler       features.Scaler     `json:"scaler"`
	Forest       *ml.RandomForest    `json:"forest"`
	Evaluation   ml.Evaluation       `json:"evaluation"`
	Importances  []ml.FeatureScore   `json:"feature_importances"`
	TrainingRows int                 `json:"training_rows"`
}

// Manifest summarizes a stored bundle without its model payload.
type Manifest struct {
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Accuracy     float64   `json:"accuracy"`
	TrainingRows int       `json:"training_rows"`
	Active       bool      `json:"active"`
}

// Validate checks that a bundle carries every fitted component and that
// each one is structurally sound.
func (b *Bundle) Validate() error {
	if b.Version == "" {
		return errors.New("bundle has no version")
	}
	if err := b.Vocabulary.Validate(features.EncodedFields); err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if err := b.Scaler.Validate(); err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if len(b.Scaler.Mean) != len(features.NumericIndices) {
		return fmt.Errorf("bundle scaler has %d columns, want %d", len(b.Scaler.Mean), len(features.NumericIndices))
	}
	if err := b.Forest.Validate(); err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if len(b.Features) != b.Forest.NFeatures {
		return fmt.Errorf("bundle lists %d features, forest expects %d", len(b.Features), b.Forest.NFeatures)
	}
	return nil
}

// NewVersion returns a sortable, unique version key.
func NewVersion(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// SaveBundle stores b under its version and makes it the active bundle.
// A version is assigned when b has none.
func (s *Store) SaveBundle(b *Bundle) error {
	if s.readOnly {
		return errors.New("store is read-only")
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Version == "" {
		b.Version = NewVersion(b.CreatedAt)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bundle: %w", err)
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	manifest, err := json.Marshal(Manifest{
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		Accuracy:     b.Evaluation.Accuracy,
		TrainingRows: b.TrainingRows,
	})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(b.Version)
		if err := tx.Bucket([]byte(bundlesBucket)).Put(key, data); err != nil {
			return fmt.Errorf("put bundle: %w", err)
		}
		if err := tx.Bucket([]byte(manifestsBucket)).Put(key, manifest); err != nil {
			return fmt.Errorf("put manifest: %w", err)
		}
		return tx.Bucket([]byte(metaBucket)).Put(activeKey, key)
	})
}

// ActiveVersion returns the version currently marked active.
func (s *Store) ActiveVersion() (string, error) {
	var version string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, metaBucket)
		if err != nil {
			return err
		}
		v := b.Get(activeKey)
		if v == nil {
			return ErrNoActiveBundle
		}
		version = string(v)
		return nil
	})
	return version, err
}

// LoadActive loads the active bundle.
func (s *Store) LoadActive() (*Bundle, error) {
	version, err := s.ActiveVersion()
	if err != nil {
		return nil, err
	}
	return s.LoadVersion(version)
}

// LoadVersion loads and validates a specific bundle.
func (s *Store) LoadVersion(version string) (*Bundle, error) {
	var bundle Bundle
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bundlesBucket)
		if err != nil {
			return err
		}
		data := b.Get([]byte(version))
		if data == nil {
			return fmt.Errorf("%s: %w", version, ErrVersionNotFound)
		}
		if err := json.Unmarshal(data, &bundle); err != nil {
			return fmt.Errorf("decode bundle %s: %w", version, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("bundle %s: %w", version, err)
	}
	return &bundle, nil
}

// ListVersions returns the stored manifests, newest first.
func (s *Store) ListVersions() ([]Manifest, error) {
	active, err := s.ActiveVersion()
	if err != nil && !errors.Is(err, ErrNoActiveBundle) {
		return nil, err
	}

	var out []Manifest
	err = s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, manifestsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var m Manifest
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decode manifest %s: %w", k, err)
			}
			m.Active = m.Version == active
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrNoActiveBundle) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Version > out[j].Version
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Activate marks an existing version active.
func (s *Store) Activate(version string) error {
	if s.readOnly {
		return errors.New("store is read-only")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bundlesBucket)).Get([]byte(version)) == nil {
			return fmt.Errorf("%s: %w", version, ErrVersionNotFound)
		}
		return tx.Bucket([]byte(metaBucket)).Put(activeKey, []byte(version))
	})
}

// Rollback activates the newest version older than the active one.
func (s *Store) Rollback() (string, error) {
	versions, err := s.ListVersions()
	if err != nil {
		return "", err
	}
	for i, m := range versions {
		if m.Active {
			if i+1 >= len(versions) {
				return "", errors.New("no previous version to roll back to")
			}
			prev := versions[i+1].Version
			return prev, s.Activate(prev)
		}
	}
	return "", ErrNoActiveBundle
}
