// Package progressdb persists per-case test timing and outcome history
// across runs: the last up-to-three durations observed for a case, its most
// recent outcome, and arbitrary caller-supplied metadata. Like digeststore it
// is a versioned bbolt table where loading an unknown schema version yields
// an empty store rather than an error.
package progressdb

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const schemaVersion = 1

// maxDurations bounds the recent-duration history kept per case.
const maxDurations = 3

var (
	bucketCases = []byte("cases")
	bucketMeta  = []byte("meta")
	keyVersion  = []byte("version")
)

// Outcome is the most recent result recorded for a case.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeNew     Outcome = "new"
)

// CaseRecord is the persisted state for one package/case key.
type CaseRecord struct {
	Durations []time.Duration   `json:"durations"` // most recent last, capped at maxDurations
	Outcome   Outcome           `json:"outcome"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Store is a bbolt-backed case timing/outcome table.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the progress database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("progressdb: open %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}

		stored := meta.Get(keyVersion)
		current := versionBytes(schemaVersion)
		if stored == nil {
			if err := meta.Put(keyVersion, current); err != nil {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(bucketCases)
			return err
		}

		if string(stored) != string(current) {
			if err := tx.DeleteBucket(bucketCases); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(bucketCases); err != nil {
				return err
			}
			return meta.Put(keyVersion, current)
		}

		_, err = tx.CreateBucketIfNotExists(bucketCases)
		return err
	})
}

func versionBytes(v int) []byte {
	return []byte(fmt.Sprintf("%d", v))
}

// Get returns the record for key, or (zero value, false) if absent or
// unreadable.
func (s *Store) Get(key string) (CaseRecord, bool, error) {
	var record CaseRecord
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCases)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return CaseRecord{}, false, fmt.Errorf("progressdb: get %s: %w", key, err)
	}
	return record, found, nil
}

// RecordRun appends duration to key's history (capping at maxDurations, oldest
// first dropped) and sets its outcome and metadata.
func (s *Store) RecordRun(key string, duration time.Duration, outcome Outcome, metadata map[string]string) error {
	existing, _, err := s.Get(key)
	if err != nil {
		return err
	}

	durations := append(existing.Durations, duration)
	if len(durations) > maxDurations {
		durations = durations[len(durations)-maxDurations:]
	}

	record := CaseRecord{
		Durations: durations,
		Outcome:   outcome,
		Metadata:  metadata,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("progressdb: encode record for %s: %w", key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCases)
		if b == nil {
			var err error
			b, err = tx.CreateBucketIfNotExists(bucketCases)
			if err != nil {
				return err
			}
		}
		return b.Put([]byte(key), raw)
	})
}
