// Package digeststore implements the SHA-256 + mtime-keyed digest
// memoization table described in the digest store component: a small
// bbolt-backed key-value table keyed by canonicalized filesystem path,
// versioned so that an unknown or corrupt schema yields an empty store
// rather than an error.
package digeststore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cuemby/relay/pkg/types"
)

// schemaVersion is bumped whenever the encoded Entry shape changes
// incompatibly. A stored version that doesn't match is treated as empty.
const schemaVersion = 1

var (
	bucketEntries = []byte("digests")
	bucketMeta    = []byte("meta")
	keyVersion    = []byte("version")
)

// Entry is one digest store record: the digest recorded for a path, and the
// file modification time it was recorded against.
type Entry struct {
	Digest       types.Digest `json:"digest"`
	ModifiedTime time.Time    `json:"mtime"`
}

// Store is a bbolt-backed digest memoization table. The zero value is not
// usable; construct with Open.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the digest store at path. bbolt's own
// single-writer transaction locking satisfies the "atomic writes w.r.t.
// concurrent readers" requirement — no separate file lock is taken.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("digeststore: open %s: %w", path, err)
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
		if stored == nil {
			// Fresh database: stamp the current version.
			if err := meta.Put(keyVersion, versionBytes(schemaVersion)); err != nil {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(bucketEntries)
			return err
		}

		if string(stored) != string(versionBytes(schemaVersion)) {
			// Unknown version: treat as empty by recreating the entries
			// bucket, never returning an error.
			if err := tx.DeleteBucket(bucketEntries); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
				return err
			}
			return meta.Put(keyVersion, versionBytes(schemaVersion))
		}

		_, err = tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
}

func versionBytes(v int) []byte {
	return []byte(fmt.Sprintf("%d", v))
}

// Get returns the digest recorded for path, but only if mtime matches the
// recorded modification time exactly. A stale or absent entry returns
// (zero digest, false, nil) — staleness is not an error.
func (s *Store) Get(path string, mtime time.Time) (types.Digest, bool, error) {
	var entry Entry
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(path))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			// Corrupt record: treat as absent rather than failing the caller.
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return types.Digest{}, false, fmt.Errorf("digeststore: get %s: %w", path, err)
	}
	if !found || !entry.ModifiedTime.Equal(mtime) {
		return types.Digest{}, false, nil
	}
	return entry.Digest, true, nil
}

// Add records digest for path as of mtime, overwriting any prior entry.
func (s *Store) Add(path string, mtime time.Time, digest types.Digest) error {
	entry := Entry{Digest: digest, ModifiedTime: mtime}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("digeststore: encode entry for %s: %w", path, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			var err error
			b, err = tx.CreateBucketIfNotExists(bucketEntries)
			if err != nil {
				return err
			}
		}
		return b.Put([]byte(path), raw)
	})
}
