package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltStore is a file-backed cache for fully-offline devices: a single
// reader/writer process keeping last-known-good responses on local disk.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a BoltDB cache file at dbPath.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create entries bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *BoltStore) Get(ctx context.Context, key Key) (*Entry, error) {
	var entry *Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return fmt.Errorf("entries bucket not found")
		}

		data := bucket.Get([]byte(key.String()))
		if data == nil {
			return ErrCacheMiss
		}

		entry = &Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}

		return nil
	})

	if err != nil {
		if err == ErrCacheMiss {
			CacheMisses.Inc()
		} else {
			CacheErrors.WithLabelValues("get").Inc()
		}
		return nil, err
	}

	CacheHits.WithLabelValues("bolt").Inc()
	return entry, nil
}

// Set stores a cache entry, overwriting any previous value for the key.
func (s *BoltStore) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return fmt.Errorf("entries bucket not found")
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal cache entry: %w", err)
		}

		CacheSize.WithLabelValues("bolt").Add(float64(len(data)))
		return bucket.Put([]byte(key.String()), data)
	})

	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("bolt set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (s *BoltStore) Delete(ctx context.Context, key Key) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return fmt.Errorf("entries bucket not found")
		}
		return bucket.Delete([]byte(key.String()))
	})

	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("bolt delete: %w", err)
	}

	return nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
