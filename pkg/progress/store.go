// Package progress persists reading positions on the local device.
//
// The store is a fallback, not a sync peer: it is consulted only when the
// user is unauthenticated or when the authoritative server-side position is
// unavailable. Server state wins whenever reachable.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

var (
	bucketPositions = []byte("positions")
	bucketMeta      = []byte("meta")

	keyDeviceID = []byte("device_id")
)

// ErrNotFound indicates no local position exists for the resource.
var ErrNotFound = errors.New("reading position not found")

// Position is a locally stored reading position, keyed by resource id.
// Owned exclusively by this device; never merged with server state.
type Position struct {
	ResourceID string  `json:"resourceId"`
	Ratio      float64 `json:"ratio"`

	// Locator is an opaque structural pointer (chapter/page/scroll or a
	// precise-location token) interpreted by the reader, not by us.
	Locator string `json:"locator,omitempty"`

	WrittenAt time.Time `json:"writtenAt"`
	DeviceID  string    `json:"deviceId"`
}

// Store is a BoltDB-backed local position store.
type Store struct {
	db       *bbolt.DB
	deviceID string
	logger   zerolog.Logger
}

// Open opens (or creates) the position store at dbPath. A device id is
// generated on first open and reused afterwards.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	store := &Store{db: db, logger: logger}

	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize progress store: %w", err)
	}

	return store, nil
}

// init creates buckets and loads or generates the device id.
func (s *Store) init() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPositions); err != nil {
			return fmt.Errorf("create positions bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		if id := meta.Get(keyDeviceID); id != nil {
			s.deviceID = string(id)
			return nil
		}

		s.deviceID = uuid.New().String()
		return meta.Put(keyDeviceID, []byte(s.deviceID))
	})
}

// DeviceID returns the stable identifier of this device.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// Read retrieves the local position for a resource.
// Returns ErrNotFound when none exists.
func (s *Store) Read(ctx context.Context, resourceID string) (*Position, error) {
	var pos *Position

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPositions)
		if bucket == nil {
			return fmt.Errorf("positions bucket not found")
		}

		data := bucket.Get([]byte(resourceID))
		if data == nil {
			return ErrNotFound
		}

		pos = &Position{}
		if err := json.Unmarshal(data, pos); err != nil {
			return fmt.Errorf("unmarshal position: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return pos, nil
}

// Write stores or updates the local position for a resource. WrittenAt and
// DeviceID are stamped here so callers only supply the reading state.
func (s *Store) Write(ctx context.Context, pos Position) error {
	if pos.ResourceID == "" {
		return fmt.Errorf("resource id is required")
	}

	pos.WrittenAt = time.Now()
	pos.DeviceID = s.deviceID

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPositions)
		if bucket == nil {
			return fmt.Errorf("positions bucket not found")
		}

		data, err := json.Marshal(pos)
		if err != nil {
			return fmt.Errorf("marshal position: %w", err)
		}

		return bucket.Put([]byte(pos.ResourceID), data)
	})
}

// Record is the fire-and-forget write path: failures are logged and
// swallowed so a broken local store never interrupts reading.
func (s *Store) Record(ctx context.Context, pos Position) {
	if err := s.Write(ctx, pos); err != nil {
		s.logger.Warn().
			Err(err).
			Str("resource_id", pos.ResourceID).
			Msg("Failed to record local reading position")
	}
}

// Delete removes the local position for a resource.
func (s *Store) Delete(ctx context.Context, resourceID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPositions)
		if bucket == nil {
			return fmt.Errorf("positions bucket not found")
		}
		return bucket.Delete([]byte(resourceID))
	})
}

// List returns all locally stored positions.
func (s *Store) List(ctx context.Context) ([]*Position, error) {
	var positions []*Position

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPositions)
		if bucket == nil {
			return fmt.Errorf("positions bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			pos := &Position{}
			if err := json.Unmarshal(v, pos); err != nil {
				return fmt.Errorf("unmarshal position: %w", err)
			}
			positions = append(positions, pos)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return positions, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
