// Package handlestore persists the single piece of state spec.md §6
// requires to survive a process restart: the last-allocated async
// operation handle. It is grounded on rclone's lib/kv, whose
// Start(ctx, facility, upgrade) / Load / Set / Stop shape it mirrors,
// backed directly by go.etcd.io/bbolt (named in the teacher's go.mod)
// rather than reimplementing an on-disk format.
package handlestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("psifs-async")
var handleKey = []byte("next-handle")

// Store is a tiny bbolt-backed key/value store holding exactly one
// counter. It is safe for use only from the single cooperative
// scheduler thread described in spec.md §5 — like the rest of this
// module, it does no internal locking of its own.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures its bucket exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening handle store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialising handle store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastHandle returns the last-allocated handle, or 0 if none has ever
// been persisted.
func (s *Store) LastHandle() (int64, error) {
	var v int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		raw := b.Get(handleKey)
		if raw == nil {
			return nil
		}
		v = int64(binary.LittleEndian.Uint64(raw))
		return nil
	})
	return v, err
}

// SetLastHandle persists handle as the last-allocated value.
func (s *Store) SetLastHandle(handle int64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(handle))
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put(handleKey, buf)
	})
}
