package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSynced      = []byte("synced_items")
	bucketMetadata    = []byte("metadata_cache")
	bucketExternalIDs = []byte("external_ids")
	bucketSlugIndex   = []byte("external_id_slugs")
	bucketSeen        = []byte("watchlist_seen")
)

var allBuckets = [][]byte{bucketSynced, bucketMetadata, bucketExternalIDs, bucketSlugIndex, bucketSeen}

// Store implements domain.Ledger using BoltDB. It also owns the metadata
// cache and the first-seen table.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at dbPath
func Open(dbPath string) (*Store, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get home directory: %w", domain.ErrStorage, err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %w", domain.ErrStorage, err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db: %w", domain.ErrStorage, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create buckets: %w", domain.ErrStorage, err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// storageErr tags err as a fatal ledger failure
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("corrupt %s entry %q: %w", bucket, key, err)
	}
	return true, nil
}

func put(tx *bolt.Tx, bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// forEach decodes every value in bucket whose key starts with prefix
func forEach[T any](tx *bolt.Tx, bucket []byte, prefix string, fn func(key string, v T) error) error {
	c := tx.Bucket(bucket).Cursor()
	p := []byte(prefix)
	for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("corrupt %s entry %q: %w", bucket, k, err)
		}
		if err := fn(string(k), item); err != nil {
			return err
		}
	}
	return nil
}

// clearBucket drops and recreates bucket
func clearBucket(tx *bolt.Tx, bucket []byte) error {
	if err := tx.DeleteBucket(bucket); err != nil {
		return err
	}
	_, err := tx.CreateBucket(bucket)
	return err
}
