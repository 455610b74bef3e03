package store

import (
	"encoding/json"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// DefaultMetadataMaxAge is how long source metadata stays fresh
const DefaultMetadataMaxAge = 7 * 24 * time.Hour

// === Metadata cache ===

// GetMetadata returns the cached entries for the keys that are present
func (s *Store) GetMetadata(keys []string) (map[string]domain.MetadataEntry, error) {
	result := make(map[string]domain.MetadataEntry, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		for _, key := range keys {
			v := b.Get([]byte(key))
			if v == nil {
				continue
			}
			var entry domain.MetadataEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			result[key] = entry
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("read metadata cache", err)
	}
	return result, nil
}

// SetMetadata stores each blob stamped with the current time
func (s *Store) SetMetadata(blobs map[string]json.RawMessage) error {
	now := s.now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		for key, data := range blobs {
			entry := domain.MetadataEntry{Key: key, Data: data, CachedAt: now}
			if err := put(tx, bucketMetadata, key, entry); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("write metadata cache", err)
}

// IsMetadataStale is true when the key is absent or older than maxAge
func (s *Store) IsMetadataStale(key string, maxAge time.Duration) (bool, error) {
	var entry domain.MetadataEntry
	ok, err := s.get(bucketMetadata, key, &entry)
	if err != nil {
		return true, storageErr("read metadata cache", err)
	}
	return !ok || entry.Stale(s.now(), maxAge), nil
}

// ClearStaleMetadata removes entries older than maxAge and returns how many
func (s *Store) ClearStaleMetadata(maxAge time.Duration) (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		var stale []string
		err := forEach(tx, bucketMetadata, "", func(key string, entry domain.MetadataEntry) error {
			if entry.Stale(now, maxAge) {
				stale = append(stale, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		b := tx.Bucket(bucketMetadata)
		for _, key := range stale {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, storageErr("clear metadata cache", err)
}

// ClearMetadata drops the whole metadata cache
func (s *Store) ClearMetadata() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return clearBucket(tx, bucketMetadata)
	})
	return storageErr("clear metadata cache", err)
}

// === External-id cache ===

// ExternalIDByItemID returns the cached resolution for a source item id, or nil
func (s *Store) ExternalIDByItemID(id string) (*domain.ExternalIDEntry, error) {
	if id == "" {
		return nil, nil
	}
	var entry domain.ExternalIDEntry
	ok, err := s.get(bucketExternalIDs, id, &entry)
	if err != nil {
		return nil, storageErr("read external id cache", err)
	}
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// ExternalIDBySlug returns the cached resolution for a source slug, or nil
func (s *Store) ExternalIDBySlug(slug string) (*domain.ExternalIDEntry, error) {
	if slug == "" {
		return nil, nil
	}
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSlugIndex).Get([]byte(slug)); v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("read slug index", err)
	}
	if id == "" {
		return nil, nil
	}
	return s.ExternalIDByItemID(id)
}

// UpsertExternalID replaces the entry for entry.SourceItemID and indexes its slug.
// Entries without a source item id are keyed by slug.
func (s *Store) UpsertExternalID(entry domain.ExternalIDEntry) error {
	id := entry.SourceItemID
	if id == "" {
		id = "slug:" + entry.Slug
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := put(tx, bucketExternalIDs, id, entry); err != nil {
			return err
		}
		if entry.Slug != "" {
			return tx.Bucket(bucketSlugIndex).Put([]byte(entry.Slug), []byte(id))
		}
		return nil
	})
	return storageErr("write external id cache", err)
}

// === First-seen table ===

// MarkSeen records entries not already present. Existing FirstSeen stamps are kept.
func (s *Store) MarkSeen(entries []domain.SeenEntry) error {
	now := s.now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSeen)
		for _, entry := range entries {
			if b.Get([]byte(entry.Key)) != nil {
				continue
			}
			if entry.FirstSeen.IsZero() {
				entry.FirstSeen = now
			}
			if err := put(tx, bucketSeen, entry.Key, entry); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("write seen table", err)
}

// SeenCount returns how many items the baseline has recorded
func (s *Store) SeenCount() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketSeen).Stats().KeyN
		return nil
	})
	return count, storageErr("count seen table", err)
}
