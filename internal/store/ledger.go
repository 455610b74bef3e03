package store

import (
	"slices"

	"github.com/mmcdole/arrsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// ledgerKey is the conflict key for synced_items: one row per (service, key)
func ledgerKey(service, key string) string {
	return service + "|" + key
}

// IsSynced reports whether a success row exists for the exact pair
func (s *Store) IsSynced(key, service string) (bool, error) {
	var rec domain.SyncRecord
	ok, err := s.get(bucketSynced, ledgerKey(service, key), &rec)
	if err != nil {
		return false, storageErr("read ledger", err)
	}
	return ok && rec.Status == domain.StatusSuccess, nil
}

// RecordSync upserts rec, replacing any previous row for (Key, Service)
func (s *Store) RecordSync(rec domain.SyncRecord) error {
	if rec.SyncedAt.IsZero() {
		rec.SyncedAt = s.now()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketSynced, ledgerKey(rec.Service, rec.Key), rec)
	})
	return storageErr("write ledger", err)
}

// History returns ledger rows most recent first. limit <= 0 returns all rows.
func (s *Store) History(limit int) ([]domain.SyncRecord, error) {
	var records []domain.SyncRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return forEach(tx, bucketSynced, "", func(_ string, rec domain.SyncRecord) error {
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("read history", err)
	}

	slices.SortStableFunc(records, func(a, b domain.SyncRecord) int {
		return b.SyncedAt.Compare(a.SyncedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SyncedCount returns the number of success rows for service
func (s *Store) SyncedCount(service string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return forEach(tx, bucketSynced, service+"|", func(_ string, rec domain.SyncRecord) error {
			if rec.Status == domain.StatusSuccess {
				count++
			}
			return nil
		})
	})
	return count, storageErr("count ledger", err)
}

// ClearHistory deletes every ledger row. Caches are untouched.
func (s *Store) ClearHistory() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return clearBucket(tx, bucketSynced)
	})
	return storageErr("clear ledger", err)
}
