package buffer

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bucket is the default bucket holding pending replays.
const Bucket = "outbox"

// Store keeps pending writes in a bolt bucket, oldest first.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// New uses bucket inside an already opened database. The bucket must exist.
func New(db *bolt.DB, bucket string) *Store {
	if bucket == "" {
		bucket = Bucket
	}
	return &Store{db: db, bucket: []byte(bucket)}
}

// Enqueue stores an item under a time-ordered key.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	item.bucketKey = []byte(buildKey(item))

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return b.Put(item.bucketKey, payload)
	})
}

// Batch returns up to limit items without removing them.
func (s *Store) Batch(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.bucketKey = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Remove deletes an item previously returned by Batch.
func (s *Store) Remove(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	key := item.bucketKey
	if len(key) == 0 {
		key = []byte(buildKey(item))
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return b.Delete(key)
	})
}

// Replace rewrites an item in place, keeping its position in the queue.
func (s *Store) Replace(item Item) error {
	if len(item.bucketKey) == 0 {
		return s.Enqueue(item)
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return b.Put(item.bucketKey, payload)
	})
}

// Size returns the number of pending items.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func buildKey(item Item) string {
	return fmt.Sprintf("%020d_%s", item.Timestamp.UnixNano(), item.ID)
}
