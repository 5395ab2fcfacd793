package bolt

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Open initializes the BoltDB file and ensures the requested buckets exist.
func Open(path string, buckets ...string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// KeyCount returns the number of keys in bucket, for monitoring endpoints.
func KeyCount(db *bolt.DB, bucket string) (int, error) {
	if db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}
