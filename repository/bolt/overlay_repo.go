package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/repository"
)

// OverlayBucket holds the per-user dismissal sets and badge flags.
const OverlayBucket = "overlay"

type overlayRepository struct {
	db     *bolt.DB
	bucket []byte
}

// NewOverlayRepository creates a BoltDB-backed OverlayStore. The bucket must already exist.
func NewOverlayRepository(db *bolt.DB) repository.OverlayStore {
	return &overlayRepository{db: db, bucket: []byte(OverlayBucket)}
}

func (r *overlayRepository) DismissedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if r.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	set := make(map[string]struct{})
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(r.bucket).Get(dismissedKey(userID))
		return decodeSet(raw, set)
	})
	return set, err
}

func (r *overlayRepository) AddDismissed(ctx context.Context, userID string, ids ...string) error {
	if r.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		key := dismissedKey(userID)

		set := make(map[string]struct{})
		if err := decodeSet(b.Get(key), set); err != nil {
			return err
		}
		before := len(set)
		for _, id := range ids {
			if id != "" {
				set[id] = struct{}{}
			}
		}
		if len(set) == before {
			return nil
		}

		payload, err := encodeSet(set)
		if err != nil {
			return err
		}
		return b.Put(key, payload)
	})
}

func (r *overlayRepository) BadgeHidden(ctx context.Context, userID string) (bool, error) {
	if r.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	var hidden bool
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(r.bucket).Get(badgeKey(userID))
		if raw == nil {
			return nil
		}
		parsed, err := strconv.ParseBool(string(raw))
		if err != nil {
			return fmt.Errorf("badge flag for %s: %w", userID, err)
		}
		hidden = parsed
		return nil
	})
	return hidden, err
}

func (r *overlayRepository) SetBadgeHidden(ctx context.Context, userID string, hidden bool) error {
	if r.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Put(badgeKey(userID), []byte(strconv.FormatBool(hidden)))
	})
}

func dismissedKey(userID string) []byte {
	return []byte("dismissed:" + userID)
}

func badgeKey(userID string) []byte {
	return []byte("badge-removed:" + userID)
}

func decodeSet(raw []byte, into map[string]struct{}) error {
	if len(raw) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	for _, id := range ids {
		into[id] = struct{}{}
	}
	return nil
}

func encodeSet(set map[string]struct{}) ([]byte, error) {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}
