package notification

import (
	"context"
	"sync"

	"github.com/fastygo/taskboard/repository"
)

// Overlay is the user's local set of dismissed notification ids. Once an id is added it
// stays suppressed; nothing removes ids from the overlay.
type Overlay struct {
	store  repository.OverlayStore
	userID string

	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewOverlay(store repository.OverlayStore, userID string) *Overlay {
	return &Overlay{
		store:  store,
		userID: userID,
		ids:    make(map[string]struct{}),
	}
}

// Load merges the persisted set into memory.
func (o *Overlay) Load(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	persisted, err := o.store.DismissedIDs(ctx, o.userID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	for id := range persisted {
		o.ids[id] = struct{}{}
	}
	o.mu.Unlock()
	return nil
}

func (o *Overlay) Has(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.ids[id]
	return ok
}

func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.ids)
}

// Add records ids in memory first, then persists them. A persistence error is returned
// but the in-memory suppression stands.
func (o *Overlay) Add(ctx context.Context, ids ...string) error {
	o.remember(ids...)
	return o.persist(ctx, ids...)
}

func (o *Overlay) remember(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			o.ids[id] = struct{}{}
		}
	}
}

func (o *Overlay) persist(ctx context.Context, ids ...string) error {
	if o.store == nil || len(ids) == 0 {
		return nil
	}
	return o.store.AddDismissed(ctx, o.userID, ids...)
}
