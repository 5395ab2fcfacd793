package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/repository"
)

// BadgeState is what the unread badge should show.
type BadgeState struct {
	Visible bool `json:"visible"`
	Count   int  `json:"count"`
}

// DeriveBadge is the pure badge rule. The badge shows when something is unread and the
// user has not hidden it (or new notifications arrived since). The displayed count follows
// the consumer's filtered count whenever one is supplied, even if it disagrees with unread
// or is zero; it never affects visibility.
func DeriveBadge(unread int, filtered *int, hidden bool, hiddenAt int) BadgeState {
	count := unread
	if filtered != nil {
		count = *filtered
	}
	suppressed := hidden && unread <= hiddenAt
	return BadgeState{
		Visible: unread > 0 && !suppressed,
		Count:   count,
	}
}

// Badge tracks the persisted "badge hidden" flag for one user.
type Badge struct {
	store  repository.OverlayStore
	userID string
	logger *zap.Logger

	mu       sync.Mutex
	hidden   bool
	hiddenAt int
}

func NewBadge(store repository.OverlayStore, userID string, logger *zap.Logger) *Badge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Badge{store: store, userID: userID, logger: logger}
}

// Load restores the hidden flag. The unread count at load time becomes the baseline,
// since only the flag itself is persisted.
func (b *Badge) Load(ctx context.Context, unread int) error {
	if b.store == nil {
		return nil
	}
	hidden, err := b.store.BadgeHidden(ctx, b.userID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.hidden = hidden
	b.hiddenAt = unread
	b.mu.Unlock()
	return nil
}

// Hide records that the user dismissed the badge while unread notifications were showing.
func (b *Badge) Hide(ctx context.Context, unread int) error {
	b.mu.Lock()
	b.hidden = true
	b.hiddenAt = unread
	b.mu.Unlock()
	if b.store == nil {
		return nil
	}
	return b.store.SetBadgeHidden(ctx, b.userID, true)
}

// State derives the badge for the given counts. When unread has grown past the count
// seen at hiding time the hidden flag is cleared for good.
func (b *Badge) State(ctx context.Context, unread int, filtered *int) BadgeState {
	b.mu.Lock()
	reset := b.hidden && unread > b.hiddenAt
	if reset {
		b.hidden = false
	}
	if !b.hidden {
		b.hiddenAt = unread
	}
	state := DeriveBadge(unread, filtered, b.hidden, b.hiddenAt)
	b.mu.Unlock()

	if reset && b.store != nil {
		if err := b.store.SetBadgeHidden(ctx, b.userID, false); err != nil {
			b.logger.Warn("failed to persist badge flag", zap.String("user_id", b.userID), zap.Error(err))
		}
	}
	return state
}
