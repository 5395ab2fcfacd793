package repository

import "context"

// OverlayStore is the durable per-user key-value store behind the dismissal overlay.
// Keys are scoped by user id; implementations must survive a process restart.
type OverlayStore interface {
	DismissedIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	AddDismissed(ctx context.Context, userID string, ids ...string) error
	BadgeHidden(ctx context.Context, userID string) (bool, error)
	SetBadgeHidden(ctx context.Context, userID string, hidden bool) error
}
