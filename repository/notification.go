package repository

import (
	"context"

	"github.com/fastygo/taskboard/domain"
)

type NotificationRepository interface {
	// ListByUser returns the recipient's notifications, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
