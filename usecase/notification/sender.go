package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Sender writes new notifications. Recipients learn about them through their realtime
// subscription, not through this call.
type Sender struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewSender(repo repository.NotificationRepository, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{repo: repo, logger: logger}
}

func (s *Sender) Send(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	n.UserID = strings.TrimSpace(n.UserID)
	n.Title = strings.TrimSpace(n.Title)
	if n.UserID == "" || n.Title == "" {
		return nil, domain.ErrInvalidPayload
	}
	n.IsRead = false

	created, err := s.repo.Create(ctx, &n)
	if err != nil {
		return nil, domain.RemoteIO("create notification", err)
	}
	s.logger.Debug("notification sent", zap.String("notification_id", created.ID), zap.String("user_id", created.UserID))
	return created, nil
}
