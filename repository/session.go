package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskboard/domain"
)

// SessionRepository stores the actor sessions behind access tokens. A session that is
// missing or past its expiry is reported as domain.ErrSessionNotFound.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	// Renew moves the session expiry to expiresAt and returns the updated session.
	// The stored expiry and the storage TTL change together.
	Renew(ctx context.Context, id string, expiresAt time.Time) (*domain.Session, error)
}
