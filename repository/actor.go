package repository

import (
	"context"

	"github.com/fastygo/taskboard/domain"
)

// ActorRepository reads one of the three identity tables per call.
type ActorRepository interface {
	// ListActive returns the active actors of the given kind whose id is in ids.
	ListActive(ctx context.Context, kind domain.ActorKind, ids []string) ([]domain.Actor, error)
	// Get returns the actor of the given kind, including its password hash, active or not.
	Get(ctx context.Context, kind domain.ActorKind, id string) (*domain.Actor, error)
}
