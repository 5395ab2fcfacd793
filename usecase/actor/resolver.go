package actor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Resolver unifies the member, admin and project manager tables into one identity space.
type Resolver struct {
	actors repository.ActorRepository
	logger *zap.Logger
}

func New(actors repository.ActorRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{actors: actors, logger: logger}
}

// ResolveActive looks the ids up in all three tables in parallel, restricted to active rows,
// and returns an id -> summary map. When an id appears in more than one table the first
// kind in domain.ActorKinds wins and the collision is logged.
func (r *Resolver) ResolveActive(ctx context.Context, ids []string) (map[string]*domain.ActorSummary, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return map[string]*domain.ActorSummary{}, nil
	}

	results := make([][]domain.Actor, len(domain.ActorKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range domain.ActorKinds {
		i, kind := i, kind
		g.Go(func() error {
			found, err := r.actors.ListActive(gctx, kind, ids)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.ActorSummary, len(ids))
	for _, found := range results {
		for i := range found {
			a := found[i]
			if prev, ok := out[a.ID]; ok {
				r.logger.Warn("actor id present in more than one table",
					zap.String("actor_id", a.ID),
					zap.String("kept", string(prev.Kind)),
					zap.String("ignored", string(a.Kind)))
				continue
			}
			out[a.ID] = a.Summary()
		}
	}
	return out, nil
}

// Lookup returns the actor with id from the first table that holds it, whether active or not.
func (r *Resolver) Lookup(ctx context.Context, id string) (*domain.Actor, error) {
	if id == "" {
		return nil, domain.ErrActorNotFound
	}
	for _, kind := range domain.ActorKinds {
		a, err := r.actors.Get(ctx, kind, id)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, domain.ErrActorNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrActorNotFound
}

// Verify checks plaintext against the stored bcrypt hash of the actor.
func (r *Resolver) Verify(ctx context.Context, actorID, plaintext string) (bool, error) {
	a, err := r.Lookup(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrActorNotFound) {
			return false, nil
		}
		return false, err
	}
	if a.PasswordHash == "" || plaintext == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

