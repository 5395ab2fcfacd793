package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

var actorTables = map[domain.ActorKind]string{
	domain.ActorMember:         "members",
	domain.ActorAdmin:          "admins",
	domain.ActorProjectManager: "project_managers",
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository instantiates a Postgres-backed reader over the three actor tables.
func NewActorRepository(pool *pgxpool.Pool) repository.ActorRepository {
	return &actorRepository{pool: pool}
}

func (r *actorRepository) ListActive(ctx context.Context, kind domain.ActorKind, ids []string) ([]domain.Actor, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
	SELECT id, name, email, avatar, is_active, ''
	FROM %s
	WHERE id = ANY($1) AND is_active
	`, table)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []domain.Actor
	for rows.Next() {
		actor, err := scanActor(rows, kind)
		if err != nil {
			return nil, err
		}
		actors = append(actors, *actor)
	}
	return actors, rows.Err()
}

func (r *actorRepository) Get(ctx context.Context, kind domain.ActorKind, id string) (*domain.Actor, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
	SELECT id, name, email, avatar, is_active, password_hash
	FROM %s
	WHERE id = $1
	`, table)
	return scanActor(r.pool.QueryRow(ctx, query, id), kind)
}

func tableFor(kind domain.ActorKind) (string, error) {
	table, ok := actorTables[kind]
	if !ok {
		return "", domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unknown actor kind %q", kind))
	}
	return table, nil
}

func scanActor(row pgx.Row, kind domain.ActorKind) (*domain.Actor, error) {
	actor := domain.Actor{Kind: kind}
	if err := row.Scan(
		&actor.ID,
		&actor.Name,
		&actor.Email,
		&actor.Avatar,
		&actor.Active,
		&actor.PasswordHash,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActorNotFound
		}
		return nil, err
	}
	return &actor, nil
}
