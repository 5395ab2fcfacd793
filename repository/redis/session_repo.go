package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type sessionRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRepository creates a Redis-backed session repository. Keys expire together
// with the session.
func NewSessionRepository(client *redislib.Client, prefix string, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if prefix == "" {
		prefix = "session"
	}
	return &sessionRepository{
		client: client,
		prefix: prefix + ":",
		ttl:    ttl,
	}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	result, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.ActorID == "" {
		return domain.ErrInvalidPayload
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = r.ttl
	}

	return r.client.Set(ctx, r.key(session.ID), payload, ttl).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// Renew rewrites the session with its new expiry under WATCH, so a concurrent logout
// between the read and the write is not undone.
func (r *sessionRepository) Renew(ctx context.Context, id string, expiresAt time.Time) (*domain.Session, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil, domain.ErrInvalidPayload
	}

	key := r.key(id)
	var renewed domain.Session
	err := r.client.Watch(ctx, func(tx *redislib.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redislib.Nil) {
				return domain.ErrSessionNotFound
			}
			return err
		}
		if err := json.Unmarshal(raw, &renewed); err != nil {
			return err
		}
		renewed.ExpiresAt = expiresAt

		payload, err := json.Marshal(&renewed)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return &renewed, nil
}

func (r *sessionRepository) key(id string) string {
	return r.prefix + id
}
