package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

const notificationColumns = `id, user_id, title, message, type, related_id, related_type, is_read, created_at`

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n == nil || n.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
	INSERT INTO notifications (id, user_id, title, message, type, related_id, related_type, is_read)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + notificationColumns

	return scanNotification(r.pool.QueryRow(ctx, query,
		id, n.UserID, n.Title, n.Message, n.Type, n.RelatedID, n.RelatedType, n.IsRead,
	))
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.RelatedID,
		&n.RelatedType,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}
