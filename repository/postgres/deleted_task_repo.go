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

const deletedTaskColumns = `id, original_task_id, task_name, description, status, priority, due_date, progress,
	user_id, created_by, project_id, task_created_at, task_updated_at, deleted_by, deleted_at, task_type`

type deletedTaskRepository struct {
	pool *pgxpool.Pool
}

// NewDeletedTaskRepository returns the append-only audit table repository. Inserts are
// idempotent on the record id.
func NewDeletedTaskRepository(pool *pgxpool.Pool) repository.DeletedTaskRepository {
	return &deletedTaskRepository{pool: pool}
}

func (r *deletedTaskRepository) Insert(ctx context.Context, rec *domain.DeletedTaskRecord) (*domain.DeletedTaskRecord, error) {
	if rec == nil {
		return nil, domain.ErrInvalidPayload
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO deleted_tasks (id, original_task_id, task_name, description, status, priority, due_date, progress,
		user_id, created_by, project_id, task_created_at, task_updated_at, deleted_by, task_type, deleted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12::timestamptz, NOW()), COALESCE($13::timestamptz, NOW()), $14, $15,
		COALESCE($16::timestamptz, NOW()))
	ON CONFLICT (id) DO NOTHING
	RETURNING ` + deletedTaskColumns

	saved, err := scanDeletedTask(r.pool.QueryRow(ctx, query,
		id,
		rec.OriginalTaskID,
		rec.TaskName,
		rec.Description,
		string(rec.Status),
		string(rec.Priority),
		rec.DueDate,
		rec.Progress,
		rec.UserID,
		rec.CreatedBy,
		rec.ProjectID,
		nullTime(rec.TaskCreatedAt),
		nullTime(rec.TaskUpdatedAt),
		rec.DeletedBy,
		string(rec.TaskType),
		nullTime(rec.DeletedAt),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// An earlier attempt already stored this record.
		return r.get(ctx, id)
	}
	return saved, err
}

func (r *deletedTaskRepository) get(ctx context.Context, id string) (*domain.DeletedTaskRecord, error) {
	return scanDeletedTask(r.pool.QueryRow(ctx, `SELECT `+deletedTaskColumns+` FROM deleted_tasks WHERE id = $1`, id))
}

func (r *deletedTaskRepository) List(ctx context.Context, filter repository.AuditFilter) ([]domain.DeletedTaskRecord, error) {
	query, args := auditListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeletedTaskRecord
	for rows.Next() {
		rec, err := scanDeletedTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *deletedTaskRepository) Count(ctx context.Context, filter repository.CountFilter) (int64, error) {
	query, args := auditCountQuery(filter)
	var count int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// auditListQuery renders the audit listing, newest first, with the limit as the last argument.
func auditListQuery(filter repository.AuditFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.DeletedBy != "" {
		where.add("deleted_by = $%d", filter.DeletedBy)
	}
	if filter.TaskType != "" {
		where.add("task_type = $%d", string(filter.TaskType))
	}
	if filter.DateFrom != nil {
		where.add("deleted_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.add("deleted_at <= $%d", *filter.DateTo)
	}
	args := append(where.args, clampLimit(filter.Limit, 100, 500))

	query := `SELECT ` + deletedTaskColumns + ` FROM deleted_tasks ` + where.String() +
		` ORDER BY deleted_at DESC LIMIT $` + itoa(len(args))
	return query, args
}

func auditCountQuery(filter repository.CountFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.Since != nil {
		where.add("deleted_at >= $%d", *filter.Since)
	}
	if filter.TaskType != "" {
		where.add("task_type = $%d", string(filter.TaskType))
	}
	return `SELECT COUNT(*) FROM deleted_tasks ` + where.String(), where.args
}

func (r *deletedTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deleted_tasks`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDeletedTask(row pgx.Row) (*domain.DeletedTaskRecord, error) {
	var (
		rec      domain.DeletedTaskRecord
		status   string
		priority string
		taskType string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.OriginalTaskID,
		&rec.TaskName,
		&rec.Description,
		&status,
		&priority,
		&rec.DueDate,
		&rec.Progress,
		&rec.UserID,
		&rec.CreatedBy,
		&rec.ProjectID,
		&rec.TaskCreatedAt,
		&rec.TaskUpdatedAt,
		&rec.DeletedBy,
		&rec.DeletedAt,
		&taskType,
	); err != nil {
		return nil, err
	}
	rec.Status = domain.TaskStatus(status)
	rec.Priority = domain.TaskPriority(priority)
	rec.TaskType = domain.TaskType(taskType)
	return &rec, nil
}
