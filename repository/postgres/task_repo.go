package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

const taskColumns = `id, task_name, description, status, priority, due_date, progress, user_id, created_by, project_id, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	id := task.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO tasks (id, task_name, description, status, priority, due_date, progress, user_id, created_by, project_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query,
		id,
		task.TaskName,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.DueDate,
		task.Progress,
		task.UserID,
		task.CreatedBy,
		task.ProjectID,
	)
	return scanTask(row)
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	query, args, err := taskUpdateQuery(id, patch)
	if err != nil {
		return nil, err
	}
	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// taskUpdateQuery sets only the patched columns; the task id is the last argument.
func taskUpdateQuery(id string, patch domain.TaskPatch) (string, []interface{}, error) {
	var set setBuilder
	if patch.TaskName != nil {
		set.add("task_name", *patch.TaskName)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set.add("priority", string(*patch.Priority))
	}
	if patch.DueDate != nil {
		set.add("due_date", *patch.DueDate)
	}
	if patch.Progress != nil {
		set.add("progress", *patch.Progress)
	}
	if patch.UserID != nil {
		set.add("user_id", *patch.UserID)
	}
	if patch.ProjectID != nil {
		set.add("project_id", *patch.ProjectID)
	}
	if set.empty() {
		return "", nil, domain.ErrEmptyPatch
	}

	args := append(set.args, id)
	query := fmt.Sprintf(`
	UPDATE tasks
	SET %s, updated_at = NOW()
	WHERE id = $%d
	RETURNING %s`, set.String(), len(args), taskColumns)
	return query, args, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task     domain.Task
		status   string
		priority string
	)

	if err := row.Scan(
		&task.ID,
		&task.TaskName,
		&task.Description,
		&status,
		&priority,
		&task.DueDate,
		&task.Progress,
		&task.UserID,
		&task.CreatedBy,
		&task.ProjectID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	return &task, nil
}
