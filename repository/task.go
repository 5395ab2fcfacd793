package repository

import (
	"context"

	"github.com/fastygo/taskboard/domain"
)

type TaskRepository interface {
	// List returns every task ordered by creation time, newest first.
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
}
