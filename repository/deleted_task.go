package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskboard/domain"
)

type AuditFilter struct {
	DeletedBy string
	TaskType  domain.TaskType
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

// CountFilter narrows a count query. Zero values mean "no restriction".
type CountFilter struct {
	Since    *time.Time
	TaskType domain.TaskType
}

type DeletedTaskRepository interface {
	Insert(ctx context.Context, record *domain.DeletedTaskRecord) (*domain.DeletedTaskRecord, error)
	List(ctx context.Context, filter AuditFilter) ([]domain.DeletedTaskRecord, error)
	Count(ctx context.Context, filter CountFilter) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
