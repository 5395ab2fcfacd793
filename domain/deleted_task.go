package domain

import "time"

type TaskType string

const (
	TaskTypeRegular TaskType = "regular"
	TaskTypeDaily   TaskType = "daily"
)

func (t TaskType) Valid() bool {
	return t == TaskTypeRegular || t == TaskTypeDaily
}

// DeletedTaskRecord is the audit snapshot written before a task row is removed.
// It holds copies of the task fields, never pointers into the live task.
type DeletedTaskRecord struct {
	ID             string       `json:"id"`
	OriginalTaskID string       `json:"original_task_id"`
	TaskName       string       `json:"task_name"`
	Description    *string      `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	Progress       int          `json:"progress"`
	UserID         string       `json:"user_id"`
	CreatedBy      string       `json:"created_by"`
	ProjectID      *string      `json:"project_id,omitempty"`
	TaskCreatedAt  time.Time    `json:"task_created_at"`
	TaskUpdatedAt  time.Time    `json:"task_updated_at"`
	DeletedBy      string       `json:"deleted_by"`
	DeletedAt      time.Time    `json:"deleted_at"`
	TaskType       TaskType     `json:"task_type"`
}

// SnapshotTask copies every persisted field of the task into a new record.
func SnapshotTask(task Task, deletedBy string, taskType TaskType) DeletedTaskRecord {
	return DeletedTaskRecord{
		OriginalTaskID: task.ID,
		TaskName:       task.TaskName,
		Description:    cloneString(task.Description),
		Status:         task.Status,
		Priority:       task.Priority,
		DueDate:        cloneTime(task.DueDate),
		Progress:       task.Progress,
		UserID:         task.UserID,
		CreatedBy:      task.CreatedBy,
		ProjectID:      cloneString(task.ProjectID),
		TaskCreatedAt:  task.CreatedAt,
		TaskUpdatedAt:  task.UpdatedAt,
		DeletedBy:      deletedBy,
		TaskType:       taskType,
	}
}

// AuditStats are the rolling deletion counters. ByType covers the 30-day window only,
// while TotalDeleted is lifetime.
type AuditStats struct {
	TotalDeleted     int64        `json:"total_deleted"`
	DeletedToday     int64        `json:"deleted_today"`
	DeletedThisWeek  int64        `json:"deleted_this_week"`
	DeletedThisMonth int64        `json:"deleted_this_month"`
	ByType           TypeCounters `json:"by_type"`
}

type TypeCounters struct {
	Regular int64 `json:"regular"`
	Daily   int64 `json:"daily"`
}

// AuditFailure describes an audit write that did not land. Record carries the snapshot
// so it can be replayed later.
type AuditFailure struct {
	TaskID    string            `json:"task_id"`
	DeletedBy string            `json:"deleted_by"`
	TaskType  TaskType          `json:"task_type"`
	Record    DeletedTaskRecord `json:"record"`
	Err       error             `json:"-"`
	At        time.Time         `json:"at"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
