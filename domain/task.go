package domain

import "time"

// TaskStatus is free-form on the wire; the constants are the ones the dashboard knows about.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusNotStarted TaskStatus = "not_started"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
	StatusCancelled  TaskStatus = "cancelled"
)

// Actionable reports whether the status belongs to open work.
func (s TaskStatus) Actionable() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusNotStarted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Task represents a team task row. User is attached client-side and never persisted.
type Task struct {
	ID          string        `json:"id"`
	TaskName    string        `json:"task_name"`
	Description *string       `json:"description,omitempty"`
	Status      TaskStatus    `json:"status"`
	Priority    TaskPriority  `json:"priority"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Progress    int           `json:"progress"`
	UserID      string        `json:"user_id"`
	CreatedBy   string        `json:"created_by"`
	ProjectID   *string       `json:"project_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	User        *ActorSummary `json:"user"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	TaskName    *string       `json:"task_name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Progress    *int          `json:"progress,omitempty"`
	UserID      *string       `json:"user_id,omitempty"`
	ProjectID   *string       `json:"project_id,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.TaskName == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.Progress == nil && p.UserID == nil && p.ProjectID == nil
}

// Validate checks the fields that have range constraints.
func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Progress != nil && !validProgress(*p.Progress) {
		return ErrInvalidProgress
	}
	return nil
}

// Validate checks a task about to be inserted.
func (t *Task) Validate() error {
	if t == nil || t.TaskName == "" {
		return ErrInvalidPayload
	}
	if !validProgress(t.Progress) {
		return ErrInvalidProgress
	}
	return nil
}

func validProgress(p int) bool {
	return p >= 0 && p <= 100
}
