package transport

import (
	"strings"
	"time"

	"github.com/fastygo/taskboard/domain"
)

type LoginRequest struct {
	ActorID  string `json:"actor_id"`
	Password string `json:"password"`
	TTL      int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	TTL int `json:"ttl_seconds"`
}

// TaskCreateRequest is the body of POST /api/v1/tasks. DueDate accepts YYYY-MM-DD or RFC 3339.
type TaskCreateRequest struct {
	TaskName    string  `json:"task_name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     string  `json:"due_date"`
	Progress    int     `json:"progress"`
	UserID      string  `json:"user_id"`
	ProjectID   *string `json:"project_id"`
}

func (r TaskCreateRequest) ToTask() (domain.Task, error) {
	due, err := parseDate(r.DueDate)
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		TaskName:    strings.TrimSpace(r.TaskName),
		Description: r.Description,
		Status:      domain.TaskStatus(r.Status),
		Priority:    domain.TaskPriority(r.Priority),
		DueDate:     due,
		Progress:    r.Progress,
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
	}, nil
}

// TaskPatchRequest is the body of PATCH /api/v1/tasks/{id}. Absent fields stay untouched.
type TaskPatchRequest struct {
	TaskName    *string `json:"task_name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Progress    *int    `json:"progress"`
	UserID      *string `json:"user_id"`
	ProjectID   *string `json:"project_id"`
}

func (r TaskPatchRequest) ToPatch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		TaskName:    r.TaskName,
		Description: r.Description,
		Progress:    r.Progress,
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
	}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		patch.Status = &s
	}
	if r.Priority != nil {
		p := domain.TaskPriority(*r.Priority)
		patch.Priority = &p
	}
	if r.DueDate != nil {
		due, err := parseDate(*r.DueDate)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.DueDate = due
	}
	return patch, nil
}

type NotificationRequest struct {
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	Type        string  `json:"type"`
	RelatedID   *string `json:"related_id"`
	RelatedType *string `json:"related_type"`
}

func (r NotificationRequest) ToNotification() domain.Notification {
	return domain.Notification{
		UserID:      r.UserID,
		Title:       r.Title,
		Message:     r.Message,
		Type:        r.Type,
		RelatedID:   r.RelatedID,
		RelatedType: r.RelatedType,
	}
}

type PurgeRequest struct {
	Password string `json:"password"`
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "due_date must be YYYY-MM-DD or RFC 3339", err)
	}
	return &t, nil
}
