package task

import (
	"sort"
	"strings"

	"github.com/fastygo/taskboard/domain"
)

// SortDirection is an explicit due-date ordering requested by the user.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Criteria are AND-combined; empty fields do not constrain.
type Criteria struct {
	Status    string
	Priority  string
	ProjectID string
	// UserID narrows to one assignee for "my tasks" views.
	UserID string
	// AssignedTo and Assignee both match the assignee; Assignee is the older name.
	AssignedTo  string
	Assignee    string
	Search      string
	DueDateSort SortDirection
}

// Filter returns the tasks matching every criterion, ordered. It never mutates tasks.
//
// Without DueDateSort the result is grouped by status class (open work, then completed,
// then everything else) and each class is ordered by due date, earliest first. With
// DueDateSort the status classes are ignored and only the due date orders the result.
// Tasks without a due date always come after dated ones.
func Filter(tasks []domain.Task, c Criteria) []domain.Task {
	search := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Status != "" && string(t.Status) != c.Status {
			continue
		}
		if c.Priority != "" && string(t.Priority) != c.Priority {
			continue
		}
		if c.AssignedTo != "" && t.UserID != c.AssignedTo {
			continue
		}
		if c.Assignee != "" && t.UserID != c.Assignee {
			continue
		}
		if c.ProjectID != "" && (t.ProjectID == nil || *t.ProjectID != c.ProjectID) {
			continue
		}
		if c.UserID != "" && t.UserID != c.UserID {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		out = append(out, t)
	}

	switch c.DueDateSort {
	case SortAsc, SortDesc:
		desc := c.DueDateSort == SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			return dueBefore(out[i], out[j], desc)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			ci, cj := statusClass(out[i].Status), statusClass(out[j].Status)
			if ci != cj {
				return ci < cj
			}
			return dueBefore(out[i], out[j], false)
		})
	}
	return out
}

func matchesSearch(t domain.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.TaskName), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

func statusClass(s domain.TaskStatus) int {
	switch {
	case s.Actionable():
		return 1
	case s == domain.StatusCompleted:
		return 2
	default:
		return 3
	}
}

// dueBefore orders by due date; undated tasks sort last in either direction.
func dueBefore(a, b domain.Task, desc bool) bool {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return false
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	}
	if desc {
		return a.DueDate.After(*b.DueDate)
	}
	return a.DueDate.Before(*b.DueDate)
}
