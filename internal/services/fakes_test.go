package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase"
)

var errBoom = errors.New("boom")

type memTasks struct {
	mu    sync.Mutex
	rows  []domain.Task
	lists int
}

func (m *memTasks) List(context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]domain.Task, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memTasks) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	row := *t
	return &row, nil
}

func (m *memTasks) Update(context.Context, string, domain.TaskPatch) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (m *memTasks) Delete(context.Context, string) error { return nil }

func (m *memTasks) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

type memNotifications struct {
	rows []domain.Notification
}

func (m *memNotifications) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	return n, nil
}

func (m *memNotifications) Delete(context.Context, string) error { return nil }

func (m *memNotifications) DeleteAllForUser(context.Context, string) (int64, error) { return 0, nil }

type memOverlay struct {
	mu        sync.Mutex
	hidden    map[string]bool
	hiddenErr error
}

func (o *memOverlay) DismissedIDs(context.Context, string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (o *memOverlay) AddDismissed(context.Context, string, ...string) error { return nil }

func (o *memOverlay) BadgeHidden(_ context.Context, userID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hiddenErr != nil {
		return false, o.hiddenErr
	}
	return o.hidden[userID], nil
}

func (o *memOverlay) SetBadgeHidden(_ context.Context, userID string, hidden bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hidden == nil {
		o.hidden = make(map[string]bool)
	}
	o.hidden[userID] = hidden
	return nil
}

// countingRealtime tracks open subscriptions per table/filter pair.
type countingRealtime struct {
	mu   sync.Mutex
	open map[string]int
	err  error
}

func newCountingRealtime() *countingRealtime {
	return &countingRealtime{open: make(map[string]int)}
}

func (c *countingRealtime) Subscribe(_ context.Context, table, filter string, _ usecase.EventHandler) (usecase.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	key := table + "|" + filter
	c.open[key]++
	return unsubscribe(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.open[key]--
		return nil
	}), nil
}

func (c *countingRealtime) active(table, filter string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[table+"|"+filter]
}

func (c *countingRealtime) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

type unsubscribe func() error

func (u unsubscribe) Close() error { return u() }

// memRecords mirrors the audit table: inserts are idempotent on the record id. lostAcks
// makes that many inserts commit and still report an error, as a timed-out round trip does.
type memRecords struct {
	mu       sync.Mutex
	inserted []domain.DeletedTaskRecord
	err      error
	lostAcks int
}

func (m *memRecords) Insert(_ context.Context, rec *domain.DeletedTaskRecord) (*domain.DeletedTaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	saved := *rec
	if saved.ID == "" {
		saved.ID = fmt.Sprintf("generated-%d", len(m.inserted)+1)
	}
	exists := false
	for _, row := range m.inserted {
		if row.ID == saved.ID {
			exists = true
			break
		}
	}
	if !exists {
		m.inserted = append(m.inserted, saved)
	}
	if m.lostAcks > 0 {
		m.lostAcks--
		return nil, errBoom
	}
	return &saved, nil
}

func (m *memRecords) rowsFor(taskID string) []domain.DeletedTaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DeletedTaskRecord
	for _, row := range m.inserted {
		if row.OriginalTaskID == taskID {
			out = append(out, row)
		}
	}
	return out
}

func (m *memRecords) List(context.Context, repository.AuditFilter) ([]domain.DeletedTaskRecord, error) {
	return nil, nil
}

func (m *memRecords) Count(context.Context, repository.CountFilter) (int64, error) { return 0, nil }

func (m *memRecords) DeleteAll(context.Context) (int64, error) { return 0, nil }

type staticHealth bool

func (h staticHealth) IsOnline() bool { return bool(h) }
