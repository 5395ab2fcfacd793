package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/usecase"
)

var errBoom = errors.New("boom")

type memNotifications struct {
	mu         sync.Mutex
	rows       []domain.Notification
	listErr    error
	deleteErr  error
	bulkErr    error
	listCalls  int
	deleted    chan string
	bulkCalled int
}

func newMemNotifications(rows ...domain.Notification) *memNotifications {
	return &memNotifications{rows: rows, deleted: make(chan string, 16)}
}

func (m *memNotifications) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *n
	if row.ID == "" {
		row.ID = "n-new"
	}
	row.CreatedAt = time.Now()
	m.rows = append([]domain.Notification{row}, m.rows...)
	return &row, nil
}

func (m *memNotifications) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	err := m.deleteErr
	if err == nil {
		for i := range m.rows {
			if m.rows[i].ID == id {
				m.rows = append(m.rows[:i], m.rows[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	m.deleted <- id
	return err
}

func (m *memNotifications) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalled++
	if m.bulkErr != nil {
		return 0, m.bulkErr
	}
	kept := m.rows[:0]
	var n int64
	for _, row := range m.rows {
		if row.UserID == userID {
			n++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return n, nil
}

// memOverlay is an in-memory OverlayStore.
type memOverlay struct {
	mu        sync.Mutex
	dismissed map[string]map[string]struct{}
	hidden    map[string]bool
	addErr    error
}

func newMemOverlay() *memOverlay {
	return &memOverlay{dismissed: map[string]map[string]struct{}{}, hidden: map[string]bool{}}
}

func (o *memOverlay) DismissedIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]struct{})
	for id := range o.dismissed[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (o *memOverlay) AddDismissed(_ context.Context, userID string, ids ...string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.addErr != nil {
		return o.addErr
	}
	set, ok := o.dismissed[userID]
	if !ok {
		set = make(map[string]struct{})
		o.dismissed[userID] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return nil
}

func (o *memOverlay) BadgeHidden(_ context.Context, userID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hidden[userID], nil
}

func (o *memOverlay) SetBadgeHidden(_ context.Context, userID string, hidden bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hidden[userID] = hidden
	return nil
}

type fakeRealtime struct {
	mu       sync.Mutex
	handlers map[string]usecase.EventHandler
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{handlers: make(map[string]usecase.EventHandler)}
}

func (f *fakeRealtime) Subscribe(_ context.Context, table, filter string, h usecase.EventHandler) (usecase.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := table + "|" + filter
	f.handlers[key] = h
	return closeFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, key)
		return nil
	}), nil
}

func (f *fakeRealtime) emit(table, filter string, ev domain.ChangeEvent) bool {
	f.mu.Lock()
	h, ok := f.handlers[table+"|"+filter]
	f.mu.Unlock()
	if ok {
		h(ev)
	}
	return ok
}

type closeFunc func() error

func (c closeFunc) Close() error { return c() }

func rowJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
