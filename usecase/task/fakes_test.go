package task

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

type memTaskRepo struct {
	mu        sync.Mutex
	rows      []domain.Task
	seq       int
	listErr   error
	deleteErr error
}

func (r *memTaskRepo) List(context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Task, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *memTaskRepo) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	row := *t
	if row.ID == "" {
		row.ID = "new-" + string(rune('0'+r.seq))
	}
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	r.rows = append([]domain.Task{row}, r.rows...)
	return &row, nil
}

func (r *memTaskRepo) Update(_ context.Context, id string, p domain.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		if p.TaskName != nil {
			r.rows[i].TaskName = *p.TaskName
		}
		if p.Status != nil {
			r.rows[i].Status = *p.Status
		}
		if p.Progress != nil {
			r.rows[i].Progress = *p.Progress
		}
		if p.UserID != nil {
			r.rows[i].UserID = *p.UserID
		}
		row := r.rows[i]
		return &row, nil
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

type stubActors struct {
	byID map[string]*domain.ActorSummary
	err  error
}

func (s stubActors) ResolveActive(_ context.Context, ids []string) (map[string]*domain.ActorSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]*domain.ActorSummary)
	for _, id := range ids {
		if a, ok := s.byID[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

type fakeRealtime struct {
	mu       sync.Mutex
	handlers map[string]usecase.EventHandler
	closed   int
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
		f.closed++
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
