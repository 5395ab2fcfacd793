package task

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase"
)

// ActorDirectory resolves assignee identities for enrichment.
type ActorDirectory interface {
	ResolveActive(ctx context.Context, ids []string) (map[string]*domain.ActorSummary, error)
}

// Auditor snapshots a task before it is deleted.
type Auditor interface {
	Record(ctx context.Context, task domain.Task, deletedBy string, taskType domain.TaskType) (*domain.DeletedTaskRecord, error)
}

type Deps struct {
	Tasks    repository.TaskRepository
	Actors   ActorDirectory
	Auditor  Auditor
	Realtime usecase.Realtime
	Logger   *zap.Logger
}

// DeleteOutcome reports what happened to the audit snapshot of a deleted task.
type DeleteOutcome struct {
	TaskID   string                    `json:"task_id"`
	Audit    *domain.DeletedTaskRecord `json:"audit,omitempty"`
	AuditErr error                     `json:"-"`
}

// Store is the write-through cache of tasks for one actor's workspace.
type Store struct {
	tasks   repository.TaskRepository
	actors  ActorDirectory
	auditor Auditor
	subs    *usecase.SubscriptionManager
	logger  *zap.Logger
	actorID string

	mu     sync.RWMutex
	items  []domain.Task
	closed bool
}

func New(deps Deps, actorID string) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("store", "tasks"), zap.String("actor_id", actorID))
	return &Store{
		tasks:   deps.Tasks,
		actors:  deps.Actors,
		auditor: deps.Auditor,
		subs:    usecase.NewSubscriptionManager(deps.Realtime, domain.TableTasks, logger),
		logger:  logger,
		actorID: actorID,
	}
}

// Start opens the realtime subscription scoped to the current actor.
func (s *Store) Start(ctx context.Context) error {
	if s.actorID == "" {
		return nil
	}
	return s.subs.Open(ctx, usecase.EqFilter("user_id", s.actorID), s.applyEvent)
}

// Close tears down the realtime subscription. Events arriving afterwards are ignored.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.subs.Close()
}

// FetchAll reloads every task, newest first, and attaches assignee identities.
// On failure the previous collection stays in place.
func (s *Store) FetchAll(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		s.logger.Warn("fetch tasks failed", zap.Error(err))
		return nil, domain.RemoteIO("fetch tasks", err)
	}
	s.enrich(ctx, tasks)

	s.mu.Lock()
	s.items = tasks
	s.mu.Unlock()
	return cloneTasks(tasks), nil
}

// Add inserts task and puts the stored row at the head of the collection.
func (s *Store) Add(ctx context.Context, task domain.Task) (domain.Task, error) {
	if task.CreatedBy == "" {
		task.CreatedBy = s.actorID
	}
	if task.UserID == "" {
		task.UserID = s.actorID
	}
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return domain.Task{}, err
	}

	created, err := s.tasks.Create(ctx, &task)
	if err != nil {
		return domain.Task{}, domain.RemoteIO("create task", err)
	}
	single := []domain.Task{*created}
	s.enrich(ctx, single)

	s.mu.Lock()
	if idx := indexOf(s.items, single[0].ID); idx >= 0 {
		s.items[idx] = single[0]
	} else {
		s.items = append([]domain.Task{single[0]}, s.items...)
	}
	s.mu.Unlock()
	return single[0], nil
}

// Update applies a partial update and replaces the cached entry in place.
func (s *Store) Update(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return domain.Task{}, domain.RemoteIO("update task", err)
	}
	single := []domain.Task{*updated}
	s.enrich(ctx, single)

	s.mu.Lock()
	if idx := indexOf(s.items, id); idx >= 0 {
		s.items[idx] = single[0]
	}
	s.mu.Unlock()
	return single[0], nil
}

// Delete removes a task the store already knows about. The snapshot comes from the
// cached row rather than a fresh read, so a row removed remotely in the meantime is
// still audited as the actor saw it. A failed audit write is reported in the outcome
// and does not stop the delete.
func (s *Store) Delete(ctx context.Context, id string) (DeleteOutcome, error) {
	outcome := DeleteOutcome{TaskID: id}
	if s.actorID == "" {
		return outcome, domain.ErrUnauthenticated
	}

	s.mu.RLock()
	idx := indexOf(s.items, id)
	var snapshot domain.Task
	if idx >= 0 {
		snapshot = s.items[idx]
	}
	s.mu.RUnlock()
	if idx < 0 {
		return outcome, domain.ErrTaskNotFound
	}

	if s.auditor != nil {
		rec, err := s.auditor.Record(ctx, snapshot, s.actorID, domain.TaskTypeRegular)
		outcome.Audit = rec
		if err != nil {
			outcome.AuditErr = err
			s.logger.Warn("deleting task without audit snapshot", zap.String("task_id", id), zap.Error(err))
		}
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			s.remove(id)
			return outcome, err
		}
		return outcome, domain.RemoteIO("delete task", err)
	}
	s.remove(id)
	return outcome, nil
}

// Tasks filters and orders the cached collection.
func (s *Store) Tasks(c Criteria) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.items, c)
}

// Snapshot returns a copy of the cached collection in its stored order.
func (s *Store) Snapshot() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.items)
}

// applyEvent merges a realtime change. Events are applied in delivery order, so a late
// UPDATE may overwrite a newer local write.
func (s *Store) applyEvent(ev domain.ChangeEvent) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	switch ev.Type {
	case domain.ChangeInsert, domain.ChangeUpdate:
		var row domain.Task
		ok, err := ev.DecodeNew(&row)
		if err != nil || !ok || row.ID == "" {
			s.logger.Warn("dropping malformed task event", zap.String("type", string(ev.Type)), zap.Error(err))
			return
		}
		single := []domain.Task{row}
		s.enrich(context.Background(), single)

		s.mu.Lock()
		if idx := indexOf(s.items, row.ID); idx >= 0 {
			if ev.Type == domain.ChangeUpdate {
				s.items[idx] = single[0]
			}
		} else {
			s.items = append([]domain.Task{single[0]}, s.items...)
		}
		s.mu.Unlock()

	case domain.ChangeDelete:
		var old domain.Task
		ok, err := ev.DecodeOld(&old)
		if err != nil || !ok || old.ID == "" {
			s.logger.Warn("dropping malformed task delete event", zap.Error(err))
			return
		}
		s.remove(old.ID)
	}
}

// enrich attaches assignee summaries in place. Failures leave User nil.
func (s *Store) enrich(ctx context.Context, tasks []domain.Task) {
	for i := range tasks {
		tasks[i].User = nil
	}
	if s.actors == nil || len(tasks) == 0 {
		return
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.UserID)
	}
	byID, err := s.actors.ResolveActive(ctx, ids)
	if err != nil {
		s.logger.Warn("actor enrichment failed", zap.Error(err))
		return
	}
	for i := range tasks {
		tasks[i].User = byID[tasks[i].UserID]
	}
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := indexOf(s.items, id); idx >= 0 {
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	}
}

func indexOf(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}
