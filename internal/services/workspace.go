package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase"
	"github.com/fastygo/taskboard/usecase/notification"
	"github.com/fastygo/taskboard/usecase/task"
)

// Workspace is the live state of one signed-in actor: their task cache, visible
// notifications and unread badge, each kept current by a realtime subscription.
type Workspace struct {
	ActorID       string
	Tasks         *task.Store
	Notifications *notification.Sync
	Badge         *notification.Badge

	mu       sync.Mutex
	lastUsed time.Time
	live     bool
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// start opens both subscriptions. It is retried by the resync job until it succeeds.
func (w *Workspace) start(ctx context.Context) error {
	w.mu.Lock()
	live := w.live
	w.mu.Unlock()
	if live {
		return nil
	}
	if err := w.Tasks.Start(ctx); err != nil {
		return err
	}
	if err := w.Notifications.Start(ctx); err != nil {
		return err
	}
	w.mu.Lock()
	w.live = true
	w.mu.Unlock()
	return nil
}

// Close stops realtime delivery for the workspace.
func (w *Workspace) Close() error {
	return errors.Join(w.Tasks.Close(), w.Notifications.Close())
}

// WorkspaceDeps are the collaborators shared by every workspace.
type WorkspaceDeps struct {
	Tasks         task.Deps
	Notifications repository.NotificationRepository
	Overlay       repository.OverlayStore
	Realtime      usecase.Realtime
	Logger        *zap.Logger
}

type WorkspaceConfig struct {
	IdleTTL        time.Duration
	ResyncInterval time.Duration
}

// Registry opens workspaces on first use and closes them once idle. A cron schedule
// resyncs open workspaces so events lost while a subscription was down are recovered.
type Registry struct {
	deps   WorkspaceDeps
	cfg    WorkspaceConfig
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	workspaces map[string]*Workspace
	closed     bool

	group singleflight.Group
	cron  *cron.Cron
}

func NewRegistry(deps WorkspaceDeps, cfg WorkspaceConfig) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Tasks.Realtime = deps.Realtime
	deps.Tasks.Logger = logger

	r := &Registry{
		deps:       deps,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "workspaces")),
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
		cron:       cron.New(cron.WithSeconds()),
	}

	_, _ = r.cron.AddFunc(fmt.Sprintf("@every %ds", int(cfg.ResyncInterval.Seconds())), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ResyncInterval)
		defer cancel()
		r.Resync(ctx)
	})
	_, _ = r.cron.AddFunc("@every 1m", func() {
		r.EvictIdle()
	})

	return r
}

// Get returns the actor's workspace, opening and loading it on first use.
func (r *Registry) Get(ctx context.Context, actorID string) (*Workspace, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthenticated
	}

	r.mu.RLock()
	ws, ok := r.workspaces[actorID]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, domain.NewError(domain.ErrCodeInternal, "workspace registry closed")
	}
	if ok {
		ws.touch(r.now())
		return ws, nil
	}

	v, err, _ := r.group.Do(actorID, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.workspaces[actorID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}
		opened := r.open(context.WithoutCancel(ctx), actorID)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			_ = opened.Close()
			return nil, domain.NewError(domain.ErrCodeInternal, "workspace registry closed")
		}
		r.workspaces[actorID] = opened
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	ws = v.(*Workspace)
	ws.touch(r.now())
	return ws, nil
}

// open builds and loads a workspace. Load failures are logged and left for the resync job,
// so the caller still gets a usable workspace.
func (r *Registry) open(ctx context.Context, actorID string) *Workspace {
	logger := r.logger.With(zap.String("actor_id", actorID))
	overlay := notification.NewOverlay(r.deps.Overlay, actorID)
	ws := &Workspace{
		ActorID:       actorID,
		Tasks:         task.New(r.deps.Tasks, actorID),
		Notifications: notification.NewSync(r.deps.Notifications, overlay, r.deps.Realtime, actorID, r.deps.Logger),
		Badge:         notification.NewBadge(r.deps.Overlay, actorID, r.deps.Logger),
		lastUsed:      r.now(),
	}

	if err := ws.start(ctx); err != nil {
		logger.Warn("realtime subscriptions not opened", zap.Error(err))
	}
	r.load(ctx, ws)
	if err := ws.Badge.Load(ctx, ws.Notifications.UnreadCount()); err != nil {
		logger.Warn("badge flag not loaded", zap.Error(err))
	}
	logger.Info("workspace opened")
	return ws
}

func (r *Registry) load(ctx context.Context, ws *Workspace) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := ws.Tasks.FetchAll(gctx)
		return err
	})
	g.Go(func() error {
		_, err := ws.Notifications.FetchAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Warn("workspace load incomplete", zap.String("actor_id", ws.ActorID), zap.Error(err))
	}
}

// Resync reopens missing subscriptions and reloads every open workspace.
func (r *Registry) Resync(ctx context.Context) {
	for _, ws := range r.snapshot() {
		if err := ws.start(ctx); err != nil {
			r.logger.Warn("realtime subscriptions still down", zap.String("actor_id", ws.ActorID), zap.Error(err))
		}
		r.load(ctx, ws)
	}
}

// EvictIdle closes workspaces unused for longer than the idle TTL and returns how many.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	var idle []*Workspace
	r.mu.Lock()
	for id, ws := range r.workspaces {
		if ws.idleSince().Before(cutoff) {
			idle = append(idle, ws)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range idle {
		if err := ws.Close(); err != nil {
			r.logger.Warn("idle workspace close failed", zap.String("actor_id", ws.ActorID), zap.Error(err))
		}
		r.logger.Info("workspace evicted", zap.String("actor_id", ws.ActorID))
	}
	return len(idle)
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

func (r *Registry) Start() {
	r.cron.Start()
	r.logger.Info("workspace registry started")
}

// Close stops the schedules and closes every workspace.
func (r *Registry) Close(ctx context.Context) error {
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}

	r.mu.Lock()
	r.closed = true
	open := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	var result error
	for _, ws := range open {
		result = errors.Join(result, ws.Close())
	}
	return result
}

func (r *Registry) snapshot() []*Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		out = append(out, ws)
	}
	return out
}
