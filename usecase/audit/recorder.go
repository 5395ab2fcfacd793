package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Credentials resolves actors and checks their stored credential.
type Credentials interface {
	Lookup(ctx context.Context, id string) (*domain.Actor, error)
	Verify(ctx context.Context, actorID, plaintext string) (bool, error)
}

// FailureHook is told about every audit snapshot that could not be written.
type FailureHook func(domain.AuditFailure)

type Option func(*Recorder)

// WithClock overrides the time source used for the rolling statistics windows.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func WithFailureHook(hook FailureHook) Option {
	return func(r *Recorder) {
		r.onFailure = hook
	}
}

// Recorder keeps the append-only trail of deleted tasks.
type Recorder struct {
	records   repository.DeletedTaskRepository
	creds     Credentials
	logger    *zap.Logger
	now       func() time.Time
	onFailure FailureHook
}

func New(records repository.DeletedTaskRepository, creds Credentials, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		records: records,
		creds:   creds,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record snapshots task into the audit table. It never blocks the caller's delete: on
// failure it returns a nil record and an AUDIT_WRITE_FAILED error for the caller to report.
func (r *Recorder) Record(ctx context.Context, task domain.Task, deletedBy string, taskType domain.TaskType) (*domain.DeletedTaskRecord, error) {
	if !taskType.Valid() {
		taskType = domain.TaskTypeRegular
	}
	snapshot := domain.SnapshotTask(task, deletedBy, taskType)
	// The id is fixed before the first attempt so a retried or replayed write of the same
	// deletion lands on the same row.
	snapshot.ID = uuid.NewString()

	saved, err := r.records.Insert(ctx, &snapshot)
	if err != nil {
		failure := domain.AuditFailure{
			TaskID:    task.ID,
			DeletedBy: deletedBy,
			TaskType:  taskType,
			Record:    snapshot,
			Err:       err,
			At:        r.now(),
		}
		r.logger.Error("audit snapshot not recorded",
			zap.String("task_id", task.ID),
			zap.String("deleted_by", deletedBy),
			zap.String("task_type", string(taskType)),
			zap.Error(err))
		if r.onFailure != nil {
			r.onFailure(failure)
		}
		return nil, domain.WrapError(domain.ErrCodeAuditWriteFailed, "audit snapshot not recorded", err)
	}
	return saved, nil
}

// List returns audit records newest first.
func (r *Recorder) List(ctx context.Context, filter repository.AuditFilter) ([]domain.DeletedTaskRecord, error) {
	records, err := r.records.List(ctx, filter)
	if err != nil {
		return nil, domain.RemoteIO("list deleted tasks", err)
	}
	return records, nil
}

// Stats counts deletions over fixed rolling windows. The by-type breakdown covers the
// 30-day window, not the lifetime total.
func (r *Recorder) Stats(ctx context.Context) (domain.AuditStats, error) {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := now.AddDate(0, 0, -7)
	month := now.AddDate(0, 0, -30)

	var stats domain.AuditStats
	counts := []struct {
		filter repository.CountFilter
		dst    *int64
	}{
		{repository.CountFilter{}, &stats.TotalDeleted},
		{repository.CountFilter{Since: &today}, &stats.DeletedToday},
		{repository.CountFilter{Since: &week}, &stats.DeletedThisWeek},
		{repository.CountFilter{Since: &month}, &stats.DeletedThisMonth},
		{repository.CountFilter{Since: &month, TaskType: domain.TaskTypeRegular}, &stats.ByType.Regular},
		{repository.CountFilter{Since: &month, TaskType: domain.TaskTypeDaily}, &stats.ByType.Daily},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := r.records.Count(gctx, c.filter)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AuditStats{}, domain.RemoteIO("count deleted tasks", err)
	}
	return stats, nil
}

// Purge deletes every audit record. Only an admin who re-enters their own credential may do it.
func (r *Recorder) Purge(ctx context.Context, actorID, password string) (int64, error) {
	if actorID == "" {
		return 0, domain.ErrUnauthenticated
	}
	if r.creds == nil {
		return 0, domain.NewError(domain.ErrCodeInternal, "credential verification unavailable")
	}

	actor, err := r.creds.Lookup(ctx, actorID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return 0, domain.ErrNotAdmin
		}
		return 0, domain.RemoteIO("resolve actor", err)
	}
	if !actor.IsAdmin() {
		r.logger.Warn("audit purge refused for non-admin", zap.String("actor_id", actorID), zap.String("kind", string(actor.Kind)))
		return 0, domain.ErrNotAdmin
	}

	ok, err := r.creds.Verify(ctx, actorID, password)
	if err != nil {
		return 0, domain.RemoteIO("verify credential", err)
	}
	if !ok {
		r.logger.Warn("audit purge refused: bad credential", zap.String("actor_id", actorID))
		return 0, domain.ErrBadCredential
	}

	purged, err := r.records.DeleteAll(ctx)
	if err != nil {
		return 0, domain.RemoteIO("purge deleted tasks", err)
	}
	r.logger.Info("audit trail purged", zap.String("actor_id", actorID), zap.Int64("records", purged))
	return purged, nil
}
