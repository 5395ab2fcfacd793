package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/infrastructure/buffer"
	"github.com/fastygo/taskboard/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// OutboxConfig controls how frequently pending audit snapshots are replayed.
type OutboxConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// AuditOutbox keeps audit snapshots whose write failed and replays them into the
// deleted tasks table once the database answers again.
type AuditOutbox struct {
	store   *buffer.Store
	monitor ConnectionHealth
	records repository.DeletedTaskRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     OutboxConfig
}

func NewAuditOutbox(
	store *buffer.Store,
	monitor ConnectionHealth,
	records repository.DeletedTaskRepository,
	logger *zap.Logger,
	cfg OutboxConfig,
) *AuditOutbox {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &AuditOutbox{
		store:   store,
		monitor: monitor,
		records: records,
		logger:  logger.With(zap.String("component", "audit_outbox")),
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = o.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := o.Drain(ctx); err != nil {
			o.logger.Error("audit outbox drain failed", zap.Error(err))
		}
	})

	return o
}

// Capture queues the snapshot of a failed audit write. It has the shape of an audit
// failure hook.
func (o *AuditOutbox) Capture(failure domain.AuditFailure) {
	if o == nil || o.store == nil {
		return
	}
	rec := failure.Record
	if rec.DeletedAt.IsZero() {
		rec.DeletedAt = failure.At
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		o.logger.Error("audit snapshot not queued", zap.String("task_id", failure.TaskID), zap.Error(err))
		return
	}
	if err := o.store.Enqueue(buffer.Item{Kind: buffer.KindDeletedTask, Data: payload}); err != nil {
		o.logger.Error("audit snapshot not queued", zap.String("task_id", failure.TaskID), zap.Error(err))
		return
	}
	o.logger.Info("audit snapshot queued for replay", zap.String("task_id", failure.TaskID))
}

func (o *AuditOutbox) Start() {
	if o == nil || o.cron == nil {
		return
	}
	o.cron.Start()
	o.logger.Info("audit outbox started")
}

func (o *AuditOutbox) Stop(ctx context.Context) {
	if o == nil || o.cron == nil {
		return
	}
	stopCtx := o.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	o.logger.Info("audit outbox stopped")
}

// Drain replays one batch synchronously. Items that keep failing are dropped after
// MaxRetries attempts.
func (o *AuditOutbox) Drain(ctx context.Context) error {
	if o == nil || o.store == nil {
		return nil
	}
	if o.monitor != nil && !o.monitor.IsOnline() {
		o.logger.Debug("skipping audit outbox drain (offline)")
		return nil
	}

	items, err := o.store.Batch(o.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := o.replay(ctx, item); err != nil {
			item.Retries++
			o.logger.Warn("audit replay failed",
				zap.String("item_id", item.ID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			if item.Retries >= o.cfg.MaxRetries {
				o.logger.Error("dropping audit snapshot (max retries reached)", zap.String("item_id", item.ID), zap.ByteString("record", item.Data))
				_ = o.store.Remove(item)
				continue
			}
			if err := o.store.Replace(item); err != nil {
				o.logger.Error("failed to update outbox item", zap.Error(err))
			}
			continue
		}

		if err := o.store.Remove(item); err != nil {
			o.logger.Warn("failed to purge replayed outbox item", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of snapshots waiting for replay.
func (o *AuditOutbox) Size() int {
	if o == nil || o.store == nil {
		return 0
	}
	size, err := o.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (o *AuditOutbox) replay(ctx context.Context, item buffer.Item) error {
	switch item.Kind {
	case buffer.KindDeletedTask:
		var rec domain.DeletedTaskRecord
		if err := json.Unmarshal(item.Data, &rec); err != nil {
			return err
		}
		_, err := o.records.Insert(ctx, &rec)
		return err
	default:
		return fmt.Errorf("unsupported outbox kind %s", item.Kind)
	}
}
