package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	boltclient "github.com/fastygo/taskboard/internal/infrastructure/bolt"
	"github.com/fastygo/taskboard/internal/infrastructure/buffer"
	boltrepo "github.com/fastygo/taskboard/repository/bolt"
)

// Monitor polls the backing stores and keeps the last observed status.
type Monitor struct {
	pg      *pgxpool.Pool
	redis   *redislib.Client
	overlay *bolt.DB
	outbox  *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(pg *pgxpool.Pool, redis *redislib.Client, overlay *bolt.DB, outbox *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		overlay:  overlay,
		outbox:   outbox,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the remote stores answered the last health check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL && m.status.Redis
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	overlayOK, overlayKeys := m.checkOverlay()
	status := Status{
		PostgreSQL:    m.checkPostgres(),
		Redis:         m.checkRedis(),
		Overlay:       overlayOK,
		OverlayKeys:   overlayKeys,
		PendingAudits: m.pendingAudits(),
		LastCheck:     time.Now(),
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && (prev.PostgreSQL != status.PostgreSQL || prev.Redis != status.Redis) {
		m.logger.Info("connection status changed",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	}
}

func (m *Monitor) checkPostgres() bool {
	if m.pg == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkOverlay() (bool, int) {
	if m.overlay == nil {
		return false, 0
	}
	keys, err := boltclient.KeyCount(m.overlay, boltrepo.OverlayBucket)
	if err != nil {
		m.logger.Warn("overlay check failed", zap.Error(err))
		return false, 0
	}
	return true, keys
}

func (m *Monitor) pendingAudits() int {
	if m.outbox == nil {
		return 0
	}
	size, err := m.outbox.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return 0
	}
	return size
}
