package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SubscriptionManager owns at most one realtime subscription for a store.
// Open tears down the previous subscription before the next one starts, and
// Close is effective once; later calls are no-ops.
type SubscriptionManager struct {
	realtime Realtime
	table    string
	logger   *zap.Logger

	mu     sync.Mutex
	sub    Subscription
	closed bool
}

func NewSubscriptionManager(realtime Realtime, table string, logger *zap.Logger) *SubscriptionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionManager{
		realtime: realtime,
		table:    table,
		logger:   logger,
	}
}

// Open subscribes to the manager's table with filter, replacing any current subscription.
func (m *SubscriptionManager) Open(ctx context.Context, filter string, handler EventHandler) error {
	if m == nil || m.realtime == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.teardownLocked()

	sub, err := m.realtime.Subscribe(ctx, m.table, filter, handler)
	if err != nil {
		return err
	}
	m.sub = sub
	m.logger.Debug("realtime subscription opened", zap.String("table", m.table), zap.String("filter", filter))
	return nil
}

// Active reports whether a subscription is currently held.
func (m *SubscriptionManager) Active() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub != nil
}

// Close releases the subscription. Only the first call has an effect.
func (m *SubscriptionManager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.teardownLocked()
}

func (m *SubscriptionManager) teardownLocked() error {
	if m.sub == nil {
		return nil
	}
	err := m.sub.Close()
	m.sub = nil
	if err != nil {
		m.logger.Warn("realtime unsubscribe failed", zap.String("table", m.table), zap.Error(err))
	}
	return err
}
