package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager stops registered components in reverse order of registration, so a component
// is always stopped before the ones it was built on.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	hooks   []hook
	stopped bool
	stopErr error
}

// New creates a lifecycle manager with the desired timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a shutdown hook.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// RegisterCloser adds a hook for components whose Close takes no context.
func (m *Manager) RegisterCloser(name string, closeFn func() error) {
	if closeFn == nil {
		return
	}
	m.Register(name, func(context.Context) error { return closeFn() })
}

// Shutdown runs every hook once, sharing one deadline. Later calls return the first result.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return m.stopErr
	}
	m.stopped = true

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var result error
	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]
		started := time.Now()
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name), zap.Duration("took", time.Since(started)))
	}
	m.stopErr = result
	return result
}

// Listen invokes cancel when SIGTERM or SIGINT arrives.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		sig := <-sigCh
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()
}
