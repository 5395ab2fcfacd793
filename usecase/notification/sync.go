package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// backgroundTimeout bounds work not tied to a caller: dismiss deletes and event-driven reloads.
const backgroundTimeout = 10 * time.Second

// View is a consistent snapshot of the visible notifications.
type View struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	State         string                `json:"state"`
	LastError     string                `json:"last_error,omitempty"`
}

// Sync keeps one user's visible notifications in step with the row store, the realtime
// channel and the local dismissal overlay.
type Sync struct {
	repo    repository.NotificationRepository
	overlay *Overlay
	subs    *usecase.SubscriptionManager
	logger  *zap.Logger
	userID  string

	mu      sync.RWMutex
	state   State
	items   []domain.Notification
	unread  int
	lastErr error
	closed  bool

	background sync.WaitGroup
}

func NewSync(repo repository.NotificationRepository, overlay *Overlay, realtime usecase.Realtime, userID string, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("store", "notifications"), zap.String("user_id", userID))
	return &Sync{
		repo:    repo,
		overlay: overlay,
		subs:    usecase.NewSubscriptionManager(realtime, domain.TableNotifications, logger),
		logger:  logger,
		userID:  userID,
	}
}

// Start loads the overlay and opens the realtime subscription for the user.
func (s *Sync) Start(ctx context.Context) error {
	if err := s.overlay.Load(ctx); err != nil {
		s.logger.Warn("dismissal overlay not loaded", zap.Error(err))
	}
	return s.subs.Open(ctx, usecase.EqFilter("user_id", s.userID), s.applyEvent)
}

// Close stops realtime delivery and waits for background deletes to finish.
func (s *Sync) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.subs.Close()
	s.background.Wait()
	return err
}

// FetchAll reloads the user's notifications newest first, minus dismissed ids.
// A failed fetch keeps the last good collection and records the error.
func (s *Sync) FetchAll(ctx context.Context) ([]domain.Notification, error) {
	s.mu.Lock()
	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	rows, err := s.repo.ListByUser(ctx, s.userID)
	if err != nil {
		err = domain.RemoteIO("fetch notifications", err)
		s.mu.Lock()
		s.state = prev
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn("fetch notifications failed", zap.Error(err))
		return nil, err
	}

	// Filtering under the lock keeps a concurrent Dismiss from being undone by this fetch.
	s.mu.Lock()
	visible := make([]domain.Notification, 0, len(rows))
	for _, n := range rows {
		if s.overlay.Has(n.ID) {
			continue
		}
		visible = append(visible, n)
	}
	s.items = visible
	s.unread = countUnread(visible)
	s.state = StateReady
	s.lastErr = nil
	s.mu.Unlock()
	return cloneNotifications(visible), nil
}

// Dismiss hides a notification for this user. The local decision is final: the id goes
// into the overlay and the server delete runs in the background without being awaited.
// The returned error only reports a failure to persist the overlay.
func (s *Sync) Dismiss(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidPayload
	}
	if s.overlay.Has(id) {
		return nil
	}

	s.mu.Lock()
	s.overlay.remember(id)
	if idx := indexOfNotification(s.items, id); idx >= 0 {
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
		s.unread = countUnread(s.items)
	}
	s.state = StateReady
	s.mu.Unlock()

	persistErr := s.overlay.persist(ctx, id)
	if persistErr != nil {
		s.logger.Warn("dismissal not persisted", zap.String("notification_id", id), zap.Error(persistErr))
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
		defer cancel()
		if err := s.repo.Delete(delCtx, id); err != nil {
			s.logger.Info("remote delete of dismissed notification failed", zap.String("notification_id", id), zap.Error(err))
		}
	}()

	return persistErr
}

// DismissAll deletes every notification of the user on the server. Only a successful
// delete clears the visible collection.
func (s *Sync) DismissAll(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for _, n := range s.items {
		ids = append(ids, n.ID)
	}
	s.mu.RUnlock()

	if _, err := s.repo.DeleteAllForUser(ctx, s.userID); err != nil {
		err = domain.RemoteIO("delete all notifications", err)
		s.logger.Warn("bulk dismissal failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.overlay.remember(ids...)
	s.items = nil
	s.unread = 0
	s.state = StateReady
	s.mu.Unlock()

	if err := s.overlay.persist(ctx, ids...); err != nil {
		s.logger.Warn("bulk dismissal not persisted", zap.Error(err))
	}
	return nil
}

// View returns the visible collection and its unread count.
func (s *Sync) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Notifications: cloneNotifications(s.items),
		UnreadCount:   s.unread,
		State:         s.state.String(),
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	return v
}

func (s *Sync) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// applyEvent merges one realtime change. Inserts are prepended unless dismissed; updates
// and deletes trigger a full reload.
func (s *Sync) applyEvent(ev domain.ChangeEvent) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	switch ev.Type {
	case domain.ChangeInsert:
		var n domain.Notification
		ok, err := ev.DecodeNew(&n)
		if err != nil || !ok || n.ID == "" {
			s.logger.Warn("dropping malformed notification event", zap.Error(err))
			return
		}
		if n.UserID != "" && n.UserID != s.userID {
			return
		}
		s.mu.Lock()
		if !s.overlay.Has(n.ID) && indexOfNotification(s.items, n.ID) < 0 {
			s.items = append([]domain.Notification{n}, s.items...)
			s.unread = countUnread(s.items)
			s.state = StateReady
		}
		s.mu.Unlock()

	case domain.ChangeUpdate, domain.ChangeDelete:
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		_, _ = s.FetchAll(ctx)
	}
}

func countUnread(items []domain.Notification) int {
	n := 0
	for _, item := range items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

func indexOfNotification(items []domain.Notification, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneNotifications(items []domain.Notification) []domain.Notification {
	out := make([]domain.Notification, len(items))
	copy(out, items)
	return out
}
