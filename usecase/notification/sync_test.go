package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/usecase"
)

const filterU1 = "user_id=eq.u1"

func notif(id string, read bool) domain.Notification {
	return domain.Notification{ID: id, UserID: "u1", Title: "title " + id, IsRead: read}
}

func notificationIDs(items []domain.Notification) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

func newSync(t *testing.T, repo *memNotifications, store *memOverlay, rt usecase.Realtime) *Sync {
	t.Helper()
	s := NewSync(repo, NewOverlay(store, "u1"), rt, "u1", nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitDeleted(t *testing.T, repo *memNotifications) string {
	t.Helper()
	select {
	case id := <-repo.deleted:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("remote delete was not attempted")
		return ""
	}
}

func TestSync_StartsIdleAndBecomesReady(t *testing.T) {
	s := newSync(t, newMemNotifications(notif("n1", false)), newMemOverlay(), nil)
	assert.Equal(t, "idle", s.View().State)

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", s.View().State)
}

func TestSync_FetchAllCountsUnread(t *testing.T) {
	repo := newMemNotifications(notif("n1", false), notif("n2", true), notif("n3", false),
		domain.Notification{ID: "other", UserID: "u2"})
	s := newSync(t, repo, newMemOverlay(), nil)

	items, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, notificationIDs(items))
	assert.Equal(t, 2, s.UnreadCount())
}

func TestSync_DismissedStaysHiddenAcrossFetches(t *testing.T) {
	repo := newMemNotifications(notif("n1", false), notif("n2", false))
	repo.deleteErr = errBoom // the server copy survives
	store := newMemOverlay()
	s := newSync(t, repo, store, nil)

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Dismiss(context.Background(), "n1"))
	assert.Equal(t, "n1", waitDeleted(t, repo))

	items, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, notificationIDs(items))
	assert.Equal(t, 1, s.UnreadCount())

	persisted, err := store.DismissedIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, persisted, "n1")
}

func TestSync_DismissalSurvivesRestart(t *testing.T) {
	repo := newMemNotifications(notif("n1", false), notif("n2", false))
	repo.deleteErr = errBoom
	store := newMemOverlay()

	first := newSync(t, repo, store, nil)
	require.NoError(t, first.Dismiss(context.Background(), "n1"))
	waitDeleted(t, repo)
	require.NoError(t, first.Close())

	second := newSync(t, repo, store, nil)
	items, err := second.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, notificationIDs(items))
}

func TestSync_DismissTwiceHasNoFurtherEffect(t *testing.T) {
	repo := newMemNotifications(notif("n1", false))
	s := newSync(t, repo, newMemOverlay(), nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Dismiss(context.Background(), "n1"))
	waitDeleted(t, repo)
	require.NoError(t, s.Dismiss(context.Background(), "n1"))

	select {
	case id := <-repo.deleted:
		t.Fatalf("second dismiss issued another delete for %s", id)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, s.View().Notifications)
}

func TestSync_DismissRejectsEmptyID(t *testing.T) {
	s := newSync(t, newMemNotifications(), newMemOverlay(), nil)
	assert.ErrorIs(t, s.Dismiss(context.Background(), ""), domain.ErrInvalidPayload)
}

func TestSync_DismissReportsPersistenceFailureButStillHides(t *testing.T) {
	repo := newMemNotifications(notif("n1", false))
	store := newMemOverlay()
	store.addErr = errBoom
	s := newSync(t, repo, store, nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	err = s.Dismiss(context.Background(), "n1")
	assert.ErrorIs(t, err, errBoom)
	waitDeleted(t, repo)
	assert.Empty(t, s.View().Notifications)
}

func TestSync_FetchFailureKeepsLastGoodState(t *testing.T) {
	repo := newMemNotifications(notif("n1", false))
	s := newSync(t, repo, newMemOverlay(), nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	repo.mu.Lock()
	repo.listErr = errBoom
	repo.mu.Unlock()

	_, err = s.FetchAll(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteIO))

	view := s.View()
	assert.Equal(t, []string{"n1"}, notificationIDs(view.Notifications))
	assert.Equal(t, 1, view.UnreadCount)
	assert.Equal(t, "ready", view.State)
	assert.NotEmpty(t, view.LastError)

	repo.mu.Lock()
	repo.listErr = nil
	repo.mu.Unlock()
	_, err = s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.View().LastError)
}

func TestSync_DismissAll(t *testing.T) {
	repo := newMemNotifications(notif("n1", false), notif("n2", true))
	store := newMemOverlay()
	s := newSync(t, repo, store, nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.DismissAll(context.Background()))
	view := s.View()
	assert.Empty(t, view.Notifications)
	assert.Zero(t, view.UnreadCount)

	persisted, err := store.DismissedIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, persisted, "n1")
	assert.Contains(t, persisted, "n2")
}

func TestSync_DismissAllFailureLeavesStateIntact(t *testing.T) {
	repo := newMemNotifications(notif("n1", false), notif("n2", false))
	repo.bulkErr = errBoom
	s := newSync(t, repo, newMemOverlay(), nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	err = s.DismissAll(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteIO))
	assert.Equal(t, []string{"n1", "n2"}, notificationIDs(s.View().Notifications))
	assert.Equal(t, 2, s.UnreadCount())
}

func TestSync_LiveInsertMerge(t *testing.T) {
	rt := newFakeRealtime()
	repo := newMemNotifications(notif("n1", false))
	repo.deleteErr = errBoom
	s := newSync(t, repo, newMemOverlay(), rt)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	require.True(t, rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{
		Type: domain.ChangeInsert, New: rowJSON(notif("n2", false)),
	}))
	assert.Equal(t, []string{"n2", "n1"}, notificationIDs(s.View().Notifications))
	assert.Equal(t, 2, s.UnreadCount())

	// Already visible.
	rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{Type: domain.ChangeInsert, New: rowJSON(notif("n2", false))})
	assert.Len(t, s.View().Notifications, 2)

	// Dismissed ids never come back, even through a live insert.
	require.NoError(t, s.Dismiss(context.Background(), "n1"))
	waitDeleted(t, repo)
	rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{Type: domain.ChangeInsert, New: rowJSON(notif("n1", false))})
	assert.Equal(t, []string{"n2"}, notificationIDs(s.View().Notifications))

	// Rows addressed to someone else are ignored.
	rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{
		Type: domain.ChangeInsert, New: rowJSON(domain.Notification{ID: "x", UserID: "u2"}),
	})
	assert.Equal(t, []string{"n2"}, notificationIDs(s.View().Notifications))
}

func TestSync_LiveUpdateTriggersRefetch(t *testing.T) {
	rt := newFakeRealtime()
	repo := newMemNotifications(notif("n1", false))
	s := newSync(t, repo, newMemOverlay(), rt)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	repo.mu.Lock()
	repo.rows[0].IsRead = true
	calls := repo.listCalls
	repo.mu.Unlock()

	rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{
		Type: domain.ChangeUpdate, New: rowJSON(domain.Notification{ID: "n1", UserID: "u1", IsRead: true}),
	})

	repo.mu.Lock()
	assert.Equal(t, calls+1, repo.listCalls)
	repo.mu.Unlock()
	assert.Zero(t, s.UnreadCount())

	repo.mu.Lock()
	repo.rows = nil
	repo.mu.Unlock()
	rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{Type: domain.ChangeDelete, Old: rowJSON(notif("n1", true))})
	assert.Empty(t, s.View().Notifications)
}

func TestSync_CloseStopsDelivery(t *testing.T) {
	rt := newFakeRealtime()
	s := newSync(t, newMemNotifications(), newMemOverlay(), rt)
	require.NoError(t, s.Close())
	assert.False(t, rt.emit(domain.TableNotifications, filterU1, domain.ChangeEvent{Type: domain.ChangeInsert}))

	s.applyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, New: rowJSON(notif("late", false))})
	assert.Empty(t, s.View().Notifications)
}
