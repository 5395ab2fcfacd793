package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

var errBoom = errors.New("boom")

type memRecords struct {
	mu        sync.Mutex
	rows      []domain.DeletedTaskRecord
	insertErr error
	countErr  error
	listErr   error
	lastList  repository.AuditFilter
	clock     func() time.Time
}

func (m *memRecords) Insert(_ context.Context, rec *domain.DeletedTaskRecord) (*domain.DeletedTaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	saved := *rec
	if saved.ID == "" {
		saved.ID = "rec"
	}
	if saved.DeletedAt.IsZero() && m.clock != nil {
		saved.DeletedAt = m.clock()
	}
	m.rows = append(m.rows, saved)
	return &saved, nil
}

func (m *memRecords) List(_ context.Context, f repository.AuditFilter) ([]domain.DeletedTaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.DeletedTaskRecord
	for _, r := range m.rows {
		if f.DeletedBy != "" && r.DeletedBy != f.DeletedBy {
			continue
		}
		if f.TaskType != "" && r.TaskType != f.TaskType {
			continue
		}
		if f.DateFrom != nil && r.DeletedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && r.DeletedAt.After(*f.DateTo) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memRecords) Count(_ context.Context, f repository.CountFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, r := range m.rows {
		if f.Since != nil && r.DeletedAt.Before(*f.Since) {
			continue
		}
		if f.TaskType != "" && r.TaskType != f.TaskType {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memRecords) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.rows))
	m.rows = nil
	return n, nil
}

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) Lookup(ctx context.Context, id string) (*domain.Actor, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Actor)
	return a, args.Error(1)
}

func (m *mockCredentials) Verify(ctx context.Context, actorID, plaintext string) (bool, error) {
	args := m.Called(ctx, actorID, plaintext)
	return args.Bool(0), args.Error(1)
}

func TestRecord_SnapshotIsAnIndependentCopy(t *testing.T) {
	repo := &memRecords{}
	r := New(repo, nil, nil)

	desc := "original"
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	task := domain.Task{
		ID: "t1", TaskName: "Task", Description: &desc, Status: domain.StatusPending,
		Priority: domain.PriorityUrgent, DueDate: &due, Progress: 10, UserID: "u1", CreatedBy: "u2",
	}

	rec, err := r.Record(context.Background(), task, "a1", domain.TaskTypeDaily)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "t1", rec.OriginalTaskID)
	assert.Equal(t, domain.TaskTypeDaily, rec.TaskType)
	assert.Equal(t, "a1", rec.DeletedBy)
	assert.Equal(t, domain.PriorityUrgent, rec.Priority)

	desc = "mutated"
	due = due.AddDate(1, 0, 0)
	assert.Equal(t, "original", *repo.rows[0].Description)
	assert.Equal(t, 2024, repo.rows[0].DueDate.Year())
}

func TestRecord_UnknownTypeFallsBackToRegular(t *testing.T) {
	repo := &memRecords{}
	rec, err := New(repo, nil, nil).Record(context.Background(), domain.Task{ID: "t1"}, "a1", "weekly")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeRegular, rec.TaskType)
}

func TestRecord_FailureIsReportedNotRaised(t *testing.T) {
	repo := &memRecords{insertErr: errBoom}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var failures []domain.AuditFailure
	r := New(repo, nil, nil,
		WithClock(func() time.Time { return at }),
		WithFailureHook(func(f domain.AuditFailure) { failures = append(failures, f) }))

	rec, err := r.Record(context.Background(), domain.Task{ID: "t1", TaskName: "x"}, "a1", domain.TaskTypeRegular)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeAuditWriteFailed))
	assert.ErrorIs(t, err, errBoom)

	require.Len(t, failures, 1)
	assert.Equal(t, "t1", failures[0].TaskID)
	assert.Equal(t, "a1", failures[0].DeletedBy)
	assert.Equal(t, at, failures[0].At)
	assert.Equal(t, "x", failures[0].Record.TaskName)
	assert.ErrorIs(t, failures[0].Err, errBoom)
}

func TestRecord_AssignsStableRecordID(t *testing.T) {
	repo := &memRecords{insertErr: errBoom}
	var failures []domain.AuditFailure
	r := New(repo, nil, nil, WithFailureHook(func(f domain.AuditFailure) { failures = append(failures, f) }))

	_, err := r.Record(context.Background(), domain.Task{ID: "t1", TaskName: "x"}, "a1", domain.TaskTypeRegular)
	require.Error(t, err)
	require.Len(t, failures, 1)
	assert.NotEmpty(t, failures[0].Record.ID)

	repo.insertErr = nil
	first, err := r.Record(context.Background(), domain.Task{ID: "t1", TaskName: "x"}, "a1", domain.TaskTypeRegular)
	require.NoError(t, err)
	second, err := r.Record(context.Background(), domain.Task{ID: "t2", TaskName: "y"}, "a1", domain.TaskTypeRegular)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, failures[0].Record.ID, first.ID)
}

func listFixture() *memRecords {
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	return &memRecords{rows: []domain.DeletedTaskRecord{
		{ID: "r1", OriginalTaskID: "t1", DeletedBy: "a1", TaskType: domain.TaskTypeRegular, DeletedAt: base},
		{ID: "r2", OriginalTaskID: "t2", DeletedBy: "a2", TaskType: domain.TaskTypeDaily, DeletedAt: base.Add(24 * time.Hour)},
		{ID: "r3", OriginalTaskID: "t3", DeletedBy: "a1", TaskType: domain.TaskTypeDaily, DeletedAt: base.Add(48 * time.Hour)},
		{ID: "r4", OriginalTaskID: "t4", DeletedBy: "a1", TaskType: domain.TaskTypeRegular, DeletedAt: base.Add(72 * time.Hour)},
	}}
}

func recordIDs(recs []domain.DeletedTaskRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestList_NewestFirst(t *testing.T) {
	repo := listFixture()
	recs, err := New(repo, nil, nil).List(context.Background(), repository.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3", "r2", "r1"}, recordIDs(recs))
}

func TestList_PassesFiltersThrough(t *testing.T) {
	repo := listFixture()
	from := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
	filter := repository.AuditFilter{
		DeletedBy: "a1",
		TaskType:  domain.TaskTypeDaily,
		DateFrom:  &from,
		DateTo:    &to,
		Limit:     10,
	}

	recs, err := New(repo, nil, nil).List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, recordIDs(recs))
	assert.Equal(t, filter, repo.lastList)
}

func TestList_Limit(t *testing.T) {
	repo := listFixture()
	recs, err := New(repo, nil, nil).List(context.Background(), repository.AuditFilter{DeletedBy: "a1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3"}, recordIDs(recs))
}

func TestList_RepositoryFailureIsRemoteIO(t *testing.T) {
	repo := listFixture()
	repo.listErr = errBoom
	_, err := New(repo, nil, nil).List(context.Background(), repository.AuditFilter{})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteIO))
	assert.ErrorIs(t, err, errBoom)
}

func TestStats_RollingWindows(t *testing.T) {
	now := time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC)
	repo := &memRecords{rows: []domain.DeletedTaskRecord{
		{DeletedAt: now.Add(-1 * time.Hour), TaskType: domain.TaskTypeRegular},
		{DeletedAt: now.Add(-20 * time.Hour), TaskType: domain.TaskTypeDaily},
		{DeletedAt: now.AddDate(0, 0, -5), TaskType: domain.TaskTypeRegular},
		{DeletedAt: now.AddDate(0, 0, -20), TaskType: domain.TaskTypeDaily},
		{DeletedAt: now.AddDate(0, 0, -90), TaskType: domain.TaskTypeRegular},
		{DeletedAt: now.AddDate(-1, 0, 0), TaskType: domain.TaskTypeDaily},
	}}
	r := New(repo, nil, nil, WithClock(func() time.Time { return now }))

	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalDeleted)
	assert.Equal(t, int64(1), stats.DeletedToday)
	assert.Equal(t, int64(3), stats.DeletedThisWeek)
	assert.Equal(t, int64(4), stats.DeletedThisMonth)
	assert.Equal(t, int64(2), stats.ByType.Regular)
	assert.Equal(t, int64(2), stats.ByType.Daily)
}

func TestStats_CountFailure(t *testing.T) {
	r := New(&memRecords{countErr: errBoom}, nil, nil)
	_, err := r.Stats(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteIO))
}

func seeded() *memRecords {
	return &memRecords{rows: []domain.DeletedTaskRecord{{ID: "r1"}, {ID: "r2"}}}
}

func TestPurge_RequiresActor(t *testing.T) {
	repo := seeded()
	_, err := New(repo, &mockCredentials{}, nil).Purge(context.Background(), "", "pw")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Len(t, repo.rows, 2)
}

func TestPurge_NonAdminIsRefused(t *testing.T) {
	repo := seeded()
	creds := &mockCredentials{}
	creds.On("Lookup", mock.Anything, "m1").Return(&domain.Actor{ID: "m1", Kind: domain.ActorMember}, nil)

	_, err := New(repo, creds, nil).Purge(context.Background(), "m1", "pw")
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
	assert.Len(t, repo.rows, 2)
	creds.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestPurge_UnknownActorIsRefused(t *testing.T) {
	repo := seeded()
	creds := &mockCredentials{}
	creds.On("Lookup", mock.Anything, "x").Return(nil, domain.ErrActorNotFound)

	_, err := New(repo, creds, nil).Purge(context.Background(), "x", "pw")
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
	assert.Len(t, repo.rows, 2)
}

func TestPurge_WrongPasswordIsRefused(t *testing.T) {
	repo := seeded()
	creds := &mockCredentials{}
	creds.On("Lookup", mock.Anything, "adm").Return(&domain.Actor{ID: "adm", Kind: domain.ActorAdmin}, nil)
	creds.On("Verify", mock.Anything, "adm", "wrong").Return(false, nil)

	_, err := New(repo, creds, nil).Purge(context.Background(), "adm", "wrong")
	assert.ErrorIs(t, err, domain.ErrBadCredential)
	assert.Len(t, repo.rows, 2)
	creds.AssertExpectations(t)
}

func TestPurge_AdminWithCredentialDeletesEverything(t *testing.T) {
	repo := seeded()
	creds := &mockCredentials{}
	creds.On("Lookup", mock.Anything, "adm").Return(&domain.Actor{ID: "adm", Kind: domain.ActorAdmin}, nil)
	creds.On("Verify", mock.Anything, "adm", "secret").Return(true, nil)

	purged, err := New(repo, creds, nil).Purge(context.Background(), "adm", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	assert.Empty(t, repo.rows)
}

func TestPurge_VerifyErrorIsRemoteIO(t *testing.T) {
	repo := seeded()
	creds := &mockCredentials{}
	creds.On("Lookup", mock.Anything, "adm").Return(&domain.Actor{ID: "adm", Kind: domain.ActorAdmin}, nil)
	creds.On("Verify", mock.Anything, "adm", "secret").Return(false, errBoom)

	_, err := New(repo, creds, nil).Purge(context.Background(), "adm", "secret")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteIO))
	assert.Len(t, repo.rows, 2)
}
