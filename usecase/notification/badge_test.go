package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDeriveBadge(t *testing.T) {
	tests := []struct {
		name     string
		unread   int
		filtered *int
		hidden   bool
		hiddenAt int
		want     BadgeState
	}{
		{name: "nothing unread", unread: 0, want: BadgeState{Visible: false, Count: 0}},
		{name: "unread shown", unread: 3, want: BadgeState{Visible: true, Count: 3}},
		{name: "hidden at same count", unread: 3, hidden: true, hiddenAt: 3, want: BadgeState{Visible: false, Count: 3}},
		{name: "hidden but more arrived", unread: 4, hidden: true, hiddenAt: 3, want: BadgeState{Visible: true, Count: 4}},
		{name: "filtered count wins", unread: 5, filtered: intPtr(2), want: BadgeState{Visible: true, Count: 2}},
		{name: "filtered zero still visible", unread: 5, filtered: intPtr(0), want: BadgeState{Visible: true, Count: 0}},
		{name: "filtered without unread", unread: 0, filtered: intPtr(2), want: BadgeState{Visible: false, Count: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBadge(tt.unread, tt.filtered, tt.hidden, tt.hiddenAt))
		})
	}
}

func TestBadge_HideUntilMoreArrive(t *testing.T) {
	ctx := context.Background()
	store := newMemOverlay()
	b := NewBadge(store, "u1", nil)

	assert.True(t, b.State(ctx, 2, nil).Visible)
	require.NoError(t, b.Hide(ctx, 2))

	hidden, err := store.BadgeHidden(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, hidden)

	assert.False(t, b.State(ctx, 2, nil).Visible)
	assert.False(t, b.State(ctx, 1, nil).Visible)

	state := b.State(ctx, 3, nil)
	assert.True(t, state.Visible)
	assert.Equal(t, 3, state.Count)

	hidden, err = store.BadgeHidden(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, hidden)

	// Once cleared the badge keeps following unread.
	assert.True(t, b.State(ctx, 1, nil).Visible)
}

func TestBadge_LoadUsesCurrentUnreadAsBaseline(t *testing.T) {
	ctx := context.Background()
	store := newMemOverlay()
	require.NoError(t, store.SetBadgeHidden(ctx, "u1", true))

	b := NewBadge(store, "u1", nil)
	require.NoError(t, b.Load(ctx, 4))

	assert.False(t, b.State(ctx, 4, nil).Visible)
	assert.True(t, b.State(ctx, 5, nil).Visible)
}

func TestBadge_WithoutStore(t *testing.T) {
	ctx := context.Background()
	b := NewBadge(nil, "u1", nil)
	require.NoError(t, b.Load(ctx, 1))
	require.NoError(t, b.Hide(ctx, 1))
	assert.False(t, b.State(ctx, 1, nil).Visible)
}
