package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverse(t *testing.T) {
	m := New(0, nil)
	var order []string
	m.Register("postgres", func(context.Context) error {
		order = append(order, "postgres")
		return nil
	})
	m.RegisterCloser("overlay", func() error {
		order = append(order, "overlay")
		return nil
	})
	m.Register("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "overlay", "postgres"}, order)
}

func TestShutdownJoinsErrorsAndRunsOnce(t *testing.T) {
	m := New(0, nil)
	errA := errors.New("a")
	errB := errors.New("b")
	calls := 0
	m.Register("a", func(context.Context) error { calls++; return errA })
	m.Register("b", func(context.Context) error { calls++; return errB })

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	again := m.Shutdown(context.Background())
	assert.Equal(t, err, again)
	assert.Equal(t, 2, calls)
}
