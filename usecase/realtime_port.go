package usecase

import (
	"context"
	"fmt"

	"github.com/fastygo/taskboard/domain"
)

// EventHandler receives change events on the subscription's delivery goroutine.
type EventHandler func(event domain.ChangeEvent)

// Subscription is an open realtime stream. Close stops delivery.
type Subscription interface {
	Close() error
}

// Realtime abstracts the publish/subscribe channel so stores stay transport-agnostic.
type Realtime interface {
	Subscribe(ctx context.Context, table, filter string, handler EventHandler) (Subscription, error)
}

// EqFilter renders the column=eq.value predicate understood by Realtime.
func EqFilter(column, value string) string {
	return fmt.Sprintf("%s=eq.%s", column, value)
}
