package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/usecase"
)

// Publisher fans a change event out to the subscribers of one table/filter pair.
type Publisher interface {
	Publish(ctx context.Context, table, filter string, event domain.ChangeEvent) error
}

// DefaultRoutes maps each watched table to the column its subscribers filter on.
var DefaultRoutes = map[string]string{
	domain.TableTasks:         "user_id",
	domain.TableNotifications: "user_id",
}

// ChangeBridge listens for row-change notifications from Postgres and republishes
// them on the realtime channel, one message per affected filter value.
type ChangeBridge struct {
	pool      *pgxpool.Pool
	publisher Publisher
	channel   string
	routes    map[string]string
	retry     time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChangeBridge(pool *pgxpool.Pool, publisher Publisher, channel string, retry time.Duration, logger *zap.Logger) *ChangeBridge {
	if channel == "" {
		channel = "row_changes"
	}
	if retry <= 0 {
		retry = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeBridge{
		pool:      pool,
		publisher: publisher,
		channel:   channel,
		routes:    DefaultRoutes,
		retry:     retry,
		logger:    logger.With(zap.String("component", "change_bridge")),
	}
}

// Start runs the listen loop in the background until Stop is called.
func (b *ChangeBridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(runCtx, b.done)
}

// Stop ends the listen loop and waits for it to exit or for ctx to expire.
func (b *ChangeBridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChangeBridge) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("row change listener interrupted", zap.Error(err), zap.Duration("retry_in", b.retry))
		select {
		case <-time.After(b.retry):
		case <-ctx.Done():
			return
		}
	}
}

func (b *ChangeBridge) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return err
	}
	b.logger.Info("listening for row changes", zap.String("channel", b.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// The connection is mid-wait; drop it instead of returning it to the pool.
				_ = conn.Conn().Close(context.Background())
			}
			return err
		}
		b.dispatch(ctx, []byte(n.Payload))
	}
}

func (b *ChangeBridge) dispatch(ctx context.Context, payload []byte) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn("dropping undecodable row change", zap.Error(err))
		return
	}
	filters, err := Route(event, b.routes)
	if err != nil {
		b.logger.Debug("row change not routed", zap.String("table", event.Table), zap.Error(err))
		return
	}
	for _, filter := range filters {
		if err := b.publisher.Publish(ctx, event.Table, filter, event); err != nil {
			b.logger.Warn("row change not published",
				zap.String("table", event.Table),
				zap.String("filter", filter),
				zap.Error(err))
		}
	}
}

var errUnrouted = errors.New("table has no route")

// Route returns the equality filters an event must be published under. An UPDATE that
// moves a row between owners reaches both the old and the new owner.
func Route(event domain.ChangeEvent, routes map[string]string) ([]string, error) {
	column, ok := routes[event.Table]
	if !ok {
		return nil, errUnrouted
	}

	var filters []string
	seen := make(map[string]struct{}, 2)
	for _, raw := range []json.RawMessage{event.New, event.Old} {
		value, err := columnValue(raw, column)
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		filters = append(filters, usecase.EqFilter(column, value))
	}
	return filters, nil
}

func columnValue(raw json.RawMessage, column string) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var row map[string]interface{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return "", err
	}
	switch v := row[column].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}
