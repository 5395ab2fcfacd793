package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/usecase"
)

// Channel carries row-change events over Redis pub/sub. One Redis channel exists per
// table and equality filter, e.g. "realtime:notifications:user_id=eq.42".
type Channel struct {
	client *goRedis.Client
	prefix string
	logger *zap.Logger
}

func NewChannel(client *goRedis.Client, prefix string, logger *zap.Logger) *Channel {
	if prefix == "" {
		prefix = "realtime"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{client: client, prefix: prefix, logger: logger}
}

// Name returns the Redis channel for table and filter.
func (c *Channel) Name(table, filter string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, table, filter)
}

// Publish delivers event to every subscriber of table/filter.
func (c *Channel) Publish(ctx context.Context, table, filter string, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.Name(table, filter), payload).Err()
}

// Subscribe confirms the subscription with Redis before returning, so events published
// after Subscribe returns are delivered.
func (c *Channel) Subscribe(ctx context.Context, table, filter string, handler usecase.EventHandler) (usecase.Subscription, error) {
	name := c.Name(table, filter)
	ps := c.client.Subscribe(ctx, name)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	sub := &subscription{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Warn("dropping undecodable change event", zap.String("channel", name), zap.Error(err))
				continue
			}
			if event.Table == "" {
				event.Table = table
			}
			handler(event)
		}
	}()
	return sub, nil
}

type subscription struct {
	ps   *goRedis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}

var _ usecase.Realtime = (*Channel)(nil)
