package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

// DefaultChannelPrefix prefixes every Redis channel name.
const DefaultChannelPrefix = "estimator"

// Publisher is the subset of *redis.Client the forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisForwarder republishes every engine event as JSON on a Redis channel
// named "<prefix>:<kind>".
type RedisForwarder struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewRedisClient connects to addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisForwarder creates a forwarder. An empty prefix uses DefaultChannelPrefix.
func NewRedisForwarder(pub Publisher, prefix string, logger *slog.Logger) *RedisForwarder {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisForwarder{pub: pub, prefix: prefix, logger: logger}
}

// Attach subscribes the forwarder to every event kind.
func (f *RedisForwarder) Attach(bus *events.Bus) (func(), error) {
	return bus.Subscribe("redis-forward", f.Handle)
}

// Channel returns the channel an event of kind k is published on.
func (f *RedisForwarder) Channel(k events.Kind) string {
	return f.prefix + ":" + string(k)
}

// Handle publishes e.
func (f *RedisForwarder) Handle(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis forward: encode %s event: %w", e.Kind, err)
	}
	channel := f.Channel(e.Kind)
	receivers, err := f.pub.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("redis forward %s: %w", channel, err)
	}
	f.logger.Debug("event forwarded", "channel", channel, "seq", e.Seq, "receivers", receivers)
	return nil
}
