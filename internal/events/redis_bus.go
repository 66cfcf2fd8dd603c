package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisChannel = "asi:events"

// RedisMirrorBus envuelve un Bus local y replica cada evento como JSON por
// redis pub/sub, para que el gateway de la UI consuma los eventos fuera del
// proceso. Las suscripciones locales siguen atendidas por el bus interno.
type RedisMirrorBus struct {
	inner   Bus
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisMirrorBus(inner Bus, rdb *redis.Client, channel string, logger *zap.Logger) *RedisMirrorBus {
	if channel == "" {
		channel = defaultRedisChannel
	}
	return &RedisMirrorBus{inner: inner, rdb: rdb, channel: channel, logger: logger}
}

func (b *RedisMirrorBus) Publish(ctx context.Context, evt Event) {
	b.inner.Publish(ctx, evt)

	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		b.logger.Warn("event marshal failed", zap.Error(err), zap.String("event", evt.Name))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(pubCtx, b.channel, raw).Err(); err != nil {
		b.logger.Warn("event publish to redis failed", zap.Error(err), zap.String("event", evt.Name))
	}
}

func (b *RedisMirrorBus) Subscribe(names ...string) (<-chan Event, func()) {
	return b.inner.Subscribe(names...)
}
