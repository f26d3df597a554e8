package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/pkg/logger"
	"github.com/wonny/futuquant/pkg/redis"
)

// Throttle decides whether an alert key may fire within a window.
// The manager falls back to its in-process map when none is set.
type Throttle interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
}

// RedisThrottle shares the throttle window across processes: a voter
// and a scheduler pointing at the same Redis will not double-send.
type RedisThrottle struct {
	client *redis.Client
	prefix string
	logger *logger.Logger
}

// NewRedisThrottle creates a redis-backed throttle
func NewRedisThrottle(client *redis.Client, log *logger.Logger) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		prefix: "quant:alerts",
		logger: log,
	}
}

// Allow claims the key for the window. The first claimant wins; every
// other call inside the window is throttled. Redis errors fail open so
// a broken Redis degrades to duplicate alerts, not silence.
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) bool {
	if !t.client.Enabled() {
		return true
	}

	fullKey := fmt.Sprintf("%s:%s", t.prefix, key)
	ok, err := t.client.Redis().SetNX(ctx, fullKey, 1, window).Result()
	if err != nil {
		t.logger.WithError(err).Warn("Alert throttle check failed, allowing")
		return true
	}
	return ok
}
