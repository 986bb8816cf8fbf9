package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	keyPrefix      = "tfg:chart:"
	redisOpTimeout = 500 * time.Millisecond
)

// RedisChartCache shares rendered charts between server replicas. Redis
// errors count as misses. After three consecutive failures the breaker opens
// and Redis is not called until the breaker timeout elapses.
type RedisChartCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewRedisChartCache connects to redisURL (redis://host:port/db). The
// connection is not checked here; an unreachable server trips the breaker.
func NewRedisChartCache(redisURL string, ttl time.Duration, logger *logrus.Logger) (*RedisChartCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = redisOpTimeout
	opts.ReadTimeout = redisOpTimeout
	opts.WriteTimeout = redisOpTimeout
	opts.MaxRetries = -1

	return newRedisChartCache(redis.NewClient(opts), ttl, logger), nil
}

func newRedisChartCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisChartCache {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-chart-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisChartCache{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  logger,
	}
}

// Get returns a cached image. Any Redis error is reported as a miss.
func (c *RedisChartCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		c.logger.WithError(err).Debug("Chart cache lookup failed")
		return nil, false
	}
	data, _ := v.([]byte)
	return data, data != nil
}

// Add stores an image under key with the configured TTL.
func (c *RedisChartCache) Add(key string, png []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, keyPrefix+key, png, c.ttl).Err()
	})
	if err != nil {
		c.logger.WithError(err).Debug("Chart cache store failed")
	}
}

// State reports the circuit breaker state.
func (c *RedisChartCache) State() gobreaker.State {
	return c.breaker.State()
}

// Close closes the Redis client.
func (c *RedisChartCache) Close() error {
	return c.client.Close()
}
