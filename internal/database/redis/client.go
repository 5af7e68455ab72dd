// Package redis provides the Redis-backed notification dedup store for coinwatch.
// Replicas sharing one Redis instance publish each block or transaction once.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bardlex/coinrpc/pkg/errors"
)

const seenPrefix = "seen"

// Client wraps the Redis operations coinwatch needs
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// KeyPrefix namespaces every key, e.g. by coin and network.
	KeyPrefix string
}

// NewClient creates a new Redis client and pings it
func NewClient(cfg *Config) (*Client, error) {
	return connect(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, cfg.KeyPrefix)
}

// NewFromURL creates a client from a redis:// URL
func NewFromURL(url, keyPrefix string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUsage, "redis_url",
			"invalid Redis URL")
	}
	return connect(opts, keyPrefix)
}

func connect(opts *redis.Options, keyPrefix string) (*Client, error) {
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeRedis, "redis_ping",
			"failed to ping Redis").
			WithContext("addr", opts.Addr)
	}

	return &Client{rdb: rdb, prefix: keyPrefix}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRedis, "redis_health",
			"Redis health check failed")
	}
	return nil
}

func (c *Client) seenKey(kind, hash string) string {
	if c.prefix == "" {
		return seenPrefix + ":" + kind + ":" + hash
	}
	return c.prefix + ":" + seenPrefix + ":" + kind + ":" + hash
}

// MarkSeen records hash under kind for ttl. It reports true the first time a
// hash is marked and false while an earlier mark is still live.
func (c *Client) MarkSeen(ctx context.Context, kind, hash string, ttl time.Duration) (bool, error) {
	first, err := c.rdb.SetNX(ctx, c.seenKey(kind, hash), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeRedis, "mark_seen",
			"failed to record notification").
			WithContext("kind", kind).
			WithContext("hash", hash)
	}
	return first, nil
}

// Forget drops a mark so the next notification for hash is handled again.
func (c *Client) Forget(ctx context.Context, kind, hash string) error {
	if err := c.rdb.Del(ctx, c.seenKey(kind, hash)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRedis, "forget_seen",
			"failed to drop notification mark").
			WithContext("kind", kind).
			WithContext("hash", hash)
	}
	return nil
}

// IncrementCounter increments a counter and refreshes its expiration.
func (c *Client) IncrementCounter(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	full := key
	if c.prefix != "" {
		full = c.prefix + ":" + key
	}

	pipe := c.rdb.Pipeline()
	incr := pipe.Incr(ctx, full)
	pipe.Expire(ctx, full, expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeRedis, "increment_counter",
			"failed to increment counter").
			WithContext("key", full)
	}
	return incr.Val(), nil
}
