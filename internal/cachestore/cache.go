package cachestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ndajr/urlshortener-kv/internal/config"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	"github.com/redis/go-redis/v9"
)

// cacheConnectTimeout is the timeout for establishing redis connection.
const cacheConnectTimeout = 15 * time.Second

// Role selects how the client treats its keys.
type Role int

const (
	// RoleStore keeps records forever; redis is the source of truth.
	RoleStore Role = iota
	// RoleCache keeps records for the configured TTL, refreshed on every read.
	RoleCache
)

func (r Role) String() string {
	if r == RoleCache {
		return "redis-cache"
	}
	return "redis"
}

var (
	_ kvstore.Store   = (*Client)(nil)
	_ kvstore.Creator = (*Client)(nil)
	_ kvstore.Pinger  = (*Client)(nil)
)

type Client struct {
	rdb     *redis.Client
	metrics Metrics
	store   kvstore.Metrics
	logger  *slog.Logger
	cfg     config.Redis
	role    Role
	ttl     time.Duration
}

func NewClient(ctx context.Context, logger *slog.Logger, cfg config.Redis, role Role) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ctx, cancel := context.WithTimeout(ctx, cacheConnectTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	c := &Client{
		rdb:     rdb,
		logger:  logger,
		metrics: NewMetrics(),
		store:   kvstore.NewMetrics(role.String()),
		cfg:     cfg,
		role:    role,
	}
	if role == RoleCache {
		c.ttl = cfg.CacheTTL
	}

	if err := kvstore.WaitReady(ctx, c, logger); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cachestore: failed to ping redis: %w", err)
	}

	if role == RoleCache {
		// Best-effort: LFU keeps popular links cached once maxmemory is reached.
		// It only has an effect when maxmemory is set on the server.
		err := rdb.ConfigSet(ctx, "maxmemory-policy", "allkeys-lfu").Err()
		if err != nil {
			logger.Warn("could not set redis maxmemory-policy to allkeys-lfu, ensure it is configured on the server", "error", err)
		}
	}
	logger.Info("successfully connected to redis", "addr", cfg.Addr, "role", role.String())

	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Get returns the raw record stored under key. In the cache role it uses GETEX
// to reset the TTL on every hit, so popular links stay cached.
func (c *Client) Get(ctx context.Context, key string) (val []byte, err error) {
	defer func(start time.Time) { c.store.Observe("Get", start, err) }(time.Now())

	var cmd *redis.StringCmd
	if c.ttl > 0 {
		cmd = c.rdb.GetEx(ctx, c.toInternalKey(key), c.ttl)
	} else {
		cmd = c.rdb.Get(ctx, c.toInternalKey(key))
	}
	val, err = cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.Misses.WithLabelValues(c.cfg.KeyPrefix).Inc()
		}
		return nil, classify(err)
	}
	c.metrics.Hits.WithLabelValues(c.cfg.KeyPrefix).Inc()
	return val, nil
}

func (c *Client) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { c.store.Observe("Put", start, err) }(time.Now())

	if err := c.rdb.Set(ctx, c.toInternalKey(key), value, c.ttl).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Create writes value only if key is unused, using SET NX.
func (c *Client) Create(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { c.store.Observe("Create", start, err) }(time.Now())

	ok, err := c.rdb.SetNX(ctx, c.toInternalKey(key), value, c.ttl).Result()
	if err != nil {
		return classify(err)
	}
	if !ok {
		return fmt.Errorf("cachestore: %q: %w", key, kvstore.ErrExists)
	}
	return nil
}

func (c *Client) toInternalKey(s string) string {
	return fmt.Sprintf("%s:%s", c.cfg.KeyPrefix, s)
}

func (c *Client) Close() {
	_ = c.rdb.Close()
}

// authErrorPrefixes are the redis error codes raised for missing or rejected credentials.
var authErrorPrefixes = []string{"NOAUTH", "WRONGPASS", "NOPERM"}

func classify(err error) error {
	if errors.Is(err, redis.Nil) {
		return kvstore.ErrNotFound
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		for _, prefix := range authErrorPrefixes {
			if strings.HasPrefix(rerr.Error(), prefix) {
				return fmt.Errorf("cachestore: %w: %w", kvstore.ErrUnauthorized, err)
			}
		}
	}
	return fmt.Errorf("cachestore: %w: %w", kvstore.ErrUnknown, err)
}
