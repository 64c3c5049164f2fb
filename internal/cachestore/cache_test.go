package cachestore

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ndajr/urlshortener-kv/internal/config"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func newTestClient(t *testing.T, role Role) (*Client, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)

	c, err := NewClient(context.Background(), discard, config.Redis{
		Addr:      m.Addr(),
		PoolSize:  2,
		KeyPrefix: "url",
		CacheTTL:  time.Hour,
	}, role)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, m
}

func TestClientStoreRole(t *testing.T) {
	ctx := context.Background()
	c, m := newTestClient(t, RoleStore)

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, c.Create(ctx, "k", []byte{0, 1, 0xff}))
	require.ErrorIs(t, c.Create(ctx, "k", []byte("other")), kvstore.ErrExists)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0xff}, got)

	require.NoError(t, c.Put(ctx, "k", []byte("v2")))
	raw, err := m.Get("url:k")
	require.NoError(t, err)
	assert.Equal(t, "v2", raw)
	assert.Zero(t, m.TTL("url:k"))

	assert.NoError(t, c.Ping(ctx))
}

func TestClientCacheRoleSlidesTTL(t *testing.T) {
	ctx := context.Background()
	c, m := newTestClient(t, RoleCache)

	require.NoError(t, c.Put(ctx, "k", []byte("v")))
	assert.Equal(t, time.Hour, m.TTL("url:k"))

	m.FastForward(30 * time.Minute)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, m.TTL("url:k"))

	m.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestClientClassifiesAuthErrors(t *testing.T) {
	m := miniredis.RunT(t)
	m.RequireAuth("secret")

	c := &Client{
		rdb:     redis.NewClient(&redis.Options{Addr: m.Addr(), Protocol: 2}),
		logger:  discard,
		metrics: NewMetrics(),
		store:   kvstore.NewMetrics(RoleStore.String()),
		cfg:     config.Redis{KeyPrefix: "url"},
	}
	t.Cleanup(c.Close)

	_, err := c.Get(context.Background(), "k")
	require.ErrorIs(t, err, kvstore.ErrUnauthorized)
	require.ErrorIs(t, c.Put(context.Background(), "k", []byte("v")), kvstore.ErrUnauthorized)
}

func TestClientClassifiesConnectionErrors(t *testing.T) {
	m := miniredis.RunT(t)
	addr := m.Addr()
	m.Close()

	c := &Client{
		rdb:     redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}),
		logger:  discard,
		metrics: NewMetrics(),
		store:   kvstore.NewMetrics(RoleStore.String()),
		cfg:     config.Redis{KeyPrefix: "url"},
	}
	t.Cleanup(c.Close)

	_, err := c.Get(context.Background(), "k")
	require.ErrorIs(t, err, kvstore.ErrUnknown)
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), discard, config.Redis{}, RoleStore)
	require.Error(t, err)
}

func TestClientKeepsDeadlineInErrorChain(t *testing.T) {
	c, _ := newTestClient(t, RoleStore)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, kvstore.ErrUnknown)

	err = c.Put(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = c.Create(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
