package kvstore

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, ErrUnknown }
func (brokenStore) Put(context.Context, string, []byte) error   { return ErrUnknown }
func (brokenStore) Ping(context.Context) error                  { return errors.New("down") }

var discard = slog.New(slog.DiscardHandler)

func TestTieredReadThrough(t *testing.T) {
	ctx := context.Background()
	primary, cache := NewMemory(), NewMemory()
	tiered := NewTiered(discard, primary, cache)

	require.NoError(t, primary.Put(ctx, "k", []byte("v")))

	got, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// the miss is filled in the background
	require.Eventually(t, func() bool {
		cached, err := cache.Get(ctx, "k")
		return err == nil && string(cached) == "v"
	}, time.Second, 10*time.Millisecond)
}

func TestTieredPrefersCache(t *testing.T) {
	ctx := context.Background()
	primary, cache := NewMemory(), NewMemory()
	tiered := NewTiered(discard, primary, cache)

	require.NoError(t, cache.Put(ctx, "k", []byte("cached")))
	require.NoError(t, primary.Put(ctx, "k", []byte("primary")))

	got, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), got)
}

func TestTieredWritesThrough(t *testing.T) {
	ctx := context.Background()
	primary, cache := NewMemory(), NewMemory()
	tiered := NewTiered(discard, primary, cache)

	require.NoError(t, tiered.Create(ctx, "k", []byte("v1")))
	require.ErrorIs(t, tiered.Create(ctx, "k", []byte("v2")), ErrExists)
	require.NoError(t, tiered.Put(ctx, "k", []byte("v3")))

	for _, s := range []Store{primary, cache} {
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v3"), got)
	}
}

func TestTieredSurvivesBrokenCache(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	tiered := NewTiered(discard, primary, brokenStore{})

	require.NoError(t, tiered.Put(ctx, "k", []byte("v")))
	got, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = tiered.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, tiered.Ping(ctx))
}
