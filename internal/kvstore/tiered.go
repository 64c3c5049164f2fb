package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// cacheFillTimeout bounds the background cache write after a miss.
const cacheFillTimeout = 2 * time.Second

var (
	_ Store   = Tiered{}
	_ Creator = Tiered{}
	_ Pinger  = Tiered{}
)

// Tiered serves reads from cache when possible and keeps primary as the
// source of truth. Writes go to primary first, then to cache.
type Tiered struct {
	primary Store
	cache   Store
	logger  *slog.Logger
}

func NewTiered(logger *slog.Logger, primary, cache Store) Tiered {
	return Tiered{primary: primary, cache: cache, logger: logger}
}

func (t Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := t.cache.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrNotFound) {
		t.logger.Warn("cache lookup failed, falling back to primary store", "key", key, "error", err)
	}

	val, err = t.primary.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheFillTimeout)
		defer cancel()
		if err := t.cache.Put(bgCtx, key, val); err != nil {
			t.logger.Error("failed to update cache in background", "key", key, "error", err)
		}
	}()

	return val, nil
}

func (t Tiered) Put(ctx context.Context, key string, value []byte) error {
	if err := t.primary.Put(ctx, key, value); err != nil {
		return err
	}
	t.refresh(ctx, key, value)
	return nil
}

// Create is atomic when primary implements Creator and a plain Put otherwise.
func (t Tiered) Create(ctx context.Context, key string, value []byte) error {
	creator, ok := t.primary.(Creator)
	if !ok {
		return t.Put(ctx, key, value)
	}
	if err := creator.Create(ctx, key, value); err != nil {
		return err
	}
	t.refresh(ctx, key, value)
	return nil
}

func (t Tiered) refresh(ctx context.Context, key string, value []byte) {
	if err := t.cache.Put(ctx, key, value); err != nil {
		t.logger.Error("failed to write through to cache", "key", key, "error", err)
	}
}

func (t Tiered) Ping(ctx context.Context) error {
	for name, s := range map[string]Store{"primary": t.primary, "cache": t.cache} {
		p, ok := s.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("tiered: %s store: %w", name, err)
		}
	}
	return nil
}
