package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var (
	_ Store   = (*Memory)(nil)
	_ Creator = (*Memory)(nil)
	_ Pinger  = (*Memory)(nil)
)

// Memory is a process-local store. Entries never expire.
type Memory struct {
	items   *gocache.Cache
	metrics Metrics
}

func NewMemory() *Memory {
	return &Memory{
		items:   gocache.New(gocache.NoExpiration, 0),
		metrics: NewMetrics("memory"),
	}
}

func (m *Memory) Get(_ context.Context, key string) (out []byte, err error) {
	defer func(start time.Time) { m.metrics.Observe("Get", start, err) }(time.Now())

	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	start := time.Now()
	m.items.Set(key, bytes.Clone(value), gocache.NoExpiration)
	m.metrics.Observe("Put", start, nil)
	return nil
}

func (m *Memory) Create(_ context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { m.metrics.Observe("Create", start, err) }(time.Now())

	if addErr := m.items.Add(key, bytes.Clone(value), gocache.NoExpiration); addErr != nil {
		return fmt.Errorf("memory: %q: %w", key, ErrExists)
	}
	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}
