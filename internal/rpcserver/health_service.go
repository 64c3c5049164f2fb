package rpcserver

import (
	"context"
	"fmt"

	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var _ healthpb.HealthServer = (*HealthService)(nil)

// HealthService reports SERVING while the key-value store answers pings.
type HealthService struct {
	healthpb.UnimplementedHealthServer
	store kvstore.Store
}

func NewHealthService(store kvstore.Store) HealthService {
	return HealthService{store: store}
}

func (h HealthService) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := h.up(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (h HealthService) up(ctx context.Context) error {
	pinger, ok := h.store.(kvstore.Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return fmt.Errorf("health: store not ok: %w", err)
	}
	return nil
}
