package rpcserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	logger     *slog.Logger
	grpcServer *grpc.Server
	gwmux      *runtime.ServeMux

	HealthService HealthService
}

func NewServer(logger *slog.Logger, store kvstore.Store) *Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)

	srv := &Server{
		logger:        logger,
		grpcServer:    grpcServer,
		HealthService: NewHealthService(store),
	}

	srv.registerServices(grpcServer)
	grpc_prometheus.Register(grpcServer)
	return srv
}

func (s *Server) registerServices(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.HealthService)
}

// Run serves gRPC on address and builds the gateway mux, which exposes the
// health service at /healthz through a client connection to that address.
// Both stop when ctx is done.
func (s *Server) Run(ctx context.Context, address string, wg *sync.WaitGroup) error {
	conn, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	go func() {
		s.logger.Info("starting urlshortener gRPC service", "addr", address)
		if serveErr := s.grpcServer.Serve(conn); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed to serve", "error", serveErr)
		}
	}()

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	gwConn, err := grpc.NewClient(conn.Addr().String(), opts...)
	if err != nil {
		s.grpcServer.Stop()
		return err
	}

	s.gwmux = runtime.NewServeMux(
		runtime.WithErrorHandler(NewCustomHTTPErrorHandler(s.logger)),
		runtime.WithRoutingErrorHandler(NewRoutingErrorHandler()),
		runtime.WithHealthzEndpoint(healthpb.NewHealthClient(gwConn)),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("gRPC server shutting down")
		s.grpcServer.GracefulStop()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("gRPC gateway client shutting down")
		if closeErr := gwConn.Close(); closeErr != nil {
			s.logger.Error("gRPC gateway client shutdown failed", "error", closeErr)
		}
	}()

	return nil
}

// NewGatewayMux returns the gateway mux built by Run.
func (s *Server) NewGatewayMux() *runtime.ServeMux {
	return s.gwmux
}
