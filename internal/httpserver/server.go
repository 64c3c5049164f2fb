package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/ndajr/urlshortener-kv/internal/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerui "github.com/swaggest/swgui/v5emb"
)

const (
	docsURL    = "/docs/"
	shortenURL = "/api/v1/shorten"
	fetchURL   = "/api/v1/fetch"
)

type Server struct {
	server       *http.Server
	shortener    core.Shortener
	logger       *slog.Logger
	metrics      Metrics
	storeTimeout time.Duration
}

type Options struct {
	Addr string
	// StoreTimeout bounds the store calls made for one request. Zero means no bound.
	StoreTimeout time.Duration
	SwaggerJSON  []byte
}

func NewServer(shortener core.Shortener, gwmux *runtime.ServeMux, logger *slog.Logger, opts Options) (*Server, error) {
	s := &Server{
		shortener:    shortener,
		logger:       logger,
		metrics:      NewMetrics(),
		storeTimeout: opts.StoreTimeout,
	}

	handler, err := s.registerEndpoints(gwmux, opts.SwaggerJSON)
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) registerEndpoints(gwmux *runtime.ServeMux, swaggerJSON []byte) (http.Handler, error) {
	routes := map[string]http.HandlerFunc{
		shortenURL: s.shortenHandler(),
		fetchURL:   s.fetchHandler(),
	}
	for path, h := range routes {
		instrumented := s.metrics.instrument(path, h)
		for _, method := range []string{http.MethodGet, http.MethodOptions} {
			err := gwmux.HandlePath(method, path, func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
				instrumented.ServeHTTP(w, r)
			})
			if err != nil {
				return nil, fmt.Errorf("httpserver: register %s %s: %w", method, path, err)
			}
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", gwmux)
	mux.Handle("/healthz", gwmux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write(swaggerJSON)
		if err != nil {
			s.logger.Error("failed to respond with swagger.json content", "error", err)
			return
		}
	})
	mux.Handle(docsURL, swaggerui.New("URL Shortener API", "/swagger.json", docsURL))
	mux.Handle("/", s.metrics.instrument("/", s.rootHandler()))

	return recoveryMiddleware(s.logger, loggingMiddleware(s.logger, mux)), nil
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Run(ctx context.Context, wg *sync.WaitGroup) error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("starting urlshortener http service", "addr", s.server.Addr)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed to serve", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server graceful shutdown failed", "error", err)
		}
	}()

	return nil
}
