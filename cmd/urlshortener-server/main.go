package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ndajr/urlshortener-kv/internal/cachestore"
	"github.com/ndajr/urlshortener-kv/internal/config"
	"github.com/ndajr/urlshortener-kv/internal/core"
	"github.com/ndajr/urlshortener-kv/internal/datastore"
	"github.com/ndajr/urlshortener-kv/internal/httpserver"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	"github.com/ndajr/urlshortener-kv/internal/rpcserver"
	"github.com/spf13/pflag"
)

var (
	version   = "dev"
	gitCommit = "none"
)

//go:embed apidocs.swagger.json
var swaggerJSON []byte

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	config.SetDefaults()
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Error("failed to parse flags", "error", err)
		os.Exit(2)
	}
	if err := config.Init(flags); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	appCfg, pgCfg, redisCfg := config.GetSettings()
	if err := appCfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, shutdown := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer shutdown()

	logger.Info("starting urlshortener service", "version", version, "commit", gitCommit, "store", appCfg.StoreBackend)

	store, closeStore, err := openStore(ctx, logger, appCfg.StoreBackend, pgCfg, redisCfg)
	if err != nil {
		logger.Error("failed to open key-value store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var wg sync.WaitGroup

	grpcSrv := rpcserver.NewServer(logger, store)
	if runErr := grpcSrv.Run(ctx, appCfg.GrpcEndpoint, &wg); runErr != nil {
		logger.Error("failed to run gRPC server", "error", runErr)
		os.Exit(1)
	}

	shortener := core.NewShortener(logger, store, appCfg.KeyLength)
	httpSrv, err := httpserver.NewServer(shortener, grpcSrv.NewGatewayMux(), logger, httpserver.Options{
		Addr:         appCfg.HttpEndpoint,
		StoreTimeout: appCfg.StoreTimeout,
		SwaggerJSON:  swaggerJSON,
	})
	if err != nil {
		logger.Error("failed to create HTTP server", "error", err)
		os.Exit(1)
	}
	if runErr := httpSrv.Run(ctx, &wg); runErr != nil {
		logger.Error("failed to run HTTP server", "error", runErr)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("powering down urlshortener service")
	wg.Wait()
}

// openStore connects the configured backend. With redis.cache_enabled the
// postgres store is fronted by a redis read-through cache.
func openStore(ctx context.Context, logger *slog.Logger, backend string, pgCfg config.Postgres, redisCfg config.Redis) (kvstore.Store, func(), error) {
	switch backend {
	case config.BackendMemory:
		return kvstore.NewMemory(), func() {}, nil

	case config.BackendRedis:
		client, err := cachestore.NewClient(ctx, logger, redisCfg, cachestore.RoleStore)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil

	case config.BackendPostgres:
		db, err := datastore.NewStore(ctx, logger, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		if !redisCfg.CacheEnabled {
			return db, db.Close, nil
		}
		cache, err := cachestore.NewClient(ctx, logger, redisCfg, cachestore.RoleCache)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		closeAll := func() {
			cache.Close()
			db.Close()
		}
		return kvstore.NewTiered(logger, db, cache), closeAll, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", backend)
}
