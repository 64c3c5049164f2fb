package datastore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ndajr/urlshortener-kv/internal/config"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
	"github.com/ndajr/urlshortener-kv/internal/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	_ kvstore.Store   = Store{}
	_ kvstore.Creator = Store{}
	_ kvstore.Pinger  = Store{}
)

type Store struct {
	db      *pgxpool.Pool
	logger  *slog.Logger
	metrics kvstore.Metrics
}

// NewStore establishes a database connection, applies migrations and returns a new Store.
func NewStore(ctx context.Context, logger *slog.Logger, cfg config.Postgres) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Addr)
	if err != nil {
		return Store{}, fmt.Errorf("datastore: failed to parse db config: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return Store{}, fmt.Errorf("datastore: failed to create connection pool: %w", err)
	}

	store := Store{
		db:      db,
		logger:  logger,
		metrics: kvstore.NewMetrics("postgres"),
	}
	metrics.Register(NewPoolStatsCollector(db, poolCfg.ConnConfig.Database))

	if pingErr := kvstore.WaitReady(ctx, store, logger); pingErr != nil {
		db.Close()
		return Store{}, fmt.Errorf("datastore: %w", pingErr)
	}

	if migrErr := runMigrations(cfg.Addr); migrErr != nil {
		db.Close()
		return Store{}, fmt.Errorf("datastore: failed to run migrations: %w", migrErr)
	}
	logger.Info("successfully connected to db", "database", poolCfg.ConnConfig.Database)

	return store, nil
}

func runMigrations(connStr string) (err error) {
	migrationDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration db: %w", err)
	}
	defer func() {
		err = errors.Join(err, migrationDB.Close())
	}()

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := pgxv5.WithInstance(migrationDB, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if runErr := m.Up(); runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", runErr)
	}
	return nil
}

func (s Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Get retrieves the raw record stored under key.
func (s Store) Get(ctx context.Context, key string) (val []byte, err error) {
	defer func(start time.Time) { s.metrics.Observe("Get", start, err) }(time.Now())

	rows, err := s.db.Query(ctx, getRecord, key)
	if err != nil {
		return nil, classify(err)
	}
	val, err = pgx.CollectExactlyOneRow(rows, pgx.RowTo[[]byte])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kvstore.ErrNotFound
		}
		return nil, classify(err)
	}
	return val, nil
}

// Put stores value under key, replacing any previous value.
func (s Store) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { s.metrics.Observe("Put", start, err) }(time.Now())

	_, err = s.db.Exec(ctx, putRecord, pgx.NamedArgs{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// Create stores value under key only if the key is unused.
func (s Store) Create(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { s.metrics.Observe("Create", start, err) }(time.Now())

	rows, err := s.db.Query(ctx, createRecord, pgx.NamedArgs{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return classify(err)
	}
	_, err = pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row when the key is taken.
			return fmt.Errorf("datastore: %q: %w", key, kvstore.ErrExists)
		}
		return classify(err)
	}
	return nil
}

func (s Store) Close() {
	s.db.Close()
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.InvalidPassword,
			pgerrcode.InvalidAuthorizationSpecification,
			pgerrcode.InsufficientPrivilege:
			return fmt.Errorf("datastore: %w: %w", kvstore.ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("datastore: %w: %w", kvstore.ErrUnknown, err)
}
