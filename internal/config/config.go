package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "URLSHORTENER"

const (
	appGrpcEndpoint = "app.grpc_endpoint"
	appHttpEndpoint = "app.http_endpoint"
	appStoreBackend = "app.store_backend"
	appKeyLength    = "app.key_length"
	appStoreTimeout = "app.store_timeout"
)

const (
	postgresAddr           = "postgres.address"
	postgresConnectTimeout = "postgres.connect_timeout"
)

const (
	redisAddr         = "redis.address"
	redisPassword     = "redis.password"
	redisDB           = "redis.db"
	redisPoolSize     = "redis.pool_size"
	redisKeyPrefix    = "redis.key_prefix"
	redisCacheEnabled = "redis.cache_enabled"
	redisCacheTTL     = "redis.cache_ttl"
)

// Store backends accepted by app.store_backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type AppSettings struct {
	GrpcEndpoint string
	HttpEndpoint string
	StoreBackend string
	KeyLength    int
	StoreTimeout time.Duration // Upper bound for the store calls of one request
}

type Postgres struct {
	Addr           string
	ConnectTimeout time.Duration
}

type Redis struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	KeyPrefix    string
	CacheEnabled bool          // Put redis in front of postgres as a read-through cache
	CacheTTL     time.Duration // Sliding expiration of cached records
}

func SetDefaults() {
	viper.SetDefault(appHttpEndpoint, "localhost:8080")
	viper.SetDefault(appGrpcEndpoint, "localhost:8081")
	viper.SetDefault(appStoreBackend, BackendMemory)
	viper.SetDefault(appKeyLength, 8)
	viper.SetDefault(appStoreTimeout, 5*time.Second)

	viper.SetDefault(postgresAddr, "postgres://ndev:@localhost:5432/urlshortener?sslmode=disable")
	viper.SetDefault(postgresConnectTimeout, 15*time.Second)

	viper.SetDefault(redisAddr, "localhost:6379")
	viper.SetDefault(redisPassword, "")
	viper.SetDefault(redisDB, 0)
	viper.SetDefault(redisPoolSize, 10)
	viper.SetDefault(redisKeyPrefix, "url")
	viper.SetDefault(redisCacheEnabled, false)
	viper.SetDefault(redisCacheTTL, time.Hour)
}

// Flags returns the command-line flags of the server, each bound to a config key.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("urlshortener-server", pflag.ContinueOnError)
	flags.String("config", "configmap.yaml", "path to a YAML config file, ignored when missing")
	flags.String("http-endpoint", "", "http server endpoint")
	flags.String("grpc-endpoint", "", "gRPC server endpoint")
	flags.String("store", "", "key-value store backend: memory, redis or postgres")
	flags.String("db-address", "", "postgres DSN")
	flags.String("redis-address", "", "redis address")
	return flags
}

var flagKeys = map[string]string{
	"http-endpoint": appHttpEndpoint,
	"grpc-endpoint": appGrpcEndpoint,
	"store":         appStoreBackend,
	"db-address":    postgresAddr,
	"redis-address": redisAddr,
}

// Init reads the config file named by the --config flag, then layers
// environment variables and explicitly set flags on top of it.
func Init(flags *pflag.FlagSet) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config: bind flag %q: %w", name, err)
		}
	}

	path, err := flags.GetString("config")
	if err != nil || path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

func GetSettings() (
	AppSettings,
	Postgres,
	Redis,
) {
	return AppSettings{
			GrpcEndpoint: viper.GetString(appGrpcEndpoint),
			HttpEndpoint: viper.GetString(appHttpEndpoint),
			StoreBackend: strings.ToLower(viper.GetString(appStoreBackend)),
			KeyLength:    viper.GetInt(appKeyLength),
			StoreTimeout: viper.GetDuration(appStoreTimeout),
		},
		Postgres{
			Addr:           viper.GetString(postgresAddr),
			ConnectTimeout: viper.GetDuration(postgresConnectTimeout),
		},
		Redis{
			Addr:         viper.GetString(redisAddr),
			Password:     viper.GetString(redisPassword),
			DB:           viper.GetInt(redisDB),
			PoolSize:     viper.GetInt(redisPoolSize),
			KeyPrefix:    viper.GetString(redisKeyPrefix),
			CacheEnabled: viper.GetBool(redisCacheEnabled),
			CacheTTL:     viper.GetDuration(redisCacheTTL),
		}
}

// Validate reports settings the server cannot start with.
func (a AppSettings) Validate() error {
	switch a.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("config: unknown store backend %q", a.StoreBackend)
	}
	if a.KeyLength <= 0 {
		return fmt.Errorf("config: key length must be positive, got %d", a.KeyLength)
	}
	return nil
}
