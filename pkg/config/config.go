package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/storage"
)

// EnvPrefix is prepended to every environment variable, e.g. HUDDLE_SERVER_PORT
const EnvPrefix = "HUDDLE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       storage.Config
	Redis         RedisConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Loader        LoaderConfig
	GraphQL       GraphQLConfig
	Web           WebConfig
	Maintenance   MaintenanceConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig holds the optional Redis connection used for rate limiting
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	CacheSize     int
	CacheTTL      time.Duration
	OIDCIssuerURL string
	OIDCClientID  string
}

// RateLimitConfig holds per-caller request limits
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	AnonymousRequests int
	Window            time.Duration
	BurstSize         int
	MaxKeys           int
}

// LoaderConfig tunes the per-request batched loaders
type LoaderConfig struct {
	Wait     time.Duration
	MaxBatch int
}

// GraphQLConfig tunes the GraphQL endpoint
type GraphQLConfig struct {
	Enabled        bool
	MaxParallelism int
	MaxDepth       int
}

// WebConfig holds the front-end URL used for redirects
type WebConfig struct {
	URL string
}

// MaintenanceConfig drives the background janitor
type MaintenanceConfig struct {
	UploadJanitorSchedule string
	UploadMaxAge          time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  observability.LogLevel
	LogFormat string

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from the environment and, when configFile
// is non-empty, from that file. Environment variables win over the file.
func LoadConfig(configFile string) (*Config, error) {
	v, err := ReadViper(configFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// ReadViper returns NewViper with configFile read into it, if set
func ReadViper(configFile string) (*viper.Viper, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// NewViper returns a viper instance bound to HUDDLE_* environment variables
// with every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// FromViper builds and validates a Config from an already populated viper
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(v),
		Database:      loadDatabaseConfig(v),
		Storage:       loadStorageConfig(v),
		Redis:         loadRedisConfig(v),
		Auth:          loadAuthConfig(v),
		RateLimit:     loadRateLimitConfig(v),
		Loader:        loadLoaderConfig(v),
		GraphQL:       loadGraphQLConfig(v),
		Web:           WebConfig{URL: strings.TrimRight(v.GetString("web.url"), "/")},
		Maintenance:   loadMaintenanceConfig(v),
		Observability: loadObservabilityConfig(v),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.health_port", "9090")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.allowed_origins", "*")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("storage.type", storage.TypeFilesystem)
	v.SetDefault("storage.filesystem_root", "/tmp/huddle")
	v.SetDefault("storage.public_url", "http://localhost:8080/files")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_use_path_style", false)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "huddle")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cache_size", 10000)
	v.SetDefault("auth.cache_ttl", 5*time.Minute)
	v.SetDefault("auth.oidc_issuer_url", "")
	v.SetDefault("auth.oidc_client_id", "")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_window", 1000)
	v.SetDefault("ratelimit.anonymous_requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.burst_size", 50)
	v.SetDefault("ratelimit.max_keys", 100000)

	v.SetDefault("loader.wait", 2*time.Millisecond)
	v.SetDefault("loader.max_batch", 100)

	v.SetDefault("graphql.enabled", true)
	v.SetDefault("graphql.max_parallelism", 10)
	v.SetDefault("graphql.max_depth", 8)

	v.SetDefault("web.url", "http://localhost:3000")

	v.SetDefault("maintenance.upload_janitor_schedule", "@every 1h")
	v.SetDefault("maintenance.upload_max_age", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.service_name", "huddle-api")
	v.SetDefault("otel.service_version", "1.0.0")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.sample_ratio", 1.0)
}

func loadServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Host:            v.GetString("server.host"),
		Port:            v.GetString("server.port"),
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		IdleTimeout:     v.GetDuration("server.idle_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
		AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
		HealthPort:      v.GetString("server.health_port"),
	}
}

func loadDatabaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		URL:             v.GetString("database.url"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		ConnectTimeout:  v.GetDuration("database.connect_timeout"),
	}
}

func loadStorageConfig(v *viper.Viper) storage.Config {
	return storage.Config{
		Type:           strings.ToLower(v.GetString("storage.type")),
		FilesystemRoot: v.GetString("storage.filesystem_root"),
		PublicURL:      strings.TrimRight(v.GetString("storage.public_url"), "/"),
		S3Endpoint:     v.GetString("storage.s3_endpoint"),
		S3Region:       v.GetString("storage.s3_region"),
		S3Bucket:       v.GetString("storage.s3_bucket"),
		S3AccessKey:    v.GetString("storage.s3_access_key"),
		S3SecretKey:    v.GetString("storage.s3_secret_key"),
		S3UsePathStyle: v.GetBool("storage.s3_use_path_style"),
	}
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		URL:      v.GetString("redis.url"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		PoolSize: v.GetInt("redis.pool_size"),
	}
}

func loadAuthConfig(v *viper.Viper) AuthConfig {
	return AuthConfig{
		JWTSecret:     v.GetString("auth.jwt_secret"),
		JWTIssuer:     v.GetString("auth.jwt_issuer"),
		TokenTTL:      v.GetDuration("auth.token_ttl"),
		CacheSize:     v.GetInt("auth.cache_size"),
		CacheTTL:      v.GetDuration("auth.cache_ttl"),
		OIDCIssuerURL: v.GetString("auth.oidc_issuer_url"),
		OIDCClientID:  v.GetString("auth.oidc_client_id"),
	}
}

func loadRateLimitConfig(v *viper.Viper) RateLimitConfig {
	return RateLimitConfig{
		Enabled:           v.GetBool("ratelimit.enabled"),
		RequestsPerWindow: v.GetInt("ratelimit.requests_per_window"),
		AnonymousRequests: v.GetInt("ratelimit.anonymous_requests"),
		Window:            v.GetDuration("ratelimit.window"),
		BurstSize:         v.GetInt("ratelimit.burst_size"),
		MaxKeys:           v.GetInt("ratelimit.max_keys"),
	}
}

func loadLoaderConfig(v *viper.Viper) LoaderConfig {
	return LoaderConfig{
		Wait:     v.GetDuration("loader.wait"),
		MaxBatch: v.GetInt("loader.max_batch"),
	}
}

func loadGraphQLConfig(v *viper.Viper) GraphQLConfig {
	return GraphQLConfig{
		Enabled:        v.GetBool("graphql.enabled"),
		MaxParallelism: v.GetInt("graphql.max_parallelism"),
		MaxDepth:       v.GetInt("graphql.max_depth"),
	}
}

func loadMaintenanceConfig(v *viper.Viper) MaintenanceConfig {
	return MaintenanceConfig{
		UploadJanitorSchedule: v.GetString("maintenance.upload_janitor_schedule"),
		UploadMaxAge:          v.GetDuration("maintenance.upload_max_age"),
	}
}

func loadObservabilityConfig(v *viper.Viper) ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(v.GetString("log.level")),
		LogFormat:          strings.ToLower(v.GetString("log.format")),
		MetricsEnabled:     v.GetBool("metrics.enabled"),
		OTelEnabled:        v.GetBool("otel.enabled"),
		OTelEndpoint:       v.GetString("otel.endpoint"),
		OTelServiceName:    v.GetString("otel.service_name"),
		OTelServiceVersion: v.GetString("otel.service_version"),
		OTelInsecure:       v.GetBool("otel.insecure"),
		OTelSampleRatio:    v.GetFloat64("otel.sample_ratio"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database max open connections must be positive")
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" && c.Auth.OIDCIssuerURL == "" {
		return fmt.Errorf("either a JWT secret or an OIDC issuer is required")
	}
	if c.Auth.OIDCIssuerURL != "" && c.Auth.OIDCClientID == "" {
		return fmt.Errorf("OIDC client id is required when an OIDC issuer is configured")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow < 1 || c.RateLimit.AnonymousRequests < 1 {
			return fmt.Errorf("rate limits must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	if c.Loader.MaxBatch < 1 {
		return fmt.Errorf("loader max batch must be positive")
	}

	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// NewLogger builds the process logger described by the observability settings
func (c ObservabilityConfig) NewLogger() *observability.Logger {
	if c.LogFormat == "text" {
		return observability.NewTextLogger(c.LogLevel, nil)
	}
	return observability.NewLogger(c.LogLevel, nil)
}

// OTel converts the settings into an observability.OTelConfig
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
