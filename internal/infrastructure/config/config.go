package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names shared by the cache and queue sections
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Sweep     SweepConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the settings needed to verify bearer tokens
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
	AllowOrigins    []string
}

// CacheConfig controls the per-user summary cache
type CacheConfig struct {
	Backend    string // memory, redis
	SummaryTTL time.Duration
	KeyPrefix  string
}

// QueueConfig controls the background task queue used for cache invalidation
type QueueConfig struct {
	Backend     string // memory, redis
	ListKey     string
	Workers     int
	BufferSize  int
	ChunkSize   int
	PollTimeout time.Duration
}

// SweepConfig controls the lifecycle sweepers
type SweepConfig struct {
	Enabled          bool
	FinalizeInterval time.Duration
	PurgeInterval    time.Duration
	Retention        time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // development only
	MetricsEnabled    bool
	ExportInterval    time.Duration
	LogsEnabled       bool // export zap logs over OTLP
	DBTracing         bool // otelgorm spans per query

	// Pyroscope continuous profiling
	ProfilingEnabled           bool
	ProfilingServerAddress     string
	ProfilingTypes             []string // empty selects the default set
	ProfilingSpanProfiles      bool     // link CPU samples to trace spans
	ProfilingBasicAuthUser     string
	ProfilingBasicAuthPassword string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SCHOOLPAY_ prefix (e.g., SCHOOLPAY_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	return load(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SCHOOLPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			AllowOrigins:    v.GetStringSlice("http.allow_origins"),
		},
		Cache: CacheConfig{
			Backend:    v.GetString("cache.backend"),
			SummaryTTL: v.GetDuration("cache.summary_ttl"),
			KeyPrefix:  v.GetString("cache.key_prefix"),
		},
		Queue: QueueConfig{
			Backend:     v.GetString("queue.backend"),
			ListKey:     v.GetString("queue.list_key"),
			Workers:     v.GetInt("queue.workers"),
			BufferSize:  v.GetInt("queue.buffer_size"),
			ChunkSize:   v.GetInt("queue.chunk_size"),
			PollTimeout: v.GetDuration("queue.poll_timeout"),
		},
		Sweep: SweepConfig{
			Enabled:          v.GetBool("sweep.enabled"),
			FinalizeInterval: v.GetDuration("sweep.finalize_interval"),
			PurgeInterval:    v.GetDuration("sweep.purge_interval"),
			Retention:        v.GetDuration("sweep.retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),

			ProfilingEnabled:           v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress:     v.GetString("telemetry.profiling_server_address"),
			ProfilingTypes:             v.GetStringSlice("telemetry.profiling_types"),
			ProfilingSpanProfiles:      v.GetBool("telemetry.profiling_span_profiles"),
			ProfilingBasicAuthUser:     v.GetString("telemetry.profiling_basic_auth_user"),
			ProfilingBasicAuthPassword: v.GetString("telemetry.profiling_basic_auth_password"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "schoolpay-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "schoolpay"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "schoolpay"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if cfg.Cache.SummaryTTL == 0 {
		cfg.Cache.SummaryTTL = 10 * time.Minute
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "summary:"
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = BackendMemory
	}
	if cfg.Queue.ListKey == "" {
		cfg.Queue.ListKey = "schoolpay:tasks"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.BufferSize == 0 {
		cfg.Queue.BufferSize = 256
	}
	if cfg.Queue.ChunkSize == 0 {
		cfg.Queue.ChunkSize = 500
	}
	if cfg.Queue.PollTimeout == 0 {
		cfg.Queue.PollTimeout = 5 * time.Second
	}
	if cfg.Sweep.FinalizeInterval == 0 {
		cfg.Sweep.FinalizeInterval = time.Hour
	}
	if cfg.Sweep.PurgeInterval == 0 {
		cfg.Sweep.PurgeInterval = 24 * time.Hour
	}
	if cfg.Sweep.Retention == 0 {
		cfg.Sweep.Retention = 30 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if err := validateBackend("cache.backend", c.Cache.Backend); err != nil {
		return err
	}
	if err := validateBackend("queue.backend", c.Queue.Backend); err != nil {
		return err
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1")
	}
	if c.Queue.ChunkSize < 1 {
		return fmt.Errorf("queue.chunk_size must be at least 1")
	}
	if c.Sweep.Retention < 0 {
		return fmt.Errorf("sweep.retention cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServerAddress == "" {
		return fmt.Errorf("telemetry.profiling_server_address is required when profiling is enabled")
	}
	return nil
}

func validateBackend(key, backend string) error {
	switch backend {
	case BackendMemory, BackendRedis:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", key, BackendMemory, BackendRedis, backend)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
