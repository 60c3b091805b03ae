package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Snapshot sources understood by the reporting service.
const (
	SourceClickHouse = "clickhouse"
	SourceMock       = "mock"
)

// Config holds all configuration for the prediction monitor.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Report     ReportConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig points at the analytics store holding the raw snapshots.
type ClickHouseConfig struct {
	Addr        []string
	Database    string
	User        string
	Password    string
	DialTimeout time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// ReportConfig holds the defaults used when building prediction summaries.
type ReportConfig struct {
	// Source is where raw snapshots come from: "clickhouse" or "mock"
	Source        string
	SnapshotTable string
	// Lookback bounds the snapshot query; zero loads the full history
	Lookback time.Duration
	MockDays int
	// DefaultPeriod is applied when a request does not ask for one ("" disables)
	DefaultPeriod   string
	MappingCacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from the given .env files (".env" when none are given) are
// loaded first; files that do not exist are skipped and variables already
// present in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("PREDICTION_MONITOR_HTTP_ADDR", ":8080"),
			Env:             getEnv("PREDICTION_MONITOR_ENV", "development"),
			ShutdownTimeout: getDurationEnv("PREDICTION_MONITOR_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("PREDICTION_MONITOR_DB_ENABLED", true),
			Host:     getEnv("PREDICTION_MONITOR_DB_HOST", "localhost"),
			Port:     getIntEnv("PREDICTION_MONITOR_DB_PORT", 5432),
			User:     getEnv("PREDICTION_MONITOR_DB_USER", "monitor"),
			Password: getEnv("PREDICTION_MONITOR_DB_PASSWORD", "monitor_secret"),
			DBName:   getEnv("PREDICTION_MONITOR_DB_NAME", "prediction_monitor"),
			SSLMode:  getEnv("PREDICTION_MONITOR_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("PREDICTION_MONITOR_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("PREDICTION_MONITOR_DB_MIN_CONNS", 1),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("PREDICTION_MONITOR_REDIS_ENABLED", true),
			Addr:     getEnv("PREDICTION_MONITOR_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("PREDICTION_MONITOR_REDIS_PASSWORD", ""),
			DB:       getIntEnv("PREDICTION_MONITOR_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Addr:        getSliceEnv("PREDICTION_MONITOR_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database:    getEnv("PREDICTION_MONITOR_CLICKHOUSE_DATABASE", "default"),
			User:        getEnv("PREDICTION_MONITOR_CLICKHOUSE_USER", "default"),
			Password:    getEnv("PREDICTION_MONITOR_CLICKHOUSE_PASSWORD", ""),
			DialTimeout: getDurationEnv("PREDICTION_MONITOR_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("PREDICTION_MONITOR_AUTH_ENABLED", false),
			MasterKey: getEnv("PREDICTION_MONITOR_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("PREDICTION_MONITOR_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("PREDICTION_MONITOR_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("PREDICTION_MONITOR_RATE_LIMIT_RPS", 50),
			Burst:   getIntEnv("PREDICTION_MONITOR_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("PREDICTION_MONITOR_LOG_LEVEL", "info"),
			Format: getEnv("PREDICTION_MONITOR_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("PREDICTION_MONITOR_METRICS_ENABLED", true),
			Path:      getEnv("PREDICTION_MONITOR_METRICS_PATH", "/metrics"),
			Namespace: getEnv("PREDICTION_MONITOR_METRICS_NAMESPACE", "prediction_monitor"),
		},
		Report: ReportConfig{
			Source:          getEnv("PREDICTION_MONITOR_SOURCE", SourceMock),
			SnapshotTable:   getEnv("PREDICTION_MONITOR_SNAPSHOT_TABLE", "prediction_snapshots"),
			Lookback:        getDurationEnv("PREDICTION_MONITOR_LOOKBACK", 0),
			MockDays:        getIntEnv("PREDICTION_MONITOR_MOCK_DAYS", 70),
			DefaultPeriod:   getEnv("PREDICTION_MONITOR_DEFAULT_PERIOD", ""),
			MappingCacheTTL: getDurationEnv("PREDICTION_MONITOR_MAPPING_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("PREDICTION_MONITOR_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Report.Source {
	case SourceMock:
		if c.Report.MockDays <= 0 {
			return fmt.Errorf("PREDICTION_MONITOR_MOCK_DAYS must be positive, got %d", c.Report.MockDays)
		}
	case SourceClickHouse:
		if len(c.ClickHouse.Addr) == 0 {
			return fmt.Errorf("PREDICTION_MONITOR_CLICKHOUSE_ADDR is required for the clickhouse source")
		}
		if c.Report.SnapshotTable == "" {
			return fmt.Errorf("PREDICTION_MONITOR_SNAPSHOT_TABLE is required for the clickhouse source")
		}
	default:
		return fmt.Errorf("unknown snapshot source %q", c.Report.Source)
	}
	if c.Report.Lookback < 0 {
		return fmt.Errorf("PREDICTION_MONITOR_LOOKBACK must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
