package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dashboard service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	ClickHouse ClickHouseConfig
	Store      StoreConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Dashboard  DashboardConfig

	// Tabs is populated from Dashboard.TabsFile, or the built-in defaults.
	Tabs *TabSet
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
	// Timezone is the business time zone that calendar days are cut in.
	Timezone string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ClickHouseConfig configures the analytical record store.
type ClickHouseConfig struct {
	Addr        []string
	Database    string
	User        string
	Password    string
	DialTimeout time.Duration
}

// Store drivers.
const (
	StoreDriverPostgres   = "postgres"
	StoreDriverClickHouse = "clickhouse"
	StoreDriverMemory     = "memory"
)

type StoreConfig struct {
	Driver string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CacheConfig configures the stale-while-revalidate response cache.
type CacheConfig struct {
	Enabled   bool
	Prefix    string
	FreshTTL  time.Duration
	StaleTTL  time.Duration
	LoadLimit time.Duration
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

// DashboardConfig holds settings of the aggregation endpoints.
type DashboardConfig struct {
	TabsFile             string
	FallbackExchangeRate float64
	// LegacyChartTab makes the chart endpoint answer an unknown tab with an
	// empty series instead of a 400.
	LegacyChartTab bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADSER_HTTP_ADDR", ":8080"),
			Env:             getEnv("ADSER_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ADSER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Timezone:        getEnv("ADSER_TIMEZONE", "Asia/Bangkok"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("ADSER_DB_HOST", "localhost"),
			Port:        getIntEnv("ADSER_DB_PORT", 5432),
			User:        getEnv("ADSER_DB_USER", "adser"),
			Password:    getEnv("ADSER_DB_PASSWORD", "adser_secret"),
			DBName:      getEnv("ADSER_DB_NAME", "adser"),
			SSLMode:     getEnv("ADSER_DB_SSLMODE", "disable"),
			MaxConns:    getIntEnv("ADSER_DB_MAX_CONNS", 10),
			MinConns:    getIntEnv("ADSER_DB_MIN_CONNS", 2),
			AutoMigrate: getBoolEnv("ADSER_DB_AUTO_MIGRATE", false),
		},
		ClickHouse: ClickHouseConfig{
			Addr:        getSliceEnv("ADSER_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database:    getEnv("ADSER_CLICKHOUSE_DB", "adser"),
			User:        getEnv("ADSER_CLICKHOUSE_USER", "default"),
			Password:    getEnv("ADSER_CLICKHOUSE_PASSWORD", ""),
			DialTimeout: getDurationEnv("ADSER_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
		},
		Store: StoreConfig{
			Driver: getEnv("ADSER_STORE_DRIVER", StoreDriverPostgres),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("ADSER_REDIS_ENABLED", true),
			Addr:     getEnv("ADSER_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ADSER_REDIS_PASSWORD", ""),
			DB:       getIntEnv("ADSER_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:   getBoolEnv("ADSER_CACHE_ENABLED", false),
			Prefix:    getEnv("ADSER_CACHE_PREFIX", "adser:dashboard"),
			FreshTTL:  getDurationEnv("ADSER_CACHE_FRESH_TTL", 5*time.Minute),
			StaleTTL:  getDurationEnv("ADSER_CACHE_STALE_TTL", 30*time.Minute),
			LoadLimit: getDurationEnv("ADSER_CACHE_REVALIDATE_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("ADSER_AUTH_ENABLED", false),
			MasterKey: getEnv("ADSER_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("ADSER_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("ADSER_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("ADSER_RATE_LIMIT_RPS", 50),
			Burst:   getIntEnv("ADSER_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("ADSER_LOG_LEVEL", "info"),
			Format: getEnv("ADSER_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("ADSER_METRICS_ENABLED", true),
			Path:      getEnv("ADSER_METRICS_PATH", "/metrics"),
			Namespace: getEnv("ADSER_METRICS_NAMESPACE", "adser"),
		},
		Dashboard: DashboardConfig{
			TabsFile:             getEnv("ADSER_DASHBOARD_TABS_FILE", ""),
			FallbackExchangeRate: getFloatEnv("ADSER_DASHBOARD_FALLBACK_RATE", DefaultExchangeRate),
			LegacyChartTab:       getBoolEnv("ADSER_DASHBOARD_LEGACY_CHART_TAB", false),
		},
	}

	if cfg.Dashboard.TabsFile != "" {
		tabs, err := LoadTabs(cfg.Dashboard.TabsFile)
		if err != nil {
			return nil, err
		}
		cfg.Tabs = tabs
	} else {
		cfg.Tabs = DefaultTabs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("ADSER_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverClickHouse, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown ADSER_STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Cache.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("ADSER_CACHE_ENABLED requires ADSER_REDIS_ENABLED")
	}
	if c.Cache.StaleTTL < c.Cache.FreshTTL {
		return fmt.Errorf("cache stale TTL (%s) must not be shorter than fresh TTL (%s)", c.Cache.StaleTTL, c.Cache.FreshTTL)
	}
	if c.Dashboard.FallbackExchangeRate <= 0 {
		return fmt.Errorf("ADSER_DASHBOARD_FALLBACK_RATE must be positive")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid ADSER_TIMEZONE %q: %w", c.Server.Timezone, err)
	}
	if c.Tabs == nil {
		return fmt.Errorf("no dashboard tabs configured")
	}
	return nil
}

// Location returns the business time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
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
