package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"sitestats/api/models"
)

// Event store backends.
const (
	StoreClickHouse = "clickhouse"
	StorePostgres   = "postgres"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	GinMode   string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	EventStore string `env:"EVENT_STORE" envDefault:"clickhouse"`

	// Postgres holds dashboard operators, and events when EVENT_STORE=postgres
	DatabaseURL string `env:"DATABASE_URL"`

	ClickHouseHost       string `env:"CLICKHOUSE_HOST"`
	ClickHouseNativePort int    `env:"CLICKHOUSE_NATIVE_PORT" envDefault:"9000"`
	ClickHouseDBName     string `env:"CLICKHOUSE_DB_NAME"`
	ClickHouseUsername   string `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	ClickHousePassword   string `env:"CLICKHOUSE_PASSWORD"`

	JWTSecret     string        `env:"JWT_SECRET_KEY"`
	StaticAPIKey  string        `env:"AUTH_DEFAULT"`
	TokenLifetime time.Duration `env:"JWT_LIFETIME" envDefault:"1h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	MetricsCacheTTL time.Duration `env:"METRICS_CACHE_TTL" envDefault:"30s"`
	QueryLimit      int           `env:"QUERY_LIMIT" envDefault:"10000"`
}

// Load parses environment variables and checks that the selected
// collaborators are configured.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing setting at once, wrapped in
// models.ErrConfigurationMissing.
func (c *Config) Validate() error {
	var missing []string

	switch c.EventStore {
	case StoreClickHouse:
		if c.ClickHouseHost == "" {
			missing = append(missing, "CLICKHOUSE_HOST")
		}
		if c.ClickHouseDBName == "" {
			missing = append(missing, "CLICKHOUSE_DB_NAME")
		}
	case StorePostgres:
	default:
		return fmt.Errorf("EVENT_STORE must be %q or %q, got %q", StoreClickHouse, StorePostgres, c.EventStore)
	}

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.QueryLimit <= 0 {
		return fmt.Errorf("QUERY_LIMIT must be positive, got %d", c.QueryLimit)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", models.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// IsRelease returns true if gin runs in release mode.
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// ClickHouseAddr returns the native protocol address in host:port format.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouseHost, c.ClickHouseNativePort)
}
