package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Enrichment EnrichmentConfig
	Compliance ComplianceConfig
	Realtime   RealtimeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Format is "json" or
// "console"; console is the local-development default override.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines token verification parameters. Token issuance lives
// in the identity service; this service only verifies.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// EnrichmentConfig points at the model backend and tunes the pipeline.
type EnrichmentConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
	Inline         bool
	HistoryLimit   int
}

// ComplianceConfig holds the advisory pre-check endpoint.
type ComplianceConfig struct {
	URL            string
	Enabled        bool
	TimeoutSeconds int
}

// RealtimeConfig tunes the event hub.
type RealtimeConfig struct {
	ChannelPrefix    string
	SubscriberBuffer int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "casework-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Enrichment: EnrichmentConfig{
			BaseURL:        getEnv("ENRICHMENT_BASE_URL", ""),
			APIKey:         os.Getenv("ENRICHMENT_API_KEY"),
			Model:          getEnv("ENRICHMENT_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("ENRICHMENT_TIMEOUT_SECONDS", 30),
			Inline:         getEnvAsBool("ENRICHMENT_INLINE", true),
			HistoryLimit:   getEnvAsInt("ENRICHMENT_HISTORY_LIMIT", 10),
		},
		Compliance: ComplianceConfig{
			URL:            getEnv("COMPLIANCE_URL", ""),
			Enabled:        getEnvAsBool("COMPLIANCE_ENABLED", false),
			TimeoutSeconds: getEnvAsInt("COMPLIANCE_TIMEOUT_SECONDS", 5),
		},
		Realtime: RealtimeConfig{
			ChannelPrefix:    getEnv("REALTIME_CHANNEL_PREFIX", "conversation-"),
			SubscriberBuffer: getEnvAsInt("REALTIME_SUBSCRIBER_BUFFER", 16),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the enrichment backend call timeout.
func (e EnrichmentConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Timeout returns the compliance call timeout.
func (c ComplianceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
