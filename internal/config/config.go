package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Realtime     RealtimeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	RecentTicketsLimit    int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables
// token revocation sharing and cross-instance event fan-out.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	MinPasswordLength     int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// RealtimeConfig tunes the live query streams.
type RealtimeConfig struct {
	KeepAliveSeconds int
	RedisChannel     string
}

// KeepAlive returns the SSE comment interval.
func (r RealtimeConfig) KeepAlive() time.Duration {
	if r.KeepAliveSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(r.KeepAliveSeconds) * time.Second
}

// Load reads the environment (and a .env file when present) into a Config.
// Malformed numeric or boolean values are reported together rather than
// silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var e env
	cfg := &Config{
		App: AppConfig{
			Name:                  e.str("APP_NAME", "helpdesk"),
			Env:                   e.str("APP_ENV", "development"),
			Host:                  e.str("APP_HOST", "0.0.0.0"),
			Port:                  e.str("APP_PORT", "8080"),
			Version:               e.str("APP_VERSION", "dev"),
			RequestTimeoutSeconds: e.integer("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			RecentTicketsLimit:    e.integer("RECENT_TICKETS_LIMIT", 10),
		},
		Postgres: PostgresConfig{
			DSN:            e.str("POSTGRES_DSN", ""),
			MaxConns:       int32(e.integer("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(e.integer("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  e.boolean("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  e.str("MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(e.integer("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(e.integer("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     e.str("REDIS_ADDR", ""),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.integer("REDIS_DB", 0),
		},
		Logger: LoggerConfig{Level: e.str("LOG_LEVEL", "info")},
		Auth: AuthConfig{
			JWTSecret:             e.str("AUTH_JWT_SECRET", devSecret),
			AccessTokenTTLMinutes: e.integer("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            e.integer("AUTH_BCRYPT_COST", 12),
			MinPasswordLength:     e.integer("AUTH_MIN_PASSWORD_LENGTH", 6),
		},
		Notification: NotificationConfig{
			EmailFrom:  e.str("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: e.str("NOTIFY_WEBHOOK_URL", ""),
		},
		Realtime: RealtimeConfig{
			KeepAliveSeconds: e.integer("REALTIME_KEEPALIVE_SECONDS", 15),
			RedisChannel:     e.str("REALTIME_REDIS_CHANNEL", "helpdesk:events"),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const devSecret = "dev-secret"

func (c *Config) validate() error {
	if c.App.Env == "production" && c.Auth.JWTSecret == devSecret {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	if c.App.RecentTicketsLimit <= 0 {
		return fmt.Errorf("RECENT_TICKETS_LIMIT must be positive, got %d", c.App.RecentTicketsLimit)
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive, got %d", c.Auth.AccessTokenTTLMinutes)
	}
	return nil
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

// AccessTokenTTL returns the lifetime of issued access tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// env reads variables and remembers every value it failed to parse.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	val := e.str(key, "")
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: expected an integer", key, val))
		return fallback
	}
	return n
}

func (e *env) boolean(key string, fallback bool) bool {
	val := e.str(key, "")
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: expected a boolean", key, val))
		return fallback
	}
	return b
}
