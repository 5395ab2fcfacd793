package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Overlay     OverlayConfig
	Realtime    RealtimeConfig
	Workspace   WorkspaceConfig
	Outbox      OutboxConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// OverlayConfig locates the durable store for dismissed notifications and badge flags.
type OverlayConfig struct {
	Path string
}

type RealtimeConfig struct {
	ChannelPrefix string
	NotifyChannel string
	RetryInterval time.Duration
}

// WorkspaceConfig controls the per-actor session state kept in memory.
type WorkspaceConfig struct {
	IdleTTL        time.Duration
	ResyncInterval time.Duration
}

// OutboxConfig controls replay of audit snapshots that failed to write.
type OutboxConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskboard"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "taskboard"),
			User:            getString("DB_USER", "taskboard"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskboard"),
			TTL:    getDuration("JWT_TTL", 12*time.Hour),
		},
		Overlay: OverlayConfig{
			Path: getString("BOLTDB_PATH", "./data/overlay.db"),
		},
		Realtime: RealtimeConfig{
			ChannelPrefix: getString("REALTIME_CHANNEL_PREFIX", "realtime"),
			NotifyChannel: getString("REALTIME_NOTIFY_CHANNEL", "row_changes"),
			RetryInterval: getDuration("REALTIME_RETRY_SECONDS", 2*time.Second),
		},
		Workspace: WorkspaceConfig{
			IdleTTL:        getDuration("WORKSPACE_IDLE_TTL", 30*time.Minute),
			ResyncInterval: getDuration("WORKSPACE_RESYNC_SECONDS", 60*time.Second),
		},
		Outbox: OutboxConfig{
			Interval:   getDuration("AUDIT_OUTBOX_INTERVAL_SECONDS", 30*time.Second),
			BatchSize:  getInt("AUDIT_OUTBOX_BATCH_SIZE", 50),
			MaxRetries: getInt("AUDIT_OUTBOX_MAX_RETRIES", 5),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" && c.Environment == "production" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Overlay.Path == "" {
		return fmt.Errorf("BOLTDB_PATH must not be empty")
	}
	if c.Realtime.ChannelPrefix == "" || c.Realtime.NotifyChannel == "" {
		return fmt.Errorf("realtime channel names must not be empty")
	}
	if c.Workspace.IdleTTL < c.Workspace.ResyncInterval {
		return fmt.Errorf("WORKSPACE_IDLE_TTL (%s) is shorter than WORKSPACE_RESYNC_SECONDS (%s)", c.Workspace.IdleTTL, c.Workspace.ResyncInterval)
	}
	return nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
