package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServiceConfig is the complete configuration of the tokenguard service.
type ServiceConfig struct {
	HTTP       HTTPConfig       `yaml:"http"`
	JWT        JWTConfig        `yaml:"jwt"`
	Revocation RevocationConfig `yaml:"revocation"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Logging    LoggingConfig    `yaml:"logging"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Users      []UserConfig     `yaml:"users" validate:"dive"`
}

// HTTPConfig represents listener settings
type HTTPConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// TrustProxyHeaders reads the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// JWTConfig represents token signing settings. ExpirationMs is the token
// lifetime in milliseconds.
type JWTConfig struct {
	Secret       string `yaml:"secret" validate:"required"`
	ExpirationMs int64  `yaml:"expiration_ms" validate:"gt=0"`
	Issuer       string `yaml:"issuer"`
	LeewayMs     int64  `yaml:"leeway_ms" validate:"gte=0,lte=120000"`
}

// RevocationConfig selects and tunes the revocation backend.
type RevocationConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=redis postgres memory"`
	KeyPrefix     string        `yaml:"key_prefix" validate:"required"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	FailOpen      bool          `yaml:"fail_open"`
	CacheSize     int           `yaml:"cache_size" validate:"gte=0"`
	CacheTTL      time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	PurgeInterval time.Duration `yaml:"purge_interval" validate:"gte=0"`
}

// RedisConfig represents the revocation Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// PostgresConfig represents the revocation database connection.
type PostgresConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// AuditConfig selects where audit events go.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BufferSize int    `yaml:"buffer_size" validate:"gte=0"`
	Sink       string `yaml:"sink" validate:"oneof=log stdout none"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// UserConfig is one account of the reference credential directory.
// PasswordHash is an encoded argon2id hash (see `tokenguard hash-password`).
type UserConfig struct {
	ID           string `yaml:"id" validate:"required"`
	Username     string `yaml:"username" validate:"required"`
	Email        string `yaml:"email" validate:"omitempty,email"`
	PasswordHash string `yaml:"password_hash" validate:"required"`
}

// Default returns the service defaults. JWT.Secret is empty.
func Default() *ServiceConfig {
	return &ServiceConfig{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		JWT: JWTConfig{
			ExpirationMs: 86400000,
		},
		Revocation: RevocationConfig{
			Backend:       "redis",
			KeyPrefix:     "jwt:blacklist:",
			Timeout:       500 * time.Millisecond,
			CacheTTL:      time.Minute,
			PurgeInterval: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Postgres: PostgresConfig{
			Table: "revoked_tokens",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			Sink:       "log",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (optional), then the dotenv files (".env" when none are named; missing files
// are skipped), then process environment overrides, and validates the result.
func Load(path string, envFiles ...string) (*ServiceConfig, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadDotenv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *ServiceConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *ServiceConfig) error {
	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	if v := os.Getenv("JWT_EXPIRATION_MS"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRATION_MS: %w", err)
		}
		cfg.JWT.ExpirationMs = ms
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}

	cfg.Revocation.Backend = strings.ToLower(getEnv("REVOCATION_BACKEND", cfg.Revocation.Backend))
	if v := os.Getenv("REVOCATION_FAIL_OPEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REVOCATION_FAIL_OPEN: %w", err)
		}
		cfg.Revocation.FailOpen = b
	}
	cfg.Postgres.URL = getEnv("DATABASE_URL", cfg.Postgres.URL)

	cfg.HTTP.Address = getEnv("HTTP_ADDR", cfg.HTTP.Address)
	if v := os.Getenv("HTTP_TRUST_PROXY_HEADERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HTTP_TRUST_PROXY_HEADERS: %w", err)
		}
		cfg.HTTP.TrustProxyHeaders = b
	}
	cfg.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(getEnv("LOG_FORMAT", cfg.Logging.Format))
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var validate = validator.New()

// Validate checks struct tags and backend-specific requirements.
func (c *ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Revocation.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis revocation backend")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return errors.New("postgres.url (DATABASE_URL) is required for the postgres revocation backend")
		}
	}

	seen := make(map[string]bool, len(c.Users)*2)
	for _, u := range c.Users {
		for _, key := range []string{strings.ToLower(u.Username), strings.ToLower(u.Email)} {
			if key == "" {
				continue
			}
			if seen[key] {
				return fmt.Errorf("duplicate user identifier %q", key)
			}
			seen[key] = true
		}
	}
	return nil
}

// TTL returns the configured token lifetime.
func (c *ServiceConfig) TTL() time.Duration {
	return time.Duration(c.JWT.ExpirationMs) * time.Millisecond
}

// Engine maps the service configuration onto the library configuration.
func (c *ServiceConfig) Engine() tokenguard.Config {
	cfg := tokenguard.DefaultConfig()
	cfg.Token.Secret = c.JWT.Secret
	cfg.Token.TTL = c.TTL()
	cfg.Token.Issuer = c.JWT.Issuer
	cfg.Token.Leeway = time.Duration(c.JWT.LeewayMs) * time.Millisecond

	cfg.Revocation.KeyPrefix = c.Revocation.KeyPrefix
	cfg.Revocation.Timeout = c.Revocation.Timeout
	cfg.Revocation.FailOpen = c.Revocation.FailOpen
	cfg.Revocation.CacheSize = c.Revocation.CacheSize
	if c.Revocation.CacheTTL > 0 {
		cfg.Revocation.CacheTTL = c.Revocation.CacheTTL
	}

	cfg.Audit.Enabled = c.Audit.Enabled && c.Audit.Sink != "none"
	if c.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = c.Audit.BufferSize
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled
	return cfg
}
