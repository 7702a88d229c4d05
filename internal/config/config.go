package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int

	RedisURL      string
	RedisPassword string
	RedisDB       int

	HTTPAddr       string
	TerminalID     string
	AllowedOrigins []string

	DebounceWindow    time.Duration
	AuditQueueSize    int
	AuditWriteTimeout time.Duration
	ProductCacheTTL   time.Duration
	ChannelPrefix     string

	ExportFunctionURL string
	ExportTimeout     time.Duration

	LogLevel    string
	LogFormat   string
	OTELEnabled bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "app_user"),
		Password: getEnv("DB_PASSWORD", "postgres_password"),
		DBName:   getEnv("DB_NAME", "minimart"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		TerminalID:     getEnv("TERMINAL_ID", "till-1"),
		AllowedOrigins: getEnvAsList("WS_ALLOWED_ORIGINS"),

		DebounceWindow:    getEnvAsDuration("CART_DEBOUNCE_WINDOW", time.Second),
		AuditQueueSize:    getEnvAsInt("AUDIT_QUEUE_SIZE", 256),
		AuditWriteTimeout: getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
		ProductCacheTTL:   getEnvAsDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		ChannelPrefix:     getEnv("REALTIME_CHANNEL_PREFIX", "pos"),

		ExportFunctionURL: getEnv("EXPORT_FUNCTION_URL", ""),
		ExportTimeout:     getEnvAsDuration("EXPORT_TIMEOUT", 30*time.Second),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		OTELEnabled: getEnvAsBool("OTEL_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: DB_MAX_CONNS must be positive", ErrInvalidConfig)
	}
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("%w: CART_DEBOUNCE_WINDOW must be positive", ErrInvalidConfig)
	}
	if c.AuditQueueSize <= 0 {
		return fmt.Errorf("%w: AUDIT_QUEUE_SIZE must be positive", ErrInvalidConfig)
	}
	if c.AuditWriteTimeout <= 0 {
		return fmt.Errorf("%w: AUDIT_WRITE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.ProductCacheTTL <= 0 {
		return fmt.Errorf("%w: PRODUCT_CACHE_TTL must be positive", ErrInvalidConfig)
	}
	if c.ExportTimeout <= 0 {
		return fmt.Errorf("%w: EXPORT_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.ChannelPrefix == "" {
		return fmt.Errorf("%w: REALTIME_CHANNEL_PREFIX cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// DSN builds the key/value connection string understood by pgx.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
		c.MaxConns,
	)
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
