package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	AuditDatabase *DatabaseConfig // Optional: separate DB for audit logs. When nil, audit uses main DB.
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	CookieName  string
}

// RateLimitConfig holds per-caller request budgets
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	IdleTTL           time.Duration
}

// AuditConfig holds async audit writer settings
type AuditConfig struct {
	BufferSize      int
	WorkerCount     int
	ShutdownTimeout time.Duration
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
	MetricsPort    int
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database:      loadDatabaseConfig(),
		AuditDatabase: loadAuditDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:   getEnv("AUTH_JWT_ISSUER", "wedding-platform"),
			JWTAudience: getEnv("AUTH_JWT_AUDIENCE", "wedding-platform-api"),
			CookieName:  getEnv("AUTH_COOKIE_NAME", "auth_token"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
			IdleTTL:           getEnvAsDuration("RATE_LIMIT_IDLE_TTL", 10*time.Minute),
		},
		Audit: AuditConfig{
			BufferSize:      getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount:     getEnvAsInt("AUDIT_WORKER_COUNT", 2),
			ShutdownTimeout: getEnvAsDuration("AUDIT_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	db := c.Database
	switch {
	case db.ConnectionString != "":
	case db.Host == "":
		fail("database configuration required: set DATABASE_URL or DB_HOST")
	default:
		if db.User == "" {
			fail("database user is required")
		}
		if db.Database == "" {
			fail("database name is required")
		}
	}

	switch {
	case c.Auth.JWTSecret == "":
		fail("AUTH_JWT_SECRET is required")
	case c.IsProduction() && len(c.Auth.JWTSecret) < 32:
		fail("AUTH_JWT_SECRET must be at least 32 bytes in production")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			fail("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive, got %d", c.RateLimit.RequestsPerMinute)
		}
		if c.RateLimit.Burst <= 0 {
			fail("RATE_LIMIT_BURST must be positive, got %d", c.RateLimit.Burst)
		}
	}

	if c.Audit.BufferSize <= 0 || c.Audit.WorkerCount <= 0 {
		fail("audit buffer size and worker count must be positive")
	}

	if c.Observability.LogLevel == "" {
		fail("log level is required")
	}

	return errors.Join(errs...)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "wedding"),
		Password:        getEnv("DB_PASSWORD", "wedding"),
		Database:        getEnv("DB_NAME", "wedding"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadAuditDatabaseConfig loads audit DB config from DATABASE_URL_AUDIT.
// Returns nil when not set (audit uses main DB).
func loadAuditDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL_AUDIT", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
