package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the auth service and the portals.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
	Portal    PortalConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr keeps exchange
// codes in process memory.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                string
	AccessTokenTTLMinutes    int
	RefreshTokenTTLMinutes   int
	DiagnosticCodeTTLSeconds int
	BcryptCost               int
}

// CookieConfig controls the attributes of the credential cookies.
type CookieConfig struct {
	Secure          bool
	SameSite        string
	AccessName      string
	RefreshName     string
	StaffAccessName string
}

// RateLimitConfig bounds login and exchange attempts per client IP.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// SeedConfig controls demo user seeding at startup.
type SeedConfig struct {
	Enabled   bool
	UsersFile string
}

// PortalConfig is read by the portal CLI.
type PortalConfig struct {
	APIURL         string
	APIPrefix      string
	CustomerAppURL string
	TimeoutSeconds int
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
			Name:                  getEnv("APP_NAME", "diagnostic-auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "diagnostic:code:"),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 3),
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 5),
			RefreshTokenTTLMinutes:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_MINUTES", 60*24),
			DiagnosticCodeTTLSeconds: getEnvAsInt("AUTH_DIAGNOSTIC_CODE_TTL_SECONDS", 60),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Cookie: CookieConfig{
			Secure:          getEnvAsBool("COOKIE_SECURE", false),
			SameSite:        getEnv("COOKIE_SAMESITE", "Lax"),
			AccessName:      getEnv("COOKIE_ACCESS_NAME", "access_token"),
			RefreshName:     getEnv("COOKIE_REFRESH_NAME", "refresh_token"),
			StaffAccessName: getEnv("COOKIE_STAFF_ACCESS_NAME", "staff_access_token"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Seed: SeedConfig{
			Enabled:   getEnvAsBool("SEED_USERS", false),
			UsersFile: os.Getenv("SEED_USERS_FILE"),
		},
		Portal: PortalConfig{
			APIURL:         getEnv("PORTAL_API_URL", "http://localhost:8000"),
			APIPrefix:      getEnv("PORTAL_API_PREFIX", "/api/auth"),
			CustomerAppURL: getEnv("PORTAL_CUSTOMER_APP_URL", "http://localhost:3002"),
			TimeoutSeconds: getEnvAsInt("PORTAL_TIMEOUT_SECONDS", 30),
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

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return minutesOr(a.AccessTokenTTLMinutes, 5)
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return minutesOr(a.RefreshTokenTTLMinutes, 60*24)
}

// DiagnosticCodeTTL returns how long a minted exchange code stays redeemable.
func (a AuthConfig) DiagnosticCodeTTL() time.Duration {
	if a.DiagnosticCodeTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.DiagnosticCodeTTLSeconds) * time.Second
}

// Timeout returns the portal HTTP timeout.
func (p PortalConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func minutesOr(minutes, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
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
