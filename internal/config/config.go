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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Sweeper  SweeperConfig
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

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig configures the outbound event exchange. An empty URL disables it.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// BookingConfig holds the booking rules.
type BookingConfig struct {
	MinDurationHours        int
	DefaultMaxDurationHours int
	BufferHours             int
	CooldownDays            int
	// Exclusivity is "resource" or "type".
	Exclusivity string
	// ResourcePolicy is "all" or "any".
	ResourcePolicy          string
	CooldownCountsCancelled bool
	CommitAttempts          int
	UserLockTTLSeconds      int
}

// SweeperConfig controls the lifecycle sweeper.
type SweeperConfig struct {
	IntervalSeconds int
	LockTTLSeconds  int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "labbook"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "labbook.events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Booking: BookingConfig{
			MinDurationHours:        getEnvAsInt("BOOKING_MIN_DURATION_HOURS", 1),
			DefaultMaxDurationHours: getEnvAsInt("BOOKING_DEFAULT_MAX_DURATION_HOURS", 8),
			BufferHours:             getEnvAsInt("BOOKING_BUFFER_HOURS", 2),
			CooldownDays:            getEnvAsInt("BOOKING_COOLDOWN_DAYS", 3),
			Exclusivity:             getEnv("BOOKING_EXCLUSIVITY", "resource"),
			ResourcePolicy:          getEnv("BOOKING_RESOURCE_POLICY", "all"),
			CooldownCountsCancelled: getEnvAsBool("BOOKING_COOLDOWN_COUNTS_CANCELLED", false),
			CommitAttempts:          getEnvAsInt("BOOKING_COMMIT_ATTEMPTS", 2),
			UserLockTTLSeconds:      getEnvAsInt("BOOKING_USER_LOCK_TTL_SECONDS", 10),
		},
		Sweeper: SweeperConfig{
			IntervalSeconds: getEnvAsInt("SWEEP_INTERVAL_SECONDS", 0),
			LockTTLSeconds:  getEnvAsInt("SWEEP_LOCK_TTL_SECONDS", 60),
		},
	}

	switch cfg.Booking.Exclusivity {
	case "resource", "type":
	default:
		return nil, fmt.Errorf("invalid BOOKING_EXCLUSIVITY %q: want resource or type", cfg.Booking.Exclusivity)
	}
	switch cfg.Booking.ResourcePolicy {
	case "all", "any":
	default:
		return nil, fmt.Errorf("invalid BOOKING_RESOURCE_POLICY %q: want all or any", cfg.Booking.ResourcePolicy)
	}
	if cfg.Booking.CommitAttempts < 1 {
		cfg.Booking.CommitAttempts = 1
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

// UserLockTTL bounds how long one user's booking request may hold its lock.
func (b BookingConfig) UserLockTTL() time.Duration {
	if b.UserLockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.UserLockTTLSeconds) * time.Second
}

// Interval returns the in-process sweep period; zero disables the ticker.
func (s SweeperConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// LockTTL bounds how long one sweep may hold the leader lock.
func (s SweeperConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
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
