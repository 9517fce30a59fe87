package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SeedFile optionally preloads customers and products into the memory driver.
	SeedFile string
}

// DSN returns the connection string handed to sqlx.
func (d DatabaseConfig) DSN() string {
	return d.URL
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SchedulerConfig struct {
	OverdueCron string
	Timezone    string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	MinPurchaseAmount string
	MaxInstallments   int
	TxMaxRetries      int
	IdempotencyTTL    string
	// PendingTTL bounds how long an unfinished payment holds its idempotency key.
	PendingTTL     string
	StatusCacheTTL string
}

type HealthConfig struct {
	Timeout string
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DATABASE_SEED_FILE", "")
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SCHEDULER_OVERDUE_CRON", "0 5 0 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MIN_PURCHASE_AMOUNT", "100.00")
	v.SetDefault("MAX_INSTALLMENTS", 60)
	v.SetDefault("TX_MAX_RETRIES", 3)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("IDEMPOTENCY_PENDING_TTL", "30s")
	v.SetDefault("STATUS_CACHE_TTL", "10m")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	v.AutomaticEnv()

	config := Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DATABASE_DRIVER"),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
			SeedFile:        v.GetString("DATABASE_SEED_FILE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Scheduler: SchedulerConfig{
			OverdueCron: v.GetString("SCHEDULER_OVERDUE_CRON"),
			Timezone:    v.GetString("SCHEDULER_TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			MinPurchaseAmount: v.GetString("MIN_PURCHASE_AMOUNT"),
			MaxInstallments:   v.GetInt("MAX_INSTALLMENTS"),
			TxMaxRetries:      v.GetInt("TX_MAX_RETRIES"),
			IdempotencyTTL:    v.GetString("IDEMPOTENCY_TTL"),
			PendingTTL:        v.GetString("IDEMPOTENCY_PENDING_TTL"),
			StatusCacheTTL:    v.GetString("STATUS_CACHE_TTL"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}

	// Validate minimum purchase amount
	minPurchase, err := decimal.NewFromString(c.Business.MinPurchaseAmount)
	if err != nil {
		return fmt.Errorf("MIN_PURCHASE_AMOUNT must be a valid decimal: %w", err)
	}
	if minPurchase.IsNegative() {
		return fmt.Errorf("MIN_PURCHASE_AMOUNT must not be negative")
	}

	if c.Business.MaxInstallments <= 0 {
		return fmt.Errorf("MAX_INSTALLMENTS must be greater than 0")
	}

	if c.Business.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}

	if c.Scheduler.OverdueCron == "" {
		return fmt.Errorf("SCHEDULER_OVERDUE_CRON is required")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	for key, value := range map[string]string{
		"IDEMPOTENCY_TTL":         c.Business.IdempotencyTTL,
		"IDEMPOTENCY_PENDING_TTL": c.Business.PendingTTL,
		"STATUS_CACHE_TTL":        c.Business.StatusCacheTTL,
		"HEALTH_CHECK_TIMEOUT":    c.Health.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	if pending := c.GetPendingTTL(); pending <= 0 || pending > c.GetIdempotencyTTL() {
		return fmt.Errorf("IDEMPOTENCY_PENDING_TTL must be positive and no longer than IDEMPOTENCY_TTL")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetMinPurchaseAmount returns the purchase floor as decimal
func (c *Config) GetMinPurchaseAmount() decimal.Decimal {
	amount, _ := decimal.NewFromString(c.Business.MinPurchaseAmount)
	return amount
}

// GetLocation returns the scheduler timezone; "today" is evaluated in it.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetIdempotencyTTL returns how long payment idempotency keys are remembered
func (c *Config) GetIdempotencyTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.IdempotencyTTL)
	return ttl
}

// GetPendingTTL returns the lease an in-flight payment holds on its idempotency key
func (c *Config) GetPendingTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.PendingTTL)
	return ttl
}

// GetStatusCacheTTL returns the account status cache lifetime
func (c *Config) GetStatusCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.StatusCacheTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
