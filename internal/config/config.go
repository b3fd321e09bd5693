package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Payment provider configuration
	Payment PaymentConfig

	// Booking and settlement rules
	Booking BookingConfig

	// Scheduled jobs
	Cron CronConfig

	// Notification delivery
	Notify NotifyConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// IsProduction reports whether the server runs with production safeguards
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "postgres" (lib/pq) or "pgx" (jackc/pgx stdlib)
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
	EnableAuditLog   bool
}

// PaymentConfig holds payment provider configuration
type PaymentConfig struct {
	APIURL           string // Provider REST base URL
	SecretKey        string // Provider API key (SECRET - never expose to client)
	WebhookSecret    string // Shared secret for webhook signatures
	SuccessURL       string // Checkout redirect on success
	CancelURL        string // Checkout redirect on cancel
	WebhookTolerance time.Duration
}

// BookingConfig holds pricing and settlement rules
type BookingConfig struct {
	Currency           string
	CurrencyMinorUnits int32
	PlatformFeePercent decimal.Decimal // deducted before crediting host earnings
	HorizonRollEnabled bool
}

// CronConfig holds the schedules (with seconds field) of background jobs
type CronConfig struct {
	HorizonSchedule    string
	CompletionSchedule string
	PayoutSchedule     string
}

// NotifyConfig holds notification gateway configuration
type NotifyConfig struct {
	Mode   string // "log" or "http"
	APIURL string
	APIKey string
	Sender string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Payment: PaymentConfig{
			APIURL:           getEnv("PAYMENT_API_URL", "https://api.stripe.com/v1"),
			SecretKey:        getEnv("PAYMENT_SECRET_KEY", ""),
			WebhookSecret:    getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			SuccessURL:       getEnv("PAYMENT_SUCCESS_URL", ""),
			CancelURL:        getEnv("PAYMENT_CANCEL_URL", ""),
			WebhookTolerance: time.Duration(getEnvAsInt("PAYMENT_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
		},
		Booking: BookingConfig{
			Currency:           strings.ToLower(getEnv("BOOKING_CURRENCY", "usd")),
			CurrencyMinorUnits: int32(getEnvAsInt("BOOKING_CURRENCY_MINOR_UNITS", 2)),
			PlatformFeePercent: getEnvAsDecimal("PLATFORM_FEE_PERCENT", decimal.Zero),
			HorizonRollEnabled: getEnvAsBool("HORIZON_ROLL_ENABLED", true),
		},
		Cron: CronConfig{
			HorizonSchedule:    getEnv("CRON_HORIZON_SCHEDULE", "0 0 2 * * *"),
			CompletionSchedule: getEnv("CRON_COMPLETION_SCHEDULE", "0 15 0 * * *"),
			PayoutSchedule:     getEnv("CRON_PAYOUT_SCHEDULE", "0 0 * * * *"),
		},
		Notify: NotifyConfig{
			Mode:   getEnv("NOTIFY_MODE", "log"),
			APIURL: getEnv("NOTIFY_API_URL", ""),
			APIKey: getEnv("NOTIFY_API_KEY", ""),
			Sender: getEnv("NOTIFY_SENDER", "StayNest"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'postgres' or 'pgx')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// Provider credentials are only mandatory where real money moves
	if c.Server.IsProduction() {
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("PAYMENT_SECRET_KEY is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
	}

	fee := c.Booking.PlatformFeePercent
	if fee.IsNegative() || fee.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100, got %s", fee.String())
	}

	if c.Booking.CurrencyMinorUnits < 0 || c.Booking.CurrencyMinorUnits > 4 {
		return fmt.Errorf("BOOKING_CURRENCY_MINOR_UNITS must be between 0 and 4")
	}

	if c.Notify.Mode == "http" && c.Notify.APIURL == "" {
		return fmt.Errorf("NOTIFY_API_URL is required when NOTIFY_MODE=http")
	} else if c.Notify.Mode != "http" && c.Notify.Mode != "log" {
		return fmt.Errorf("invalid NOTIFY_MODE: %s (must be 'log' or 'http')", c.Notify.Mode)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("Invalid decimal value for %s, using default: %s", key, defaultValue.String())
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
