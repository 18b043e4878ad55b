// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the operator auth middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// ProcessorConfig provides settings for the payment processor client.
type ProcessorConfig interface {
	GetProcessorSecretKey() string
	GetProcessorWebhookSecret() string
	GetProcessorTimeout() time.Duration
}

// SMTPConfig provides settings for SMTP notification delivery.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetStaffEmailAddress() string
	IsEmailEnabled() bool
}

// NotificationPolicyConfig provides the origin allow-list that gates
// customer-facing notifications.
type NotificationPolicyConfig interface {
	GetNotificationAllowedOrigins() []string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCertificates() string
	IsMinIOEnabled() bool
}

// GotenbergConfig provides settings for the Gotenberg HTML-to-PDF service.
type GotenbergConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CommissionConfig provides settings for commission accounting.
type CommissionConfig interface {
	GetCommissionBasisPoints() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	JWTAccessSecret             string
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	AppBaseURL                  string
	ProcessorSecretKey          string
	ProcessorWebhookSecret      string
	ProcessorTimeout            time.Duration
	EmailEnabled                bool
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	StaffEmailAddress           string
	NotificationAllowedOrigins  []string
	MinIOEnabled                bool
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinioBucketCertificates     string
	GotenbergURL                string
	GotenbergUsername           string
	GotenbergPassword           string
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	CommissionBasisPoints       int
}

// Load reads configuration from environment variables. In development a .env
// file is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		JWTAccessSecret:            os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:               getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:                getEnvList("CORS_ORIGINS"),
		CORSAllowCreds:             getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:8080"),
		ProcessorSecretKey:         os.Getenv("PROCESSOR_SECRET_KEY"),
		ProcessorWebhookSecret:     os.Getenv("PROCESSOR_WEBHOOK_SECRET"),
		ProcessorTimeout:           getEnvDuration("PROCESSOR_TIMEOUT", 15*time.Second),
		EmailEnabled:               getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:                   os.Getenv("SMTP_HOST"),
		SMTPPort:                   getEnvInt("SMTP_PORT", 587),
		SMTPUsername:               os.Getenv("SMTP_USERNAME"),
		SMTPPassword:               os.Getenv("SMTP_PASSWORD"),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Service Desk"),
		EmailFromAddress:           os.Getenv("EMAIL_FROM_ADDRESS"),
		StaffEmailAddress:          os.Getenv("STAFF_EMAIL_ADDRESS"),
		NotificationAllowedOrigins: getEnvList("NOTIFICATION_ALLOWED_ORIGINS"),
		MinIOEnabled:               getEnvBool("MINIO_ENABLED", true),
		MinIOEndpoint:              os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:             os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:             os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:                getEnvBool("MINIO_USE_SSL", false),
		MinioBucketCertificates:    getEnv("MINIO_BUCKET_CERTIFICATES", "certificates"),
		GotenbergURL:               os.Getenv("GOTENBERG_URL"),
		GotenbergUsername:          os.Getenv("GOTENBERG_USERNAME"),
		GotenbergPassword:          os.Getenv("GOTENBERG_PASSWORD"),
		RedisURL:                   os.Getenv("REDIS_URL"),
		RedisTLSInsecure:           getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:             getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:           getEnvInt("ASYNQ_CONCURRENCY", 10),
		CommissionBasisPoints:      getEnvInt("COMMISSION_BASIS_POINTS", 500),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string    { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetAppBaseURL() string    { return c.AppBaseURL }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetProcessorSecretKey() string        { return c.ProcessorSecretKey }
func (c *Config) GetProcessorWebhookSecret() string    { return c.ProcessorWebhookSecret }
func (c *Config) GetProcessorTimeout() time.Duration   { return c.ProcessorTimeout }

func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetStaffEmailAddress() string { return c.StaffEmailAddress }
func (c *Config) IsEmailEnabled() bool        { return c.EmailEnabled }

func (c *Config) GetNotificationAllowedOrigins() []string { return c.NotificationAllowedOrigins }

func (c *Config) GetMinIOEndpoint() string           { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string          { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string          { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool               { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCertificates() string { return c.MinioBucketCertificates }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEnabled }

func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetCommissionBasisPoints() int { return c.CommissionBasisPoints }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
