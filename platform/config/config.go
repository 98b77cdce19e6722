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

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler client/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GoogleOAuthConfig provides Google OAuth settings used by the recording
// sync (Drive) and Google Sheets integrations.
type GoogleOAuthConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

// AIConfig provides API keys for the AI provider registry.
type AIConfig interface {
	GetGroqAPIKey() string
	GetOpenAIAPIKey() string
	GetGeminiAPIKey() string
}

// StripeConfig provides settings for the billing module.
type StripeConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	IsBillingEnabled() bool
}

// EmailConfig provides settings for outbound notification email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// MinIOConfig provides settings for the recording archive bucket.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketRecordingArchive() string
	IsMinIOEnabled() bool
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
	AccessTokenTTL              time.Duration
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	GoogleClientID              string
	GoogleClientSecret          string
	GoogleRedirectURL           string
	GroqAPIKey                  string
	OpenAIAPIKey                string
	GeminiAPIKey                string
	StripeSecretKey             string
	StripeWebhookSecret         string
	EmailEnabled                bool
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinioBucketRecordingArchive string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// GoogleOAuthConfig implementation
func (c *Config) GetGoogleClientID() string     { return c.GoogleClientID }
func (c *Config) GetGoogleClientSecret() string { return c.GoogleClientSecret }
func (c *Config) GetGoogleRedirectURL() string  { return c.GoogleRedirectURL }

// AIConfig implementation
func (c *Config) GetGroqAPIKey() string   { return c.GroqAPIKey }
func (c *Config) GetOpenAIAPIKey() string { return c.OpenAIAPIKey }
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }

// StripeConfig implementation
func (c *Config) GetStripeSecretKey() string     { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string { return c.StripeWebhookSecret }
func (c *Config) IsBillingEnabled() bool         { return c.StripeSecretKey != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string               { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string              { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string              { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                   { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketRecordingArchive() string { return c.MinioBucketRecordingArchive }
func (c *Config) IsMinIOEnabled() bool                   { return c.MinIOEndpoint != "" }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, with .env support for
// local development. Missing required values return an error rather than
// panicking so the caller decides how to fail.
func Load() (*Config, error) {
	// Best effort: .env is optional outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 os.Getenv("DATABASE_URL"),
		JWTAccessSecret:             os.Getenv("JWT_ACCESS_SECRET"),
		AccessTokenTTL:              getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		CORSAllowAll:                getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:                 getList("CORS_ORIGINS"),
		CORSAllowCreds:              getBool("CORS_ALLOW_CREDENTIALS", true),
		RedisURL:                    os.Getenv("REDIS_URL"),
		RedisTLSInsecure:            getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            getInt("ASYNQ_CONCURRENCY", 10),
		GoogleClientID:              os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:          os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:           os.Getenv("GOOGLE_REDIRECT_URL"),
		GroqAPIKey:                  os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:                os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:                os.Getenv("GEMINI_API_KEY"),
		StripeSecretKey:             os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:         os.Getenv("STRIPE_WEBHOOK_SECRET"),
		EmailEnabled:                getBool("EMAIL_ENABLED", false),
		SMTPHost:                    os.Getenv("SMTP_HOST"),
		SMTPPort:                    getInt("SMTP_PORT", 587),
		SMTPUsername:                os.Getenv("SMTP_USERNAME"),
		SMTPPassword:                os.Getenv("SMTP_PASSWORD"),
		EmailFromName:               getEnv("EMAIL_FROM_NAME", "BharatCRM"),
		EmailFromAddress:            os.Getenv("EMAIL_FROM_ADDRESS"),
		MinIOEndpoint:               os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:              os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:              os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:                 getBool("MINIO_USE_SSL", false),
		MinioBucketRecordingArchive: getEnv("MINIO_BUCKET_RECORDING_ARCHIVE", "recording-archive"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
