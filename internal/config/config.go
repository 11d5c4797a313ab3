// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Database settings. An empty URL selects the in-memory store.
	DatabaseURL   string
	DBAutoMigrate bool

	// NATS settings. An empty URL disables event publishing.
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// NATSMaxReconnects < 0 retries forever.
	NATSMaxReconnects int
	NATSReconnectWait time.Duration

	// Auth settings
	JWTSecret    string
	WebhookToken string

	// LLM settings
	LLMProvider           string
	AnthropicAPIKey       string
	OpenAIAPIKey          string
	AzureOpenAIEndpoint   string
	AzureOpenAIDeployment string
	VisionModel           string

	// Object storage for uploaded photos
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	S3PublicBaseURL string

	// Flow settings
	GaragesFile        string
	GarageCacheSize    int
	GeolocationURL     string
	DeclarationBaseURL string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	Environment string
	LogLevel    string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from a .env file, if present, and the
// environment. Real environment variables win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Database
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DBAutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		NATSMaxReconnects: getIntEnv("NATS_MAX_RECONNECTS", -1),
		NATSReconnectWait: getDurationEnv("NATS_RECONNECT_WAIT", 2*time.Second),

		// Auth
		JWTSecret:    getEnv("JWT_SECRET", "development-secret-change-in-production"),
		WebhookToken: getEnv("WEBHOOK_TOKEN", ""),

		// LLM
		LLMProvider:           strings.ToLower(getEnv("LLM_PROVIDER", "")),
		AnthropicAPIKey:       getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		AzureOpenAIEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
		VisionModel:           getEnv("VISION_MODEL", ""),

		// Object storage
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", "incident-images"),
		S3UseSSL:        getBoolEnv("S3_USE_SSL", false),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		// Flow
		GaragesFile:        getEnv("GARAGES_FILE", ""),
		GarageCacheSize:    getIntEnv("GARAGE_CACHE_SIZE", 256),
		GeolocationURL:     getEnv("GEOLOCATION_URL", "https://geolocation.hellasdirect.gr/"),
		DeclarationBaseURL: getEnv("DECLARATION_BASE_URL", "https://sign.hellasdirect.gr"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		Environment: strings.ToLower(getEnv("ENV", "production")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set"))
	}
	if c.AzureOpenAIEndpoint != "" && c.AzureOpenAIDeployment == "" {
		errs = append(errs, errors.New("AZURE_OPENAI_DEPLOYMENT is required when AZURE_OPENAI_ENDPOINT is set"))
	}
	switch c.LLMProvider {
	case "", "openai", "azure", "anthropic":
	default:
		errs = append(errs, errors.New("LLM_PROVIDER must be one of openai, azure, anthropic"))
	}
	return errors.Join(errs...)
}

// Development reports whether the server runs on a developer machine.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// StorageEnabled reports whether photo uploads go to object storage.
func (c *Config) StorageEnabled() bool {
	return c.S3Endpoint != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
