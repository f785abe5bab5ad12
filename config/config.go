package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	PortalAPI     PortalAPIConfig
	Session       SessionConfig
	Receipt       ReceiptConfig
	Bank          BankConfig
	Reference     ReferenceConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

// PortalAPIConfig is the single source of the admissions API endpoint.
type PortalAPIConfig struct {
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
}

type SessionConfig struct {
	JWTSecret  string
	JWTIssuer  string
	TTLMinutes int
}

type ReceiptConfig struct {
	MaxBytes        int64
	MaxPixels       int
	PreviewMaxPixel int
}

// BankConfig holds the account details shown for bank transfers
type BankConfig struct {
	AccountName   string
	AccountNumber string
	IFSC          string
	Branch        string
}

type ReferenceConfig struct {
	TTLMinutes int
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8090")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://apply.litschool.in")
	v.SetDefault("PORTAL_API_TIMEOUT_SECONDS", 15)
	v.SetDefault("PORTAL_API_MAX_RETRIES", 3)
	v.SetDefault("JWT_ISSUER", "admissions-portal")
	v.SetDefault("SESSION_TTL_MINUTES", 60)
	v.SetDefault("RECEIPT_MAX_BYTES", 10*1024*1024)
	v.SetDefault("RECEIPT_MAX_PIXELS", 40_000_000)
	v.SetDefault("RECEIPT_PREVIEW_MAX_PIXELS", 480)
	v.SetDefault("REFERENCE_CACHE_TTL", 30) // minutes
	v.SetDefault("BANK_ACCOUNT_NAME", "LITschool")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_SERVICE_NAME", "admissions-portal")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "litschool")
	v.SetDefault("O11Y_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "admissions-portal")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		PortalAPI: PortalAPIConfig{
			BaseURL:        strings.TrimRight(v.GetString("PORTAL_API_BASE_URL"), "/"),
			TimeoutSeconds: v.GetInt("PORTAL_API_TIMEOUT_SECONDS"),
			MaxRetries:     v.GetInt("PORTAL_API_MAX_RETRIES"),
		},
		Session: SessionConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			JWTIssuer:  v.GetString("JWT_ISSUER"),
			TTLMinutes: v.GetInt("SESSION_TTL_MINUTES"),
		},
		Receipt: ReceiptConfig{
			MaxBytes:        v.GetInt64("RECEIPT_MAX_BYTES"),
			MaxPixels:       v.GetInt("RECEIPT_MAX_PIXELS"),
			PreviewMaxPixel: v.GetInt("RECEIPT_PREVIEW_MAX_PIXELS"),
		},
		Bank: BankConfig{
			AccountName:   v.GetString("BANK_ACCOUNT_NAME"),
			AccountNumber: v.GetString("BANK_ACCOUNT_NUMBER"),
			IFSC:          v.GetString("BANK_IFSC"),
			Branch:        v.GetString("BANK_BRANCH"),
		},
		Reference: ReferenceConfig{
			TTLMinutes: v.GetInt("REFERENCE_CACHE_TTL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if c.PortalAPI.BaseURL == "" {
		return fmt.Errorf("PORTAL_API_BASE_URL is required")
	}
	if u, err := url.Parse(c.PortalAPI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PORTAL_API_BASE_URL must be an absolute URL, got %q", c.PortalAPI.BaseURL)
	}
	if c.PortalAPI.TimeoutSeconds <= 0 {
		return fmt.Errorf("PORTAL_API_TIMEOUT_SECONDS must be positive")
	}
	if c.PortalAPI.MaxRetries < 0 {
		return fmt.Errorf("PORTAL_API_MAX_RETRIES must not be negative")
	}

	if c.Session.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	if c.Receipt.MaxBytes <= 0 {
		return fmt.Errorf("RECEIPT_MAX_BYTES must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// APITimeout returns the per-request timeout for admissions API calls
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.PortalAPI.TimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle workflow session is kept
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// ReferenceTTL returns how long reference data stays cached
func (c *Config) ReferenceTTL() time.Duration {
	return time.Duration(c.Reference.TTLMinutes) * time.Minute
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
