// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sturdy/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: generation model, router model, embedder model
//   - Storage: PostgreSQL connection for the pgvector document store
//   - Search: SearXNG instance and page-fetch limits
//   - Server: listen address, rate limiting
//
// Sensitive fields (the PostgreSQL password) are masked in MarshalJSON and
// String so the config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is.
var (
	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidSearchURL indicates the SearXNG base URL is malformed.
	ErrInvalidSearchURL = errors.New("invalid search base URL")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")
)

// DefaultEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality; our pgvector schema stores 768
// dimensions (see knowledge.VectorDimension).
const DefaultEmbedderModel = "gemini-embedding-001"

// SearchConfig holds SearXNG service configuration for the practice-problem
// web search.
type SearchConfig struct {
	// BaseURL is the SearXNG instance URL (e.g., http://searxng:8080)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// MaxResults caps how many search hits are analyzed (hard cap 5).
	MaxResults int `mapstructure:"max_results" json:"max_results"`
	// FetchPages enables fetching and extracting full result pages.
	FetchPages bool `mapstructure:"fetch_pages" json:"fetch_pages"`
	// Parallelism is max concurrent page fetches per domain.
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is the delay between page fetches in milliseconds.
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is the per-request timeout in milliseconds.
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// OtelConfig holds OTLP trace export configuration.
type OtelConfig struct {
	// Endpoint is the OTLP HTTP collector address (host:port).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment tags exported spans (e.g., dev, prod).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName identifies this service in traces.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Enabled turns trace export on. Default: false.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName       string `mapstructure:"model_name" json:"model_name"`               // generation model (e.g., "gemini-2.5-pro")
	RouterModelName string `mapstructure:"router_model_name" json:"router_model_name"` // fast classifier model
	EmbedderModel   string `mapstructure:"embedder_model" json:"embedder_model"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k" json:"top_k"` // documents per similarity search

	// Ingestion configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`       // characters per chunk
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"` // characters of overlap

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`   // per-IP token bucket burst (0 = default)
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For for rate limiting

	// Web search configuration
	Search SearchConfig `mapstructure:"search" json:"search"`

	// Observability configuration
	Otel OtelConfig `mapstructure:"otel" json:"otel"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sturdy")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults + env carry the day.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* fields when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("model_name", "gemini-2.5-pro")
	v.SetDefault("router_model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval defaults
	v.SetDefault("top_k", 4)

	// Ingestion defaults
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sturdy")
	v.SetDefault("postgres_password", "sturdy_dev_password")
	v.SetDefault("postgres_db_name", "sturdy")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("rate_burst", 60)
	v.SetDefault("trust_proxy", false)

	// Search defaults
	v.SetDefault("search.base_url", "http://localhost:8888")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.fetch_pages", true)
	v.SetDefault("search.parallelism", 2)
	v.SetDefault("search.delay_ms", 1000)
	v.SetDefault("search.timeout_ms", 30000)

	// Otel defaults
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.environment", "dev")
	v.SetDefault("otel.service_name", "sturdy")
	v.SetDefault("otel.enabled", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// NOTE: GEMINI_API_KEY is read directly by Genkit's Google AI plugin, not via
// Viper; Validate only checks its presence.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "STURDY_MODEL_NAME")
	mustBind("router_model_name", "STURDY_ROUTER_MODEL_NAME")
	mustBind("embedder_model", "STURDY_EMBEDDER_MODEL")
	mustBind("listen_addr", "STURDY_LISTEN_ADDR")
	mustBind("rate_burst", "STURDY_RATE_BURST")
	mustBind("trust_proxy", "STURDY_TRUST_PROXY")
	mustBind("search.base_url", "STURDY_SEARXNG_URL")
	mustBind("otel.enabled", "STURDY_OTEL_ENABLED")
	mustBind("otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// parseDatabaseURL overrides the postgres_* fields from DATABASE_URL if set.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if p := u.Port(); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &c.PostgresPort); err != nil {
			return fmt.Errorf("parsing port %q: %w", p, err)
		}
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// Validate checks the configuration for invalid values.
// Returns sentinel errors (wrapped) so callers can use errors.Is.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.RouterModelName) == "" {
		return fmt.Errorf("%w: router_model_name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidEmbedderModel)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidTopK, c.TopK)
	}
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be 1-65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name is empty", ErrInvalidPostgresDBName)
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("%w: search.base_url is empty", ErrInvalidSearchURL)
	}
	if u, err := url.Parse(c.Search.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSearchURL, c.Search.BaseURL)
	}
	return nil
}

// PostgresConnectionString returns the key=value connection string for pgx.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}

// PostgresURL returns the postgres:// URL form used by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser), url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDBName, c.PostgresSSLMode)
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
