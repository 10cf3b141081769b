package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	AI        AIConfig        `yaml:"ai" envconfig:"AI"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Content   ContentConfig   `yaml:"content" envconfig:"CONTENT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LicenseConfig describes the remote license server and the local check cadence
type LicenseConfig struct {
	ServerURL       string        `yaml:"server_url" envconfig:"SERVER_URL"`
	SecretKey       string        `yaml:"secret_key" envconfig:"SECRET_KEY"`
	ItemReference   string        `yaml:"item_reference" envconfig:"ITEM_REFERENCE"`
	SiteURL         string        `yaml:"site_url" envconfig:"SITE_URL"`
	ActivateTimeout time.Duration `yaml:"activate_timeout" envconfig:"ACTIVATE_TIMEOUT"`
	CheckTimeout    time.Duration `yaml:"check_timeout" envconfig:"CHECK_TIMEOUT"`
	CacheTTL        time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	Schedule        string        `yaml:"schedule" envconfig:"SCHEDULE"`
}

// StoreConfig selects the option store backend
type StoreConfig struct {
	Driver      string `yaml:"driver" envconfig:"DRIVER"`
	RedisAddr   string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	RedisPrefix string `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`
	PostgresDSN string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
}

// AIConfig configures the text generation provider
type AIConfig struct {
	Provider    string        `yaml:"provider" envconfig:"PROVIDER"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	Model       string        `yaml:"model" envconfig:"MODEL"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// AuthConfig configures administrator sessions and action nonces
type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	NonceTTL      time.Duration `yaml:"nonce_ttl" envconfig:"NONCE_TTL"`
	AdminUsername string        `yaml:"admin_username" envconfig:"ADMIN_USERNAME"`
	AdminPassword string        `yaml:"admin_password_hash" envconfig:"ADMIN_PASSWORD_HASH"`
	Users         []UserConfig  `yaml:"users" ignored:"true"`
}

// UserConfig is one administrator account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Capabilities []string `yaml:"capabilities"`
}

// ContentConfig lists content categories beyond the built-in ones
type ContentConfig struct {
	CustomPostTypes []string `yaml:"custom_post_types" envconfig:"CUSTOM_POST_TYPES"`
}

// TelemetryConfig toggles tracing and metrics export
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
}

// Load builds the configuration from defaults, an optional YAML file and
// SEOPILOT_* environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	case StoreDriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.License.ServerURL != "" {
		if _, err := url.ParseRequestURI(c.License.ServerURL); err != nil {
			return fmt.Errorf("invalid license server url: %w", err)
		}
	}
	if c.License.SiteURL != "" {
		u, err := url.Parse(c.License.SiteURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid site url %q", c.License.SiteURL)
		}
	}
	if c.License.CacheTTL <= 0 {
		return fmt.Errorf("license cache ttl must be positive")
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("auth.session_secret must be at least 32 bytes")
	}

	for _, pt := range c.Content.CustomPostTypes {
		if strings.TrimSpace(pt) == "" {
			return fmt.Errorf("custom post types must not be empty")
		}
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)

	return nil
}

// AllUsers returns the configured administrators, including the env-provided one
func (c *Config) AllUsers() []UserConfig {
	users := append([]UserConfig(nil), c.Auth.Users...)
	if c.Auth.AdminUsername != "" && c.Auth.AdminPassword != "" {
		users = append(users, UserConfig{
			Username:     c.Auth.AdminUsername,
			PasswordHash: c.Auth.AdminPassword,
			Capabilities: []string{CapabilityManageOptions},
		})
	}
	return users
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"seopilot.yaml",
		"configs/seopilot.yaml",
		"/etc/seopilot/seopilot.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: "logs/seopilot.log",
		},
		License: LicenseConfig{
			ServerURL:       DefaultLicenseServerURL,
			ItemReference:   DefaultItemReference,
			SiteURL:         "http://localhost:8080",
			ActivateTimeout: LicenseActivateTimeout,
			CheckTimeout:    LicenseCheckTimeout,
			CacheTTL:        LicenseCacheDuration,
			Schedule:        "@daily",
		},
		Store: StoreConfig{
			Driver:      StoreDriverMemory,
			RedisPrefix: "seopilot:",
		},
		AI: AIConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Auth: AuthConfig{
			SessionTTL: SessionTimeout,
			NonceTTL:   NonceLifetime,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			EnableMetrics: true,
		},
	}
}
