package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/archive"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/AmiraaaF/Projet-Rust/pkg/storage"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BILLING_SERVER_PORT
const EnvPrefix = "BILLING"

// Auth modes
const (
	AuthModeHMAC = "hmac"
	AuthModeOIDC = "oidc"
)

// Rate limit backends
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       storage.Config      `mapstructure:"storage"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Archive       archive.Config      `mapstructure:"archive"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Addr returns host:port for http.Server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Mode          string        `mapstructure:"mode"`
	HMACSecret    string        `mapstructure:"hmac_secret"`
	Issuer        string        `mapstructure:"issuer"`
	OIDCIssuerURL string        `mapstructure:"oidc_issuer_url"`
	OIDCClientID  string        `mapstructure:"oidc_client_id"`
	CacheSize     int           `mapstructure:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig holds request rate limiting settings
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Backend           string        `mapstructure:"backend"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
	Burst             int           `mapstructure:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	OTelEnabled        bool    `mapstructure:"otel_enabled"`
	OTelEndpoint       string  `mapstructure:"otel_endpoint"`
	OTelServiceName    string  `mapstructure:"otel_service_name"`
	OTelServiceVersion string  `mapstructure:"otel_service_version"`
	OTelInsecure       bool    `mapstructure:"otel_insecure"`
	OTelSampleRatio    float64 `mapstructure:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings for observability.InitOTel
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	st := storage.DefaultConfig()
	v.SetDefault("storage.driver", st.Driver)
	v.SetDefault("storage.database_url", st.DatabaseURL)
	v.SetDefault("storage.max_conns", st.MaxConns)
	v.SetDefault("storage.min_conns", st.MinConns)
	v.SetDefault("storage.timeout", st.Timeout)
	v.SetDefault("storage.max_lifetime", st.MaxLifetime)
	v.SetDefault("storage.max_idle_time", st.MaxIdleTime)
	v.SetDefault("storage.auto_migrate", st.AutoMigrate)
	v.SetDefault("storage.redis_url", st.RedisURL)
	v.SetDefault("storage.redis_password", st.RedisPassword)
	v.SetDefault("storage.redis_db", st.RedisDB)
	v.SetDefault("storage.redis_max_retries", st.RedisMaxRetries)
	v.SetDefault("storage.redis_pool_size", st.RedisPoolSize)

	v.SetDefault("auth.mode", AuthModeHMAC)
	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.oidc_issuer_url", "")
	v.SetDefault("auth.oidc_client_id", "")
	v.SetDefault("auth.cache_size", 4096)
	v.SetDefault("auth.cache_ttl", time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", RateLimitMemory)
	v.SetDefault("rate_limit.requests_per_window", 300)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", string(observability.FormatJSON))
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.otel_enabled", false)
	v.SetDefault("observability.otel_endpoint", "localhost:4317")
	v.SetDefault("observability.otel_service_name", "billing-server")
	v.SetDefault("observability.otel_service_version", "dev")
	v.SetDefault("observability.otel_insecure", true)
	v.SetDefault("observability.otel_sample_ratio", 1.0)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.prefix", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.use_path_style", false)
}

// Load reads defaults, then the YAML file at path (when path is non-empty,
// otherwise an optional billing.yaml in . or ./configs), then BILLING_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	if _, err := storage.ParseDialect(c.Storage.Driver); err != nil {
		return err
	}
	if c.Storage.DatabaseURL == "" {
		return errors.New("storage database url is required")
	}

	switch c.Auth.Mode {
	case AuthModeHMAC:
		if len(c.Auth.HMACSecret) < 16 {
			return errors.New("auth hmac secret must be at least 16 bytes")
		}
	case AuthModeOIDC:
		if c.Auth.OIDCIssuerURL == "" || c.Auth.OIDCClientID == "" {
			return errors.New("auth oidc issuer url and client id are required")
		}
	default:
		return fmt.Errorf("invalid auth mode: %s (must be hmac or oidc)", c.Auth.Mode)
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitMemory:
		case RateLimitRedis:
			if c.Storage.RedisURL == "" {
				return errors.New("storage redis url is required for the redis rate limiter")
			}
		default:
			return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
		}
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("rate limit requests and window must be positive")
		}
	}

	switch observability.LogFormat(c.Observability.LogFormat) {
	case observability.FormatJSON, observability.FormatText:
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("archive bucket is required when archiving is enabled")
	}

	return nil
}
