package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Bitrix  BitrixConfig
	Static  StaticConfig
	Session SessionConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the service runs in production mode
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// BitrixConfig holds settings of the outgoing portal REST client
type BitrixConfig struct {
	Scheme          string        // https, or http for local portals
	Timeout         time.Duration // 0 keeps the transport default
	RateLimit       float64       // requests per second per client, 0 disables limiting
	RateBurst       int
	MaxResponseSize int64
}

// StaticConfig holds settings for serving the pre-built frontend bundle
type StaticConfig struct {
	Dir string
}

// SessionConfig holds settings the dashboard uses to acquire a portal session
type SessionConfig struct {
	DevMode      bool
	Domain       string
	AccessToken  string
	MemberID     string
	ProxyURL     string
	ProbeMethod  string
	FixtureDelay time.Duration
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
}

// TracingConfig holds OpenTelemetry middleware settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with B24_ prefix (e.g., B24_BITRIX_RATE_LIMIT),
// with PORT and NODE_ENV accepted for app.port and app.env
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("B24")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	_ = v.BindEnv("app.port", "B24_APP_PORT", "PORT")
	_ = v.BindEnv("app.env", "B24_APP_ENV", "NODE_ENV")

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Bitrix: BitrixConfig{
			Scheme:          v.GetString("bitrix.scheme"),
			Timeout:         v.GetDuration("bitrix.timeout"),
			RateLimit:       v.GetFloat64("bitrix.rate_limit"),
			RateBurst:       v.GetInt("bitrix.rate_burst"),
			MaxResponseSize: v.GetInt64("bitrix.max_response_size"),
		},
		Static: StaticConfig{
			Dir: v.GetString("static.dir"),
		},
		Session: SessionConfig{
			DevMode:      v.GetBool("session.dev_mode"),
			Domain:       v.GetString("session.domain"),
			AccessToken:  v.GetString("session.access_token"),
			MemberID:     v.GetString("session.member_id"),
			ProxyURL:     v.GetString("session.proxy_url"),
			ProbeMethod:  v.GetString("session.probe_method"),
			FixtureDelay: v.GetDuration("session.fixture_delay"),
		},
		Metrics: MetricsConfig{
			Enabled: !v.IsSet("metrics.enabled") || v.GetBool("metrics.enabled"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
		},
	}

	// The probe can be disabled explicitly with an empty value
	if !v.IsSet("session.probe_method") {
		cfg.Session.ProbeMethod = "profile"
	}
	// Negative rate means "unset"; zero disables limiting
	if !v.IsSet("bitrix.rate_limit") {
		cfg.Bitrix.RateLimit = -1
	}
	if !v.IsSet("bitrix.timeout") {
		cfg.Bitrix.Timeout = -1
	}
	if !v.IsSet("session.fixture_delay") {
		cfg.Session.FixtureDelay = -1
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "b24-proxy"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.IsProduction() {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Bitrix.Scheme == "" {
		cfg.Bitrix.Scheme = "https"
	}
	if cfg.Bitrix.Timeout < 0 {
		cfg.Bitrix.Timeout = 30 * time.Second
	}
	if cfg.Bitrix.RateLimit < 0 {
		cfg.Bitrix.RateLimit = 2 // Bitrix24 allows about 2 requests/second per portal
	}
	if cfg.Bitrix.RateBurst == 0 {
		cfg.Bitrix.RateBurst = 2
	}
	if cfg.Bitrix.MaxResponseSize == 0 {
		cfg.Bitrix.MaxResponseSize = 10 << 20 // 10MB
	}
	if cfg.Static.Dir == "" {
		// The bundle's server runs from <bundle>/src, the assets sit one level up
		cfg.Static.Dir = ".."
	}
	if cfg.Session.FixtureDelay < 0 {
		cfg.Session.FixtureDelay = 500 * time.Millisecond
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if port, err := strconv.Atoi(c.App.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("app.port must be a valid TCP port, got %q", c.App.Port)
	}
	if c.Bitrix.Scheme != "https" && c.Bitrix.Scheme != "http" {
		return fmt.Errorf("bitrix.scheme must be http or https, got %q", c.Bitrix.Scheme)
	}
	if c.Bitrix.RateBurst < 0 {
		return fmt.Errorf("bitrix.rate_burst cannot be negative")
	}

	if c.App.IsProduction() {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Session.DevMode {
			return fmt.Errorf("session.dev_mode must be false in production")
		}
	}

	return nil
}
