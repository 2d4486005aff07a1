package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Directory DirectoryConfig `mapstructure:"directory"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxFailures      uint32        `mapstructure:"max_failures"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	// Store is "redis" or "memory".
	Store        string        `mapstructure:"store"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Prefix     string `mapstructure:"prefix"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type BookingConfig struct {
	SendPatientID bool          `mapstructure:"send_patient_id"`
	Aggregation   string        `mapstructure:"aggregation"`
	FanOut        int           `mapstructure:"fan_out"`
	WizardTTL     time.Duration `mapstructure:"wizard_ttl"`
}

type DirectoryConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// envOverrides are the PORTAL_* variables applied after the config file.
type envOverrides struct {
	BackendURL    *string        `envconfig:"BACKEND_URL"`
	RedisURL      *string        `envconfig:"REDIS_URL"`
	Port          *int           `envconfig:"PORT"`
	LogLevel      *string        `envconfig:"LOG_LEVEL"`
	SessionStore  *string        `envconfig:"SESSION_STORE"`
	SessionTTL    *time.Duration `envconfig:"SESSION_TTL"`
	SendPatientID *bool          `envconfig:"SEND_PATIENT_ID"`
	Aggregation   *string        `envconfig:"AGGREGATION"`
	SMTPHost      *string        `envconfig:"SMTP_HOST"`
	SMTPPassword  *string        `envconfig:"SMTP_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 20*time.Second)
	v.SetDefault("backend.breaker.enabled", true)
	v.SetDefault("backend.breaker.max_failures", 5)
	v.SetDefault("backend.breaker.half_open_requests", 1)
	v.SetDefault("backend.breaker.interval", time.Minute)
	v.SetDefault("backend.breaker.timeout", 30*time.Second)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 8*time.Hour)
	v.SetDefault("session.cookie_name", "portal_session")
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.prefix", "portal:")
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("booking.send_patient_id", false)
	v.SetDefault("booking.aggregation", "per_doctor")
	v.SetDefault("booking.fan_out", 4)
	v.SetDefault("booking.wizard_ttl", time.Hour)

	v.SetDefault("directory.cache_ttl", 5*time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@clinic.local")

	v.SetDefault("metrics.namespace", "clinic_portal")
}

// LoadConfig reads config.yaml from the usual locations, falls back to the
// defaults when no file exists, then applies PORTAL_* overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("portal", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if env.BackendURL != nil {
		cfg.Backend.BaseURL = *env.BackendURL
	}
	if env.RedisURL != nil {
		cfg.Redis.URL = *env.RedisURL
	}
	if env.Port != nil {
		cfg.Server.Port = *env.Port
	}
	if env.LogLevel != nil {
		cfg.Log.Level = *env.LogLevel
	}
	if env.SessionStore != nil {
		cfg.Session.Store = *env.SessionStore
	}
	if env.SessionTTL != nil {
		cfg.Session.TTL = *env.SessionTTL
	}
	if env.SendPatientID != nil {
		cfg.Booking.SendPatientID = *env.SendPatientID
	}
	if env.Aggregation != nil {
		cfg.Booking.Aggregation = *env.Aggregation
	}
	if env.SMTPHost != nil {
		cfg.SMTP.Host = *env.SMTPHost
	}
	if env.SMTPPassword != nil {
		cfg.SMTP.Password = *env.SMTPPassword
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}
	switch c.Booking.Aggregation {
	case "per_doctor", "combined":
	default:
		return fmt.Errorf("booking.aggregation must be per_doctor or combined, got %q", c.Booking.Aggregation)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	return nil
}
