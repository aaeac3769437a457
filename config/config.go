package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP
	Server ServerConfig `mapstructure:"server"`

	// Short-code allocation and link lifetime
	Shortener ShortenerConfig `mapstructure:"shortener"`

	// Expiry sweeper
	Sweeper SweeperConfig `mapstructure:"sweeper"`

	// Redis (rate limiting)
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// NATS (click stream)
	NATS NATSConfig `mapstructure:"nats"`

	// Archive of swept links
	Archive ArchiveConfig `mapstructure:"archive"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Log forwarding shim
	LogForward LogForwardConfig `mapstructure:"logforward"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	BodyLimit       int           `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ShortenerConfig struct {
	CodeLength             int `mapstructure:"code_length"`
	MaxAttempts            int `mapstructure:"max_attempts"`
	DefaultValidityMinutes int `mapstructure:"default_validity_minutes"`
	BloomCapacity          int `mapstructure:"bloom_capacity"`
}

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogForwardConfig struct {
	Port     int           `mapstructure:"port"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

// LoadFile reads configuration from an explicit YAML file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Allow environment variables to override YAML entries.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("shortener.code_length", 6)
	v.SetDefault("shortener.max_attempts", 10)
	v.SetDefault("shortener.default_validity_minutes", 30)
	v.SetDefault("shortener.bloom_capacity", 100000)

	v.SetDefault("sweeper.interval", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.dsn", "tinylink_archive.db")

	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("logforward.port", 3001)
	v.SetDefault("logforward.endpoint", "http://20.244.56.144/evaluation-service/logs")
	v.SetDefault("logforward.timeout", 10*time.Second)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Archive
	v.BindEnv("archive.dsn", "ARCHIVE_DSN")

	// Log forwarding
	v.BindEnv("logforward.token", "LOG_AUTH_TOKEN")
	v.BindEnv("logforward.endpoint", "LOG_ENDPOINT")
}

func (c *Config) validate() error {
	if c.Shortener.CodeLength < 1 || c.Shortener.CodeLength > 20 {
		return fmt.Errorf("config: shortener.code_length must be between 1 and 20, got %d", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxAttempts < 1 {
		return fmt.Errorf("config: shortener.max_attempts must be positive, got %d", c.Shortener.MaxAttempts)
	}
	if c.Shortener.DefaultValidityMinutes < 1 {
		return fmt.Errorf("config: shortener.default_validity_minutes must be positive, got %d", c.Shortener.DefaultValidityMinutes)
	}
	if c.Shortener.BloomCapacity < 0 {
		return fmt.Errorf("config: shortener.bloom_capacity must not be negative, got %d", c.Shortener.BloomCapacity)
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("config: sweeper.interval must be positive, got %s", c.Sweeper.Interval)
	}
	switch c.Archive.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: archive.driver must be sqlite or postgres, got %q", c.Archive.Driver)
	}
	return nil
}
