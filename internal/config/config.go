package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"stock-ingest/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Logging      logging.Config     `mapstructure:"logging"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alpha_vantage"`
	Export       ExportConfig       `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig encapsulates cache connectivity.
type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// AlphaVantageConfig covers the upstream market-data API, including the
// admission-control and retry policy applied to it.
type AlphaVantageConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	OutputSize       string        `mapstructure:"output_size"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	ThrottleCooldown time.Duration `mapstructure:"throttle_cooldown"`
	BucketCapacity   int           `mapstructure:"bucket_capacity"`
	RequestsPerMin   float64       `mapstructure:"requests_per_minute"`
}

// RefillRate converts the per-minute quota into tokens per second.
func (c AlphaVantageConfig) RefillRate() float64 {
	return c.RequestsPerMin / 60.0
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stockingest")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("alpha_vantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("alpha_vantage.request_timeout", "10s")
	v.SetDefault("alpha_vantage.output_size", "compact")
	v.SetDefault("alpha_vantage.max_retries", 5)
	v.SetDefault("alpha_vantage.base_delay", "1s")
	v.SetDefault("alpha_vantage.throttle_cooldown", "60s")
	// Alpha Vantage free tier: 5 requests per minute.
	v.SetDefault("alpha_vantage.bucket_capacity", 5)
	v.SetDefault("alpha_vantage.requests_per_minute", 5.0)

	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values. Missing
// required connectivity is rejected here, at startup, rather than deeper in
// the pipeline.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be configured")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url must be configured")
	}
	if c.AlphaVantage.BaseURL == "" {
		return fmt.Errorf("alpha_vantage.base_url must be configured")
	}
	if c.AlphaVantage.MaxRetries <= 0 {
		return fmt.Errorf("alpha_vantage.max_retries must be greater than zero")
	}
	if c.AlphaVantage.BaseDelay <= 0 {
		return fmt.Errorf("alpha_vantage.base_delay must be greater than zero")
	}
	if c.AlphaVantage.BucketCapacity <= 0 {
		return fmt.Errorf("alpha_vantage.bucket_capacity must be greater than zero")
	}
	if c.AlphaVantage.RequestsPerMin <= 0 {
		return fmt.Errorf("alpha_vantage.requests_per_minute must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
