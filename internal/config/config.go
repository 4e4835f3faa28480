package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"entry-signals/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. Leaving the DSN empty
// disables snapshot persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the watchlist refresh cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// ProviderConfig covers the market-data API.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	HistoryTimeout time.Duration `mapstructure:"history_timeout"`
	MetricsTimeout time.Duration `mapstructure:"metrics_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RateLimitConfig 控制对行情源的全局限速。
type RateLimitConfig struct {
	MinInterval       time.Duration `mapstructure:"min_interval"`
	PrivilegedCallers []string      `mapstructure:"privileged_callers"`
}

// CacheConfig sets per-kind response retention.
type CacheConfig struct {
	OHLCTTL    time.Duration `mapstructure:"ohlc_ttl"`
	MetricsTTL time.Duration `mapstructure:"metrics_ttl"`
	PriceTTL   time.Duration `mapstructure:"price_ttl"`
	VolumeTTL  time.Duration `mapstructure:"volume_ttl"`
}

// AnalysisConfig shapes the analyzer pool and the tracked assets.
type AnalysisConfig struct {
	Workers   int      `mapstructure:"workers"`
	Watchlist []string `mapstructure:"watchlist"`
}

// AlertingConfig defines entry-quality alert thresholds and routing.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	MinQuality string         `mapstructure:"min_quality"`
	Channels   []string       `mapstructure:"channels"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENTRYSIGNALS")
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
	v.SetDefault("app.name", "entrysignals")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x656e7472))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("provider.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("provider.history_timeout", "15s")
	v.SetDefault("provider.metrics_timeout", "5s")
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("provider.retry_base_delay", "2s")
	v.SetDefault("provider.max_retry_delay", "30s")
	v.SetDefault("provider.lookback_days", 30)
	v.SetDefault("provider.user_agent", "entrysignals/1.0")

	v.SetDefault("rate_limit.min_interval", "1500ms")
	v.SetDefault("rate_limit.privileged_callers", []string{"analysis"})

	v.SetDefault("cache.ohlc_ttl", "10m")
	v.SetDefault("cache.metrics_ttl", "5m")
	v.SetDefault("cache.price_ttl", "1m")
	v.SetDefault("cache.volume_ttl", "5m")

	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.watchlist", []string{"bitcoin", "ethereum"})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_quality", "good")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.RateLimit.MinInterval <= 0 {
		return fmt.Errorf("rate_limit.min_interval must be greater than zero")
	}
	if c.Provider.MaxAttempts <= 0 {
		return fmt.Errorf("provider.max_attempts must be greater than zero")
	}
	if c.Provider.LookbackDays <= 0 {
		return fmt.Errorf("provider.lookback_days must be greater than zero")
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be greater than zero")
	}
	if len(c.Analysis.Watchlist) == 0 {
		return fmt.Errorf("analysis.watchlist cannot be empty")
	}
	switch c.Alerting.MinQuality {
	case "very_poor", "poor", "average", "good", "excellent":
	default:
		return fmt.Errorf("alerting.min_quality 取值不合法: %q", c.Alerting.MinQuality)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}
