package config

import (
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
)

// Config 启动时加载一次, 之后只读
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Universe UniverseConfig `mapstructure:"universe"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

type ExchangeConfig struct {
	Binance BinanceConfig `mapstructure:"binance"`
}

type BinanceConfig struct {
	ApiKey    string        `mapstructure:"api_key"`
	ApiSecret string        `mapstructure:"api_secret"`
	BaseURL   string        `mapstructure:"base_url" default:"https://fapi.binance.com" validate:"required,url"`
	RateLimit int           `mapstructure:"rate_limit" default:"1200" validate:"gt=0"` // 每分钟请求数
	Timeout   time.Duration `mapstructure:"timeout" default:"10s" validate:"gt=0"`
}

type UniverseConfig struct {
	ContractType   string        `mapstructure:"contract_type" default:"PERPETUAL" validate:"required"`
	MinQuoteVolume float64       `mapstructure:"min_quote_volume" default:"24000" validate:"gte=0"` // 24h 成交额
	CacheTTL       time.Duration `mapstructure:"cache_ttl" default:"1h" validate:"gt=0"`
}

type SignalsConfig struct {
	Timeframe            string  `mapstructure:"timeframe" default:"15m" validate:"required"`
	LookbackPeriods      int     `mapstructure:"lookback_periods" default:"8" validate:"min=2"`
	PriceChangeThreshold float64 `mapstructure:"price_change_threshold" default:"5" validate:"gt=0"`
	VolumeSpikeThreshold float64 `mapstructure:"volume_spike_threshold" default:"200" validate:"gt=0"`
	UseATRNormalization  bool    `mapstructure:"use_atr_normalization" default:"true"`
	// 每小时成交额不超过该值的交易对改用 LowLiquidityVolumeThreshold, 阈值设为 0 关闭分档
	LowLiquidityHourlyVolume    float64 `mapstructure:"low_liquidity_hourly_volume" default:"10000" validate:"gte=0"`
	LowLiquidityVolumeThreshold float64 `mapstructure:"low_liquidity_volume_threshold" default:"250" validate:"gte=0"`
}

// Interval 校验通过后一定合法
func (c SignalsConfig) Interval() exchange.Interval {
	return exchange.Interval(c.Timeframe)
}

const (
	SinkDiscord = "discord"
	SinkConsole = "console"
)

type AlertsConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown" default:"30m" validate:"gte=0"`
	RetentionDays     int           `mapstructure:"retention_days" default:"7" validate:"min=1"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" default:"1h" validate:"gt=0"`
	Sink              string        `mapstructure:"sink" default:"discord" validate:"oneof=discord console"`
	DiscordWebhookURL string        `mapstructure:"discord_webhook_url" validate:"omitempty,url"`
	WebhookTimeout    time.Duration `mapstructure:"webhook_timeout" default:"10s" validate:"gt=0"`
	RestoreCooldown   bool          `mapstructure:"restore_cooldown" default:"true"`
	Commentary        bool          `mapstructure:"commentary"`
	CommentaryTimeout time.Duration `mapstructure:"commentary_timeout" default:"15s" validate:"gt=0"`
}

type ScanConfig struct {
	Interval    time.Duration `mapstructure:"interval" default:"5m" validate:"gt=0"`
	Concurrency int           `mapstructure:"concurrency" default:"4" validate:"min=1,max=64"`
	MaxRetries  int           `mapstructure:"max_retries" default:"2" validate:"gte=0"`
	BackoffMin  time.Duration `mapstructure:"backoff_min" default:"500ms" validate:"gt=0"`
	BackoffMax  time.Duration `mapstructure:"backoff_max" default:"5s" validate:"gtefield=BackoffMin"`
}

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type StorageConfig struct {
	Driver     string      `mapstructure:"driver" default:"sqlite" validate:"oneof=sqlite redis"`
	SQLitePath string      `mapstructure:"sqlite_path" default:"alerts.db"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" default:"momentum:"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" default:"json" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" default:"100" validate:"gt=0"`
	MaxBackups int    `mapstructure:"max_backups" default:"5" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" default:"30" validate:"gte=0"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Addr    string `mapstructure:"addr" default:":8080"`
}

type LLMConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	ApiKey []string `mapstructure:"api_key"`
	Model  string   `mapstructure:"model" default:"gemini-2.0-flash"`
}
