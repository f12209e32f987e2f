package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Scanner    ScannerConfig   `mapstructure:"scanner"`
	Notifier   NotifierConfig  `mapstructure:"notifier"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// ScannerConfig tunes the live frame loop.
type ScannerConfig struct {
	FPS            int     `mapstructure:"fps"`             // frames scanned per second
	RegionFraction float64 `mapstructure:"region_fraction"` // square detection sub-region, fraction of min(w,h)
	FixedAspect    bool    `mapstructure:"fixed_aspect"`
	DisableFlip    bool    `mapstructure:"disable_flip"`
	Verbose        bool    `mapstructure:"verbose"`
}

// NotifierConfig is the messaging-gateway surface. It is built once at
// startup and handed to the notifier; nothing reads the environment at
// call time.
type NotifierConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Instance    string        `mapstructure:"instance"` // falls back to "main"
	PublicHost  string        `mapstructure:"public_host"`
	TimeoutMs   int           `mapstructure:"timeout_ms"`
	DelayMs     int           `mapstructure:"delay_ms"`
	Presence    string        `mapstructure:"presence"`
	LinkPreview bool          `mapstructure:"link_preview"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (TICKETQR_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (TICKETQR_*)
	v.SetEnvPrefix("TICKETQR")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
