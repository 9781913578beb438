package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PayTRConfig struct {
	MerchantID   string `yaml:"merchant_id"`
	MerchantKey  string `yaml:"merchant_key"`
	MerchantSalt string `yaml:"merchant_salt"`
	TestMode     bool   `yaml:"test_mode"`
	OkURL        string `yaml:"ok_url"`
	FailURL      string `yaml:"fail_url"`
}

type MailConfig struct {
	PostmarkServerToken  string `yaml:"postmark_server_token"`
	PostmarkAccountToken string `yaml:"postmark_account_token"`
	Sender               string `yaml:"sender"`
	ReplyTo              string `yaml:"reply_to"`
	DevDir               string `yaml:"dev_dir"` // dev mode writes mails here instead of sending
}

type NotifyConfig struct {
	TelegramToken string  `yaml:"telegram_token"`
	AdminChatIDs  []int64 `yaml:"admin_chat_ids"`
}

type SchedulerConfig struct {
	ExpiryInterval  time.Duration `yaml:"expiry_interval"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	AttemptStaleTTL time.Duration `yaml:"attempt_stale_ttl"`
}

type RateLimitConfig struct {
	LoginPerMinute    int `yaml:"login_per_minute"`
	RegisterPerHour   int `yaml:"register_per_hour"`
	CheckoutPerMinute int `yaml:"checkout_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	PayTR     PayTRConfig     `yaml:"paytr"`
	Mail      MailConfig      `yaml:"mail"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path. PayTR credentials
// are deliberately optional: without them checkout degrades to a 503 instead
// of preventing boot.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = 5 * time.Minute
	}
	if cfg.Scheduler.SweepInterval <= 0 {
		cfg.Scheduler.SweepInterval = 15 * time.Minute
	}
	if cfg.Scheduler.AttemptStaleTTL <= 0 {
		cfg.Scheduler.AttemptStaleTTL = 24 * time.Hour
	}
	if cfg.RateLimit.LoginPerMinute <= 0 {
		cfg.RateLimit.LoginPerMinute = 5
	}
	if cfg.RateLimit.RegisterPerHour <= 0 {
		cfg.RateLimit.RegisterPerHour = 10
	}
	if cfg.RateLimit.CheckoutPerMinute <= 0 {
		cfg.RateLimit.CheckoutPerMinute = 6
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
