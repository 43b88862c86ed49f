package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the myblog auth service
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Mail     MailConfig     `mapstructure:"mail"`
	Events   EventsConfig   `mapstructure:"events"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MailConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	Topic         string `mapstructure:"topic"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type EventsConfig struct {
	LogoutTopic string `mapstructure:"logout_topic"`
}

type CaptchaConfig struct {
	ImageTTL        time.Duration `mapstructure:"image_ttl"`
	LoginCodeTTL    time.Duration `mapstructure:"login_code_ttl"`
	RecoveryCodeTTL time.Duration `mapstructure:"recovery_code_ttl"`
	ImageLockoutTTL time.Duration `mapstructure:"image_lockout_ttl"`
	EmailLockoutTTL time.Duration `mapstructure:"email_lockout_ttl"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("database.dsn", "file:myblog.db?cache=shared")
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.topic", "myblog.email")
	v.SetDefault("mail.consumer_group", "myblog-mail")
	v.SetDefault("events.logout_topic", "myblog.logout")
	v.SetDefault("captcha.image_ttl", 30*time.Second)
	v.SetDefault("captcha.login_code_ttl", time.Minute)
	v.SetDefault("captcha.recovery_code_ttl", 3*time.Minute)
	v.SetDefault("captcha.image_lockout_ttl", 30*time.Second)
	v.SetDefault("captcha.email_lockout_ttl", time.Minute)
	v.SetDefault("captcha.max_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MinSecretLength is the shortest accepted signing secret, in bytes
const MinSecretLength = 32

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d bytes", MinSecretLength))
	}
	positive := map[string]time.Duration{
		"jwt.ttl":                   c.JWT.TTL,
		"captcha.image_ttl":         c.Captcha.ImageTTL,
		"captcha.login_code_ttl":    c.Captcha.LoginCodeTTL,
		"captcha.recovery_code_ttl": c.Captcha.RecoveryCodeTTL,
		"captcha.image_lockout_ttl": c.Captcha.ImageLockoutTTL,
		"captcha.email_lockout_ttl": c.Captcha.EmailLockoutTTL,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if c.Captcha.MaxAttempts < 1 {
		errs = append(errs, errors.New("captcha.max_attempts must be at least 1"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
