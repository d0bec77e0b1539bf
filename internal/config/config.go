// Package config loads gateway configuration from defaults, an optional YAML
// file and INTERVIEWHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "INTERVIEWHUB"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Chat      ChatConfig      `mapstructure:"chat"`
	AI        AIConfig        `mapstructure:"ai"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the PostgreSQL DSN. An empty DSN selects the
// in-memory store (development only).
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Secret       string        `mapstructure:"secret"`
	Issuer       string        `mapstructure:"issuer"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	IssueEnabled bool          `mapstructure:"issue_enabled"`
}

// RateLimitConfig selects the limiter backend ("memory" or "redis") and its
// per-user window policy.
type RateLimitConfig struct {
	Backend string        `mapstructure:"backend"`
	Events  int           `mapstructure:"events"`
	Window  time.Duration `mapstructure:"window"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
	ContextLimit int `mapstructure:"context_limit"`
	MaxContent   int `mapstructure:"max_content"`
}

// AIConfig configures the OpenAI-compatible generation endpoint. Without an
// API key the gateway falls back to the rule-based interviewer.
type AIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.allowed_origins", []string{})

	v.SetDefault("database.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "interviewhub-gateway")
	v.SetDefault("auth.token_ttl", TokenTTL)
	v.SetDefault("auth.issue_enabled", false)

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.events", RateLimitEvents)
	v.SetDefault("ratelimit.window", RateLimitWindow)

	v.SetDefault("chat.history_limit", HistoryReplayLimit)
	v.SetDefault("chat.context_limit", AIContextLimit)
	v.SetDefault("chat.max_content", MaxContentLength)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.RateLimit.Events <= 0 {
		errs = append(errs, errors.New("ratelimit.events must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.window must be positive"))
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("ratelimit.backend=redis requires redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ratelimit.backend %q", c.RateLimit.Backend))
	}
	if c.Chat.HistoryLimit <= 0 || c.Chat.ContextLimit <= 0 || c.Chat.MaxContent <= 0 {
		errs = append(errs, errors.New("chat limits must be positive"))
	}
	return errors.Join(errs...)
}
