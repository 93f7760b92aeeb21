// Package config loads tutorly settings from defaults, an optional
// tutorly.yaml, a .env file and TUTORLY_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/event"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/logging"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/tracing"
	"github.com/abhisek/tutorly/internal/tutor"
)

const envPrefix = "TUTORLY"

type Config struct {
	// DB is the SQLite path. Empty means the per-user default location.
	DB string `mapstructure:"db"`

	Server  ServerConfig   `mapstructure:"server"`
	JWT     JWTConfig      `mapstructure:"jwt"`
	Log     logging.Config `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`
	AMQP    event.Config   `mapstructure:"amqp"`
	LLM     llm.Config     `mapstructure:"llm"`
	Policy  session.Policy `mapstructure:"policy"`
	Tutor   tutor.Config   `mapstructure:"tutor"`
}

type ServerConfig struct {
	Addr        string          `mapstructure:"addr"`
	Mode        string          `mapstructure:"mode"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	ChatLimit   RateLimitConfig `mapstructure:"chat_limit"`
}

// RateLimitConfig is a token bucket: PerMinute refill with room for Burst.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.chat_limit.per_minute", 20)
	v.SetDefault("server.chat_limit.burst", 5)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("jwt.issuer", "tutorly")

	lc := logging.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", lc.MaxSizeMB)
	v.SetDefault("log.max_backups", lc.MaxBackups)
	v.SetDefault("log.max_age_days", lc.MaxAgeDays)
	v.SetDefault("log.compress", lc.Compress)
	v.SetDefault("log.console", lc.Console)

	tc := tracing.DefaultConfig()
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", tc.ServiceName)
	v.SetDefault("tracing.sample_ratio", tc.SampleRatio)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", event.DefaultExchange)

	// llm.provider and the API keys have no defaults so an unset provider
	// can fall back to vendor key discovery.
	llmc := llm.DefaultConfig()
	v.SetDefault("llm.anthropic.model", llmc.Anthropic.Model)
	v.SetDefault("llm.openai.model", llmc.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.model", llmc.Gemini.Model)
	v.SetDefault("llm.openrouter.model", llmc.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.retry.max_attempts", llmc.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", llmc.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", llmc.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", llmc.Retry.Multiplier)
	v.SetDefault("llm.timeout", llmc.Timeout)
	for _, key := range []string{
		"llm.provider",
		"llm.anthropic.api_key",
		"llm.openai.api_key",
		"llm.gemini.api_key",
		"llm.openrouter.api_key",
	} {
		_ = v.BindEnv(key)
	}

	p := session.DefaultPolicy()
	v.SetDefault("policy.violation_threshold", p.ViolationThreshold)
	v.SetDefault("policy.flag_grace", p.FlagGrace)
	v.SetDefault("policy.recommendation_priority", p.RecommendationPriority)
	v.SetDefault("policy.thresholds.intermediate", p.Thresholds.Intermediate)
	v.SetDefault("policy.thresholds.advanced", p.Thresholds.Advanced)

	t := tutor.DefaultConfig()
	v.SetDefault("tutor.max_tokens", t.MaxTokens)
	v.SetDefault("tutor.temperature", t.Temperature)
	v.SetDefault("tutor.timeout", t.Timeout)
	v.SetDefault("tutor.max_turns", t.MaxTurns)
}

// Loader owns the viper instance so serve can watch the file for changes.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a loader. file may be empty, in which case tutorly.yaml
// is searched in the working directory and $XDG_CONFIG_HOME/tutorly.
func NewLoader(file string) *Loader {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tutorly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "tutorly"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// Load reads .env (if present), the config file (if present) and the
// environment, and decodes the result.
func (l *Loader) Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.Provider == "" {
		if found, ok := llm.DiscoverConfig(); ok {
			found.Retry = cfg.LLM.Retry
			found.Timeout = cfg.LLM.Timeout
			cfg.LLM = found
		} else {
			cfg.LLM.Provider = llm.DefaultConfig().Provider
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the file on change and passes the new policy to fn. Only
// the policy is hot-reloadable; other sections need a restart.
func (l *Loader) Watch(log *zap.Logger, fn func(session.Policy)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			log.Error("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		log.Info("policy reloaded",
			zap.String("file", e.Name),
			zap.Int("violation_threshold", cfg.Policy.ViolationThreshold),
			zap.Duration("flag_grace", cfg.Policy.FlagGrace),
		)
		fn(cfg.Policy)
	})
	l.v.WatchConfig()
}

// Validate rejects settings that would break the quiz rules.
func (c *Config) Validate() error {
	p := c.Policy
	if p.ViolationThreshold < 1 {
		return fmt.Errorf("policy.violation_threshold must be at least 1, got %d", p.ViolationThreshold)
	}
	if p.FlagGrace < 0 {
		return fmt.Errorf("policy.flag_grace must not be negative")
	}
	if p.Thresholds.Intermediate <= 0 || p.Thresholds.Advanced <= p.Thresholds.Intermediate {
		return fmt.Errorf("policy.thresholds must satisfy 0 < intermediate < advanced, got %d/%d",
			p.Thresholds.Intermediate, p.Thresholds.Advanced)
	}
	if c.Server.ChatLimit.PerMinute < 1 || c.Server.ChatLimit.Burst < 1 {
		return fmt.Errorf("server.chat_limit values must be positive")
	}
	return nil
}
