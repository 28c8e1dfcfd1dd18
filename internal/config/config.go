package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ailabhub/tres-guard/internal/consts"
)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

type Config struct {
	Token          string        `yaml:"telegram_bot_token"`
	LogLevel       string        `yaml:"log_level"`
	RedisURL       string        `yaml:"redis_url"`
	Workers        int           `yaml:"workers"`
	RateLimit      float64       `yaml:"rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AdminCacheTTL  time.Duration `yaml:"admin_cache_ttl"`
	Health         HealthConfig  `yaml:"health"`
	Janitor        JanitorConfig `yaml:"janitor"`
	Keywords       []string      `yaml:"keywords"`
	ChartTriggers  []string      `yaml:"chart_triggers"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type JanitorConfig struct {
	Period time.Duration `yaml:"period"`
	TTL    time.Duration `yaml:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		Workers:        8,
		RateLimit:      25,
		RequestTimeout: 10 * time.Second,
		AdminCacheTTL:  time.Minute,
		Health:         HealthConfig{Enabled: true, Addr: ":8080"},
		Janitor:        JanitorConfig{Period: consts.JanitorPeriod, TTL: consts.EphemeralTTL},
		Keywords:       append([]string(nil), consts.BannedKeywords...),
		ChartTriggers:  append([]string(nil), consts.ChartTriggers...),
	}
}

// Load applies, in order: defaults, the YAML file at path (a missing file is
// fine), then environment variables. The bot token is required.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("os.ReadFile: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("yaml.Unmarshal: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	if cfg.Token == "" {
		return Config{}, ErrMissingToken
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Janitor.Period <= 0 {
		cfg.Janitor.Period = consts.JanitorPeriod
	}
	if cfg.Janitor.TTL <= 0 {
		cfg.Janitor.TTL = consts.EphemeralTTL
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Token = envString("BOT_TOKEN", cfg.Token)
	cfg.Token = envString("TELEGRAM_BOT_TOKEN", cfg.Token)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)
	cfg.Workers = envInt("WORKERS", cfg.Workers)
	cfg.RateLimit = envFloat("RATE_LIMIT", cfg.RateLimit)
	cfg.RequestTimeout = envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.AdminCacheTTL = envDuration("ADMIN_CACHE_TTL", cfg.AdminCacheTTL)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Keywords = envList("KEYWORDS", cfg.Keywords)
	cfg.ChartTriggers = envList("CHART_TRIGGERS", cfg.ChartTriggers)
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

// envList reads a comma separated list.
func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
