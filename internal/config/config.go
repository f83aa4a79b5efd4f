// Package config provides configuration for the search state service.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ST_LLM_HTTP_PORT.
const EnvPrefix = "ST_LLM"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort       int           `mapstructure:"http_port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Cache
	Cache CacheConfig `mapstructure:"cache"`

	// Lifetimes
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	EnrichTTL  time.Duration `mapstructure:"enrich_ttl"`

	// Lock registry
	LockIdleTimeout   time.Duration `mapstructure:"lock_idle_timeout"`
	LockSweepInterval time.Duration `mapstructure:"lock_sweep_interval"`

	// SystemAccount marks the saved searches copied into every new session.
	SystemAccount string `mapstructure:"system_account"`

	LLM    LLMConfig    `mapstructure:"llm"`
	Sheets SheetsConfig `mapstructure:"sheets"`

	WarmOnStart bool `mapstructure:"warm_on_start"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// CacheConfig selects and configures the key-value backend.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"` // redis or sqlite
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     int    `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// RedisAddr returns host:port.
func (c CacheConfig) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// LLMConfig holds the chat completion settings.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // openai or mock
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HistoryLimit int           `mapstructure:"history_limit"`
	PromptPath   string        `mapstructure:"prompt_path"`
}

// SheetsConfig points at the upstream sheet exports. Each location is a file
// path or an http(s) URL of a CSV export.
type SheetsConfig struct {
	KOLInfo       string        `mapstructure:"kol_info"`
	KOLData       string        `mapstructure:"kol_data"`
	SavedSearches string        `mapstructure:"saved_searches"`
	TemplateFile  string        `mapstructure:"template_file"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.redis_host", "localhost")
	v.SetDefault("cache.redis_port", 6379)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.sqlite_path", "file:st_llm_cache.db?cache=shared&mode=rwc")

	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("enrich_ttl", 10*time.Minute)
	v.SetDefault("lock_idle_timeout", 30*time.Minute)
	v.SetDefault("lock_sweep_interval", time.Minute)
	v.SetDefault("system_account", "system")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.history_limit", 30)
	v.SetDefault("llm.prompt_path", "")

	v.SetDefault("sheets.kol_info", "")
	v.SetDefault("sheets.kol_data", "")
	v.SetDefault("sheets.saved_searches", "")
	v.SetDefault("sheets.template_file", "")
	v.SetDefault("sheets.fetch_timeout", 30*time.Second)

	v.SetDefault("warm_on_start", true)
	v.SetDefault("log_level", "info")
}

// Load reads defaults, then the optional config file at path, then
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by earlier deployments.
	_ = v.BindEnv("cache.redis_host", EnvPrefix+"_CACHE_REDIS_HOST", EnvPrefix+"_REDIS_HOST")
	_ = v.BindEnv("cache.redis_port", EnvPrefix+"_CACHE_REDIS_PORT", EnvPrefix+"_REDIS_PORT")
	_ = v.BindEnv("cache.redis_password", EnvPrefix+"_CACHE_REDIS_PASSWORD", EnvPrefix+"_REDIS_PASSWORD")
	_ = v.BindEnv("llm.model", EnvPrefix+"_LLM_MODEL", EnvPrefix+"_GEMINI_MODEL")
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
