package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the complete service configuration
// The structure matches the config.yaml file and can be overridden by environment variables

type Config struct {
	Legalese LegaleseConfig `json:"legalese" mapstructure:"legalese"`
}

type LegaleseConfig struct {
	Server ServerConfig `json:"server" mapstructure:"server"`
	Auth   AuthConfig   `json:"auth" mapstructure:"auth"`
	AI     AIConfig     `json:"ai" mapstructure:"ai"`
	Store  StoreConfig  `json:"store" mapstructure:"store"`
	Audit  AuditConfig  `json:"audit" mapstructure:"audit"`
	Log    LogConfig    `json:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `json:"addr" mapstructure:"addr"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
	AllowedOrigins []string      `json:"allowed_origins" mapstructure:"allowed_origins"`
	BasePath       string        `json:"base_path" mapstructure:"base_path"`
}

type AuthConfig struct {
	Token string `json:"token" mapstructure:"token"`
}

// AIConfig covers the optional trained model and the remote generation backend.
type AIConfig struct {
	SkipModelLoading bool   `json:"skip_model_loading" mapstructure:"skip_model_loading"`
	ModelName        string `json:"model_name" mapstructure:"model_name"`
	ModelPath        string `json:"model_path" mapstructure:"model_path"`

	Provider         string        `json:"provider" mapstructure:"provider"`
	Endpoint         string        `json:"endpoint" mapstructure:"endpoint"`
	Model            string        `json:"model" mapstructure:"model"`
	HFToken          string        `json:"hf_token" mapstructure:"hf_token"`
	RewriteTimeout   time.Duration `json:"rewrite_timeout" mapstructure:"rewrite_timeout"`
	RewriteMaxTokens int           `json:"rewrite_max_tokens" mapstructure:"rewrite_max_tokens"`
	ChatTimeout      time.Duration `json:"chat_timeout" mapstructure:"chat_timeout"`
	ChatMaxTokens    int           `json:"chat_max_tokens" mapstructure:"chat_max_tokens"`
	ChatContextChars int           `json:"chat_context_chars" mapstructure:"chat_context_chars"`
}

type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level       string `json:"level" mapstructure:"level"`
	Development bool   `json:"development" mapstructure:"development"`
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env first (ignore error if not present)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.legalese")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The original deployment variables keep working.
	_ = v.BindEnv("legalese.ai.hf_token", "LEGALESE_AI_HF_TOKEN", "HF_TOKEN")
	_ = v.BindEnv("legalese.ai.skip_model_loading", "LEGALESE_AI_SKIP_MODEL_LOADING", "SKIP_AI_MODEL_LOADING")
	_ = v.BindEnv("legalese.store.path", "LEGALESE_STORE_PATH", "DATABASE_PATH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			zap.L().Info("No config file found, using defaults")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Legalese.Server.BasePath = resolvePath(cfg.Legalese.Server.BasePath)
	cfg.Legalese.AI.ModelPath = resolvePath(cfg.Legalese.AI.ModelPath)
	if cfg.Legalese.Store.Path != ":memory:" {
		cfg.Legalese.Store.Path = resolvePath(cfg.Legalese.Store.Path)
	}
	cfg.Legalese.Audit.Path = resolvePath(cfg.Legalese.Audit.Path)
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("legalese.server.addr", ":8000")
	v.SetDefault("legalese.server.timeout", "60s")
	v.SetDefault("legalese.server.allowed_origins", []string{"*"})
	v.SetDefault("legalese.server.base_path", ".")

	v.SetDefault("legalese.auth.token", "")

	// Model defaults
	v.SetDefault("legalese.ai.skip_model_loading", false)
	v.SetDefault("legalese.ai.model_name", "nlpaueb/legal-bert-base-uncased")
	v.SetDefault("legalese.ai.model_path", "")

	// Remote generation defaults
	v.SetDefault("legalese.ai.provider", "huggingface")
	// Empty means the hosted Inference API; the tgi provider needs its own endpoint.
	v.SetDefault("legalese.ai.endpoint", "")
	v.SetDefault("legalese.ai.model", "mistralai/Mistral-7B-Instruct-v0.2")
	v.SetDefault("legalese.ai.hf_token", "")
	v.SetDefault("legalese.ai.rewrite_timeout", "10s")
	v.SetDefault("legalese.ai.rewrite_max_tokens", 250)
	v.SetDefault("legalese.ai.chat_timeout", "30s")
	v.SetDefault("legalese.ai.chat_max_tokens", 500)
	v.SetDefault("legalese.ai.chat_context_chars", 15000)

	v.SetDefault("legalese.store.path", "~/.legalese/legalese.db")

	v.SetDefault("legalese.audit.enabled", true)
	v.SetDefault("legalese.audit.path", "~/.legalese/audit.db")

	v.SetDefault("legalese.log.level", "info")
	v.SetDefault("legalese.log.development", false)
}

// resolvePath resolves ~ to home directory and cleans the path
func resolvePath(p string) string {
	if p == "" {
		return p
	}
	if p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(p)
}
