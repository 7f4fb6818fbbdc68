package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	DatasetsFile string `mapstructure:"datasets_file" yaml:"datasets_file"`

	// Assistant
	APIKey             string  `mapstructure:"api_key" yaml:"api_key"`
	ChatModel          string  `mapstructure:"chat_model" yaml:"chat_model"`
	ChatBaseURL        string  `mapstructure:"chat_base_url" yaml:"chat_base_url"`
	MaxTokens          int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature        float64 `mapstructure:"temperature" yaml:"temperature"`
	HistoryTokenBudget int     `mapstructure:"history_token_budget" yaml:"history_token_budget"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Dashboard API
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "datasets_file",
	"api_key", "chat_model", "chat_base_url", "max_tokens", "temperature", "history_token_budget",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"listen_addr",
}

// DefaultPath returns ~/.ineqdash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ineqdash", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.ineqdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: could not read .env: %v\n", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INEQDASH")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("datasets_file", "")
	v.SetDefault("api_key", "")
	v.SetDefault("chat_model", "gpt-3.5-turbo")
	v.SetDefault("chat_base_url", "")
	v.SetDefault("max_tokens", 512)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("history_token_budget", 0)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("listen_addr", ":8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &c, nil
}
