// Package config handles configuration loading for conductor. It
// supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for conductor.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Invoker   InvokerConfig   `mapstructure:"invoker"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Gates     GatesConfig     `mapstructure:"gates"`
	Storage   StorageConfig   `mapstructure:"storage"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// InvokerConfig selects how agents are invoked.
type InvokerConfig struct {
	// Mode is "api" for the Anthropic API or "cli" for a local binary.
	Mode string `mapstructure:"mode"`
	// Binary is the CLI binary name when Mode is "cli".
	Binary string `mapstructure:"binary"`
	// Timeout bounds a single agent invocation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// EngineConfig holds the workflow engine tunables.
type EngineConfig struct {
	// SplitThreshold is the complexity score that triggers auto-split.
	SplitThreshold float64 `mapstructure:"split_threshold"`
	// Workers bounds concurrent task execution.
	Workers int `mapstructure:"workers"`
	// MaxTransientRetries bounds agent-call retries with backoff.
	MaxTransientRetries int `mapstructure:"max_transient_retries"`
	// MaxStructuralRetries bounds node re-runs after failed criteria.
	MaxStructuralRetries int `mapstructure:"max_structural_retries"`
	// MaxTaskRetries bounds per-task implementation attempts.
	MaxTaskRetries int `mapstructure:"max_task_retries"`
	// BackoffBase is the first retry delay.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BackoffCap is the maximum retry delay.
	BackoffCap time.Duration `mapstructure:"backoff_cap"`
}

// GatesConfig holds the review gate score floors.
type GatesConfig struct {
	PlanMinScore float64 `mapstructure:"plan_min_score"`
	CodeMinScore float64 `mapstructure:"code_min_score"`
}

// StorageConfig holds persistence paths, relative to the repository
// root unless absolute.
type StorageConfig struct {
	// DBPath is the SQLite state database location.
	DBPath string `mapstructure:"db_path"`
	// LogDir is where per-run audit logs are written.
	LogDir string `mapstructure:"log_dir"`
}

// TUIConfig holds status dashboard settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (CONDUCTOR_*, ANTHROPIC_API_KEY)
// 2. Project config (.conductor/config.yaml in current directory or parent)
// 3. User config (~/.config/conductor/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CONDUCTOR")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "CONDUCTOR_MODEL")
	v.BindEnv("invoker.mode", "CONDUCTOR_INVOKER")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("invoker.mode", cfg.Invoker.Mode)
	v.Set("invoker.binary", cfg.Invoker.Binary)
	v.Set("invoker.timeout", cfg.Invoker.Timeout.String())
	v.Set("engine.split_threshold", cfg.Engine.SplitThreshold)
	v.Set("engine.workers", cfg.Engine.Workers)
	v.Set("engine.max_transient_retries", cfg.Engine.MaxTransientRetries)
	v.Set("engine.max_structural_retries", cfg.Engine.MaxStructuralRetries)
	v.Set("engine.max_task_retries", cfg.Engine.MaxTaskRetries)
	v.Set("engine.backoff_base", cfg.Engine.BackoffBase.String())
	v.Set("engine.backoff_cap", cfg.Engine.BackoffCap.String())
	v.Set("gates.plan_min_score", cfg.Gates.PlanMinScore)
	v.Set("gates.code_min_score", cfg.Gates.CodeMinScore)
	v.Set("storage.db_path", cfg.Storage.DBPath)
	v.Set("storage.log_dir", cfg.Storage.LogDir)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 8192)

	v.SetDefault("invoker.mode", "api")
	v.SetDefault("invoker.binary", "claude")
	v.SetDefault("invoker.timeout", "15m")

	v.SetDefault("engine.split_threshold", 5.0)
	v.SetDefault("engine.workers", 3)
	v.SetDefault("engine.max_transient_retries", 3)
	v.SetDefault("engine.max_structural_retries", 3)
	v.SetDefault("engine.max_task_retries", 3)
	v.SetDefault("engine.backoff_base", "500ms")
	v.SetDefault("engine.backoff_cap", "30s")

	v.SetDefault("gates.plan_min_score", 6.0)
	v.SetDefault("gates.code_min_score", 7.0)

	v.SetDefault("storage.db_path", ".conductor/state.db")
	v.SetDefault("storage.log_dir", ".conductor/logs")

	v.SetDefault("tui.refresh_rate", "250ms")
}

// getUserConfigDir returns the XDG config directory for conductor.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "conductor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "conductor")
	}
	return filepath.Join(home, ".config", "conductor")
}

// findProjectConfig searches for .conductor/config.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".conductor", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Invoker: InvokerConfig{
			Mode:    "api",
			Binary:  "claude",
			Timeout: 15 * time.Minute,
		},
		Engine: EngineConfig{
			SplitThreshold:       5.0,
			Workers:              3,
			MaxTransientRetries:  3,
			MaxStructuralRetries: 3,
			MaxTaskRetries:       3,
			BackoffBase:          500 * time.Millisecond,
			BackoffCap:           30 * time.Second,
		},
		Gates: GatesConfig{
			PlanMinScore: 6.0,
			CodeMinScore: 7.0,
		},
		Storage: StorageConfig{
			DBPath: ".conductor/state.db",
			LogDir: ".conductor/logs",
		},
		TUI: TUIConfig{
			RefreshRate: 250 * time.Millisecond,
		},
	}
}
