// Package config handles configuration loading and management for Albedo.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Albedo.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Budgets   BudgetsConfig   `mapstructure:"budgets"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Costs     CostsConfig     `mapstructure:"costs"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model overrides the client default when set.
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// WorkersConfig holds worker fleet settings.
type WorkersConfig struct {
	// Registry is the path to the worker registry YAML file.
	Registry string `mapstructure:"registry"`
	// Dir is the directory worker scaffolds are created under.
	Dir     string `mapstructure:"dir"`
	PortMin int    `mapstructure:"port_min"`
	PortMax int    `mapstructure:"port_max"`
	// CallTimeout bounds a single execute-task HTTP call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	// MaxParallel caps concurrent dispatches during batch runs.
	MaxParallel int `mapstructure:"max_parallel"`
}

// MonitorConfig holds proactive monitor settings.
type MonitorConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	BacklogThreshold int           `mapstructure:"backlog_threshold"`
	AutoAssignLimit  int           `mapstructure:"auto_assign_limit"`
	// Dedupe suppresses repeat alerts within one scan interval.
	Dedupe bool `mapstructure:"dedupe"`
	// Exclusions is the path to the excluded-phrase list.
	Exclusions string `mapstructure:"exclusions"`
	// SensitiveGuard holds sensitive-topic tasks back from auto-assignment.
	SensitiveGuard  bool   `mapstructure:"sensitive_guard"`
	SensitiveTopics string `mapstructure:"sensitive_topics"`
}

// BudgetsConfig holds API spend limits in USD.
type BudgetsConfig struct {
	DailyUSD   float64 `mapstructure:"daily_usd"`
	MonthlyUSD float64 `mapstructure:"monthly_usd"`
}

// MemoryConfig holds PM memory store settings.
type MemoryConfig struct {
	Path string `mapstructure:"path"`
}

// CostsConfig holds cost ledger settings.
type CostsConfig struct {
	// Dir is the directory daily cost files are written to.
	Dir string `mapstructure:"dir"`
}

// TUIConfig holds dashboard display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ALBEDO_* keys, ANTHROPIC_API_KEY)
// 2. Project config (.albedo/config.yaml in the current directory or a parent)
// 3. User config ($XDG_CONFIG_HOME/albedo/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides: ALBEDO_MONITOR_INTERVAL maps to
	// monitor.interval and so on.
	v.SetEnvPrefix("ALBEDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional Anthropic variable wins regardless of prefix.
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
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

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("workers.registry", cfg.Workers.Registry)
	v.Set("workers.dir", cfg.Workers.Dir)
	v.Set("workers.port_min", cfg.Workers.PortMin)
	v.Set("workers.port_max", cfg.Workers.PortMax)
	v.Set("workers.call_timeout", cfg.Workers.CallTimeout.String())
	v.Set("workers.max_attempts", cfg.Workers.MaxAttempts)
	v.Set("workers.max_parallel", cfg.Workers.MaxParallel)
	v.Set("monitor.interval", cfg.Monitor.Interval.String())
	v.Set("monitor.stale_after", cfg.Monitor.StaleAfter.String())
	v.Set("monitor.backlog_threshold", cfg.Monitor.BacklogThreshold)
	v.Set("monitor.auto_assign_limit", cfg.Monitor.AutoAssignLimit)
	v.Set("monitor.dedupe", cfg.Monitor.Dedupe)
	v.Set("monitor.exclusions", cfg.Monitor.Exclusions)
	v.Set("monitor.sensitive_guard", cfg.Monitor.SensitiveGuard)
	v.Set("monitor.sensitive_topics", cfg.Monitor.SensitiveTopics)
	v.Set("budgets.daily_usd", cfg.Budgets.DailyUSD)
	v.Set("budgets.monthly_usd", cfg.Budgets.MonthlyUSD)
	v.Set("memory.path", cfg.Memory.Path)
	v.Set("costs.dir", cfg.Costs.Dir)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	// Worker fleet defaults
	v.SetDefault("workers.registry", ".albedo/workers.yaml")
	v.SetDefault("workers.dir", "workers")
	v.SetDefault("workers.port_min", 3001)
	v.SetDefault("workers.port_max", 3010)
	v.SetDefault("workers.call_timeout", "5m")
	v.SetDefault("workers.max_attempts", 3)
	v.SetDefault("workers.max_parallel", 4)

	// Monitor defaults
	v.SetDefault("monitor.interval", "2h")
	v.SetDefault("monitor.stale_after", "72h")
	v.SetDefault("monitor.backlog_threshold", 5)
	v.SetDefault("monitor.auto_assign_limit", 3)
	v.SetDefault("monitor.dedupe", true)
	v.SetDefault("monitor.exclusions", ".albedo/exclusions.yaml")
	v.SetDefault("monitor.sensitive_guard", false)
	v.SetDefault("monitor.sensitive_topics", ".albedo/sensitive.yaml")

	// Budget defaults
	v.SetDefault("budgets.daily_usd", 1.0)
	v.SetDefault("budgets.monthly_usd", 20.0)

	// Storage defaults
	v.SetDefault("memory.path", ".albedo/memory.db")
	v.SetDefault("costs.dir", ".albedo/costs")

	// TUI defaults
	v.SetDefault("tui.refresh_rate", "10s")
}

// getUserConfigDir returns the XDG config directory for Albedo.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "albedo")
	}

	// Fall back to ~/.config/albedo
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "albedo")
	}
	return filepath.Join(home, ".config", "albedo")
}

// findProjectConfig searches for .albedo/config.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".albedo", "config.yaml")
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

// FindProjectRoot walks up from the current directory looking for a .albedo
// directory and returns the directory containing it.
func FindProjectRoot() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findProjectRootFrom(cwd)
}

func findProjectRootFrom(dir string) (string, bool) {
	for {
		info, err := os.Stat(filepath.Join(dir, ".albedo"))
		if err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

// ResolvePath resolves a config path against the project root.
// Absolute paths pass through unchanged.
func ResolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens: 4096,
		},
		Workers: WorkersConfig{
			Registry:    ".albedo/workers.yaml",
			Dir:         "workers",
			PortMin:     3001,
			PortMax:     3010,
			CallTimeout: 5 * time.Minute,
			MaxAttempts: 3,
			MaxParallel: 4,
		},
		Monitor: MonitorConfig{
			Interval:         2 * time.Hour,
			StaleAfter:       72 * time.Hour,
			BacklogThreshold: 5,
			AutoAssignLimit:  3,
			Dedupe:           true,
			Exclusions:       ".albedo/exclusions.yaml",
			SensitiveTopics:  ".albedo/sensitive.yaml",
		},
		Budgets: BudgetsConfig{
			DailyUSD:   1.0,
			MonthlyUSD: 20.0,
		},
		Memory: MemoryConfig{
			Path: ".albedo/memory.db",
		},
		Costs: CostsConfig{
			Dir: ".albedo/costs",
		},
		TUI: TUIConfig{
			RefreshRate: 10 * time.Second,
		},
	}
}
