// Package config loads marathon configuration from file and
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"marathon/internal/models"
)

// Config represents the complete marathon configuration.
type Config struct {
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// ReasoningConfig controls the reasoning provider.
type ReasoningConfig struct {
	// Model is the model identifier passed to the provider.
	Model string `mapstructure:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `mapstructure:"api_key_env"`
	// Thinking holds the per-phase effort levels.
	Thinking ThinkingConfig `mapstructure:"thinking"`
}

// ThinkingConfig holds per-phase reasoning effort levels.
type ThinkingConfig struct {
	Planning     string `mapstructure:"planning"`
	Execution    string `mapstructure:"execution"`
	Verification string `mapstructure:"verification"`
	Recovery     string `mapstructure:"recovery"`
}

// AgentConfig controls the milestone-executing agent.
type AgentConfig struct {
	// Binary is the coding-agent CLI invoked per milestone.
	Binary string `mapstructure:"binary"`
	// WorkDir is where milestone work happens; empty means cwd.
	WorkDir string `mapstructure:"work_dir"`
}

// ExecutorConfig tunes the milestone loop.
type ExecutorConfig struct {
	// MaxIdenticalActions is the repeat count treated as a loop.
	MaxIdenticalActions int `mapstructure:"max_identical_actions"`
	// HistoryWindow is the loop-detection sliding window size.
	HistoryWindow int `mapstructure:"history_window"`
	// VerifyTimeoutSeconds bounds each verification command.
	VerifyTimeoutSeconds int `mapstructure:"verify_timeout_seconds"`
}

// PathsConfig controls where marathon keeps its data.
type PathsConfig struct {
	// DataDir holds the SQLite database and snapshot blobs.
	DataDir string `mapstructure:"data_dir"`
}

// Load reads marathon.yaml from the config directory (if present) and
// applies MARATHON_* environment overrides on top of defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("marathon")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "marathon"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARATHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reasoning.model", "gemini-2.5-pro")
	v.SetDefault("reasoning.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("reasoning.thinking.planning", string(models.ThinkingMax))
	v.SetDefault("reasoning.thinking.execution", string(models.ThinkingMedium))
	v.SetDefault("reasoning.thinking.verification", string(models.ThinkingLow))
	v.SetDefault("reasoning.thinking.recovery", string(models.ThinkingHigh))

	v.SetDefault("agent.binary", "claude")
	v.SetDefault("agent.work_dir", "")

	v.SetDefault("executor.max_identical_actions", 3)
	v.SetDefault("executor.history_window", 10)
	v.SetDefault("executor.verify_timeout_seconds", 300)

	dataDir := filepath.Join(".", ".marathon")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "marathon")
	}
	v.SetDefault("paths.data_dir", dataDir)
}

// ThinkingStrategy converts the configured levels to the domain type,
// falling back to defaults for unknown values.
func (c *Config) ThinkingStrategy() models.ThinkingStrategy {
	def := models.DefaultThinkingStrategy()
	return models.ThinkingStrategy{
		Planning:     levelOr(c.Reasoning.Thinking.Planning, def.Planning),
		Execution:    levelOr(c.Reasoning.Thinking.Execution, def.Execution),
		Verification: levelOr(c.Reasoning.Thinking.Verification, def.Verification),
		Recovery:     levelOr(c.Reasoning.Thinking.Recovery, def.Recovery),
	}
}

func levelOr(s string, fallback models.ThinkingLevel) models.ThinkingLevel {
	switch models.ThinkingLevel(s) {
	case models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh, models.ThinkingMax:
		return models.ThinkingLevel(s)
	default:
		return fallback
	}
}
