package config

import (
	"os"
	"path/filepath"
	"testing"

	"marathon/internal/models"
)

// chdirTemp moves the test into an empty directory so a developer's
// local marathon.yaml never leaks into assertions.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
	t.Setenv("HOME", dir)
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Reasoning.Model != "gemini-2.5-pro" {
		t.Errorf("Unexpected default model: %s", cfg.Reasoning.Model)
	}
	if cfg.Reasoning.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("Unexpected default key env: %s", cfg.Reasoning.APIKeyEnv)
	}
	if cfg.Agent.Binary != "claude" {
		t.Errorf("Unexpected default agent binary: %s", cfg.Agent.Binary)
	}
	if cfg.Executor.MaxIdenticalActions != 3 || cfg.Executor.HistoryWindow != 10 {
		t.Errorf("Unexpected executor defaults: %+v", cfg.Executor)
	}
	if cfg.Paths.DataDir == "" {
		t.Error("Data dir should have a default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MARATHON_REASONING_MODEL", "gemini-2.5-flash")
	t.Setenv("MARATHON_AGENT_BINARY", "codex")
	t.Setenv("MARATHON_EXECUTOR_HISTORY_WINDOW", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reasoning.Model != "gemini-2.5-flash" {
		t.Errorf("Env override ignored for model: %s", cfg.Reasoning.Model)
	}
	if cfg.Agent.Binary != "codex" {
		t.Errorf("Env override ignored for agent binary: %s", cfg.Agent.Binary)
	}
	if cfg.Executor.HistoryWindow != 20 {
		t.Errorf("Env override ignored for history window: %d", cfg.Executor.HistoryWindow)
	}
}

func TestLoadConfigFile(t *testing.T) {
	chdirTemp(t)
	yaml := `reasoning:
  model: gemini-2.0-pro
  thinking:
    planning: high
executor:
  max_identical_actions: 5
`
	if err := os.WriteFile(filepath.Join(".", "marathon.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reasoning.Model != "gemini-2.0-pro" {
		t.Errorf("File value ignored: %s", cfg.Reasoning.Model)
	}
	if cfg.Executor.MaxIdenticalActions != 5 {
		t.Errorf("File value ignored: %d", cfg.Executor.MaxIdenticalActions)
	}
	// Values not in the file keep their defaults.
	if cfg.Executor.HistoryWindow != 10 {
		t.Errorf("Default lost: %d", cfg.Executor.HistoryWindow)
	}

	strategy := cfg.ThinkingStrategy()
	if strategy.Planning != models.ThinkingHigh {
		t.Errorf("Expected planning high from file, got %s", strategy.Planning)
	}
	if strategy.Execution != models.ThinkingMedium {
		t.Errorf("Expected default execution effort, got %s", strategy.Execution)
	}
}

func TestThinkingStrategyFallback(t *testing.T) {
	cfg := &Config{}
	cfg.Reasoning.Thinking.Planning = "turbo" // not a real level

	strategy := cfg.ThinkingStrategy()
	def := models.DefaultThinkingStrategy()
	if strategy.Planning != def.Planning {
		t.Errorf("Unknown level should fall back to default, got %s", strategy.Planning)
	}
}
