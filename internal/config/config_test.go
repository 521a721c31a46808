package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Invoker.Mode != "api" {
		t.Errorf("expected default invoker mode 'api', got %q", cfg.Invoker.Mode)
	}

	if cfg.Engine.SplitThreshold != 5.0 {
		t.Errorf("expected split threshold 5.0, got %v", cfg.Engine.SplitThreshold)
	}

	if cfg.Engine.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Engine.Workers)
	}

	if cfg.Engine.BackoffBase != 500*time.Millisecond {
		t.Errorf("expected backoff base 500ms, got %v", cfg.Engine.BackoffBase)
	}

	if cfg.Engine.BackoffCap != 30*time.Second {
		t.Errorf("expected backoff cap 30s, got %v", cfg.Engine.BackoffCap)
	}

	if cfg.Gates.PlanMinScore != 6.0 {
		t.Errorf("expected plan gate floor 6.0, got %v", cfg.Gates.PlanMinScore)
	}

	if cfg.Gates.CodeMinScore != 7.0 {
		t.Errorf("expected code gate floor 7.0, got %v", cfg.Gates.CodeMinScore)
	}

	if cfg.Invoker.Timeout != 15*time.Minute {
		t.Errorf("expected invoker timeout 15m, got %v", cfg.Invoker.Timeout)
	}

	if cfg.Storage.DBPath != ".conductor/state.db" {
		t.Errorf("expected db path .conductor/state.db, got %q", cfg.Storage.DBPath)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-opus-4-20250514
invoker:
  mode: cli
  binary: claude
  timeout: 30m
engine:
  split_threshold: 6.5
  workers: 5
  max_task_retries: 2
gates:
  plan_min_score: 5.0
  code_min_score: 8.0
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api key = %q, want test-key", cfg.Anthropic.APIKey)
	}
	if cfg.Invoker.Mode != "cli" {
		t.Errorf("invoker mode = %q, want cli", cfg.Invoker.Mode)
	}
	if cfg.Invoker.Timeout != 30*time.Minute {
		t.Errorf("invoker timeout = %v, want 30m", cfg.Invoker.Timeout)
	}
	if cfg.Engine.SplitThreshold != 6.5 {
		t.Errorf("split threshold = %v, want 6.5", cfg.Engine.SplitThreshold)
	}
	if cfg.Engine.Workers != 5 {
		t.Errorf("workers = %d, want 5", cfg.Engine.Workers)
	}
	if cfg.Engine.MaxTaskRetries != 2 {
		t.Errorf("max task retries = %d, want 2", cfg.Engine.MaxTaskRetries)
	}
	if cfg.Gates.CodeMinScore != 8.0 {
		t.Errorf("code gate floor = %v, want 8.0", cfg.Gates.CodeMinScore)
	}

	// Unset values fall back to defaults.
	if cfg.Engine.MaxStructuralRetries != 3 {
		t.Errorf("structural retries = %d, want default 3", cfg.Engine.MaxStructuralRetries)
	}
	if cfg.TUI.RefreshRate != 250*time.Millisecond {
		t.Errorf("refresh rate = %v, want default 250ms", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestAPIKeyEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("CONDUCTOR_TEST_KEY", "expanded-secret")
	configContent := "anthropic:\n  api_key: ${CONDUCTOR_TEST_KEY}\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-secret" {
		t.Errorf("api key = %q, want expanded-secret", cfg.Anthropic.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Engine.Workers = 7
	cfg.Gates.CodeMinScore = 9.0
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Engine.Workers != 7 {
		t.Errorf("workers = %d, want 7", loaded.Engine.Workers)
	}
	if loaded.Gates.CodeMinScore != 9.0 {
		t.Errorf("code gate floor = %v, want 9.0", loaded.Gates.CodeMinScore)
	}
}
