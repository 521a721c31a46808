package main

import (
	"os"
	"strings"
	"testing"

	"github.com/praxisworks/conductor/internal/config"
)

func TestConfigInitWritesTemplate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := runConfigInit(configInitCmd, nil); err != nil {
		t.Fatalf("config init: %v", err)
	}

	path := config.GetUserConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	for _, section := range []string{"anthropic:", "invoker:", "engine:", "gates:", "storage:"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("template missing %s section", section)
		}
	}

	// The template must round-trip through the loader.
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Gates.CodeMinScore != 7.0 {
		t.Errorf("template code gate = %v, want 7.0", cfg.Gates.CodeMinScore)
	}

	// A second init refuses to clobber the file unless forced.
	if err := runConfigInit(configInitCmd, nil); err == nil {
		t.Error("expected refusal to overwrite existing config")
	}
	configInitForce = true
	defer func() { configInitForce = false }()
	if err := runConfigInit(configInitCmd, nil); err != nil {
		t.Errorf("forced overwrite: %v", err)
	}
}
