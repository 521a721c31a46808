package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify conductor configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/conductor/config.yaml
Project-specific overrides can be placed in .conductor/config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// configKeys maps dotted key names to getters and setters over the
// config struct.
var configKeys = map[string]struct {
	get func(*config.Config) string
	set func(*config.Config, string) error
}{
	"anthropic.api_key": {
		get: func(c *config.Config) string {
			if c.Anthropic.APIKey == "" {
				return "(not set)"
			}
			return "****"
		},
		set: func(c *config.Config, v string) error { c.Anthropic.APIKey = v; return nil },
	},
	"anthropic.model": {
		get: func(c *config.Config) string { return c.Anthropic.Model },
		set: func(c *config.Config, v string) error { c.Anthropic.Model = v; return nil },
	},
	"invoker.mode": {
		get: func(c *config.Config) string { return c.Invoker.Mode },
		set: func(c *config.Config, v string) error {
			if v != "api" && v != "cli" {
				return fmt.Errorf("invoker.mode must be api or cli")
			}
			c.Invoker.Mode = v
			return nil
		},
	},
	"invoker.binary": {
		get: func(c *config.Config) string { return c.Invoker.Binary },
		set: func(c *config.Config, v string) error { c.Invoker.Binary = v; return nil },
	},
	"invoker.timeout": {
		get: func(c *config.Config) string { return c.Invoker.Timeout.String() },
		set: setDuration(func(c *config.Config, d time.Duration) { c.Invoker.Timeout = d }),
	},
	"engine.split_threshold": {
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Engine.SplitThreshold, 'f', -1, 64) },
		set: setFloat(func(c *config.Config, f float64) { c.Engine.SplitThreshold = f }),
	},
	"engine.workers": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Engine.Workers) },
		set: setInt(func(c *config.Config, n int) { c.Engine.Workers = n }),
	},
	"engine.max_transient_retries": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Engine.MaxTransientRetries) },
		set: setInt(func(c *config.Config, n int) { c.Engine.MaxTransientRetries = n }),
	},
	"engine.max_structural_retries": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Engine.MaxStructuralRetries) },
		set: setInt(func(c *config.Config, n int) { c.Engine.MaxStructuralRetries = n }),
	},
	"engine.max_task_retries": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Engine.MaxTaskRetries) },
		set: setInt(func(c *config.Config, n int) { c.Engine.MaxTaskRetries = n }),
	},
	"engine.backoff_base": {
		get: func(c *config.Config) string { return c.Engine.BackoffBase.String() },
		set: setDuration(func(c *config.Config, d time.Duration) { c.Engine.BackoffBase = d }),
	},
	"engine.backoff_cap": {
		get: func(c *config.Config) string { return c.Engine.BackoffCap.String() },
		set: setDuration(func(c *config.Config, d time.Duration) { c.Engine.BackoffCap = d }),
	},
	"gates.plan_min_score": {
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Gates.PlanMinScore, 'f', -1, 64) },
		set: setFloat(func(c *config.Config, f float64) { c.Gates.PlanMinScore = f }),
	},
	"gates.code_min_score": {
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Gates.CodeMinScore, 'f', -1, 64) },
		set: setFloat(func(c *config.Config, f float64) { c.Gates.CodeMinScore = f }),
	},
	"tui.refresh_rate": {
		get: func(c *config.Config) string { return c.TUI.RefreshRate.String() },
		set: setDuration(func(c *config.Config, d time.Duration) { c.TUI.RefreshRate = d }),
	},
}

// displayOrder keeps 'config' output stable.
var displayOrder = []string{
	"anthropic.api_key",
	"anthropic.model",
	"invoker.mode",
	"invoker.binary",
	"invoker.timeout",
	"engine.split_threshold",
	"engine.workers",
	"engine.max_transient_retries",
	"engine.max_structural_retries",
	"engine.max_task_retries",
	"engine.backoff_base",
	"engine.backoff_cap",
	"gates.plan_min_score",
	"gates.code_min_score",
	"tui.refresh_rate",
}

func displayAllConfig(cfg *config.Config) {
	for _, key := range displayOrder {
		fmt.Printf("%s: %s\n", key, configKeys[key].get(cfg))
	}
}

func displayConfigKey(cfg *config.Config, key string) {
	entry, ok := configKeys[key]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	fmt.Println(entry.get(cfg))
}

func setConfigKey(cfg *config.Config, key, value string) {
	entry, ok := configKeys[key]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err := entry.set(cfg, value); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	fmt.Printf("Saved to %s\n", config.GetUserConfigPath())
}

func setInt(apply func(*config.Config, int)) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		apply(c, n)
		return nil
	}
}

func setFloat(apply func(*config.Config, float64)) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		apply(c, f)
		return nil
	}
}

func setDuration(apply func(*config.Config, time.Duration)) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		apply(c, d)
		return nil
	}
}
