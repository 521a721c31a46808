package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
)

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a commented configuration template to the user config path.

An existing file is left untouched unless --force is given. Edit the
template afterwards, or manage individual keys with 'conductor config
<key> <value>'.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// configTemplate is the starter config, pre-filled with the defaults.
const configTemplate = `# conductor configuration
#
# Project-specific overrides can be placed in .conductor/config.yaml
# at the repository root. Environment variables with the CONDUCTOR_
# prefix override both files; ANTHROPIC_API_KEY is also honored.

anthropic:
  # API key for the Anthropic API. ${VAR} references are expanded.
  api_key: "${ANTHROPIC_API_KEY}"
  model: claude-sonnet-4-20250514
  max_tokens: 8192

invoker:
  # api calls the Anthropic API directly; cli shells out to the binary
  # below, for machines that keep no API key.
  mode: api
  binary: claude
  # Upper bound on a single agent call.
  timeout: 15m

engine:
  # Complexity score at which a task is split into children.
  split_threshold: 5.0
  # Parallel implementation workers per batch.
  workers: 3
  max_transient_retries: 3
  max_structural_retries: 3
  max_task_retries: 3
  backoff_base: 500ms
  backoff_cap: 30s

gates:
  # Minimum reviewer scores to pass plan validation and final
  # verification.
  plan_min_score: 6.0
  code_min_score: 7.0

storage:
  db_path: .conductor/state.db
  log_dir: .conductor/logs

tui:
  refresh_rate: 250ms
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	green.Printf("wrote %s\n", path)
	return nil
}
