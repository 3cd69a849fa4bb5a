// Package commands implements the tabpilot CLI commands using cobra.
package commands

import (
	"github.com/entrhq/tabpilot/pkg/config"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tabpilot",
		Short: "tabpilot - an LLM agent that drives your browser",
		Long: `tabpilot runs an LLM agent that completes tasks in a Chromium browser.
Tool calls the model marks as sensitive are confirmed in the terminal, and
successful tool sequences are remembered per site.

Examples:
  tabpilot run "find the cheapest flight from LIS to BER next friday"
  tabpilot run --url news.ycombinator.com "summarize the top 3 stories"
  tabpilot memory list --domain github.com
  tabpilot config init`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newMemoryCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file (default ~/.tabpilot/config.yaml)")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "dotenv files to load (default ./.env when present)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")

	return rootCmd
}

// configPath returns the --config value or the default location.
func configPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the config named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging points the file logger at the configured directory and level.
// The returned func flushes and closes the log file.
func setupLogging(cfg *config.Config) func() {
	if cfg.Logging.Dir != "" {
		logging.SetLogDirectory(cfg.Logging.Dir)
	}
	logging.SetLevel(cfg.LogLevel())
	return func() { _ = logging.Shutdown() }
}
