package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/tabpilot/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates `tabpilot config` for managing the config file.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the tabpilot config file",
	}
	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigPathCmd(),
		newConfigApproveCmd(),
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config after environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			shown := *cfg
			shown.LLM.APIKey = redact(cfg.LLM.APIKey)

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigApproveCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "approve <tool>...",
		Short: "Always approve the given tools without asking",
		Long: `Add tools to the auto-approval list, or remove them with --off. Tool calls
the model marks as needing approval run without a prompt when listed.

Example:
  tabpilot config approve browser_click browser_type`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			for _, tool := range args {
				cfg.AutoApproval.SetToolAutoApproval(tool, !off)
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}

			approved := cfg.AutoApproval.Approved()
			if len(approved) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools are auto-approved.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-approved: %s\n", strings.Join(approved, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove the tools from the list")
	return cmd
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "…" + secret[len(secret)-4:]
}
