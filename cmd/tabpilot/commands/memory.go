package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/tabpilot/pkg/agent/memory"
	"github.com/entrhq/tabpilot/pkg/tools/memorystore"
	"github.com/spf13/cobra"
)

// newMemoryCmd creates `tabpilot memory` for inspecting learned tool sequences.
func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit what the agent remembers per site",
	}
	cmd.AddCommand(newMemoryListCmd(), newMemoryAddCmd(), newMemoryForgetCmd())
	return cmd
}

func openStore(cmd *cobra.Command) (*memorystore.FileStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return memorystore.NewFileStore(cfg.Memory.Dir, cfg.Memory.MaxPerDomain)
}

func newMemoryListCmd() *cobra.Command {
	var (
		domain string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List remembered tool sequences, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			var entries []*memorystore.Entry
			if domain != "" {
				entries, err = store.Lookup(cmd.Context(), domain, limit)
			} else {
				entries, err = store.List(cmd.Context())
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, tipsStyle.Render("No memories yet."))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %s\n",
					tipsStyle.Render(e.ID),
					headerStyle.Render(e.Domain),
					e.TaskDescription)
				fmt.Fprintf(out, "    %s\n", toolStyle.Render(strings.Join(e.ToolSequence, memory.SequenceSeparator)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "only show memories for this domain or URL")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of memories to show")
	return cmd
}

func newMemoryAddCmd() *cobra.Command {
	var (
		domain string
		steps  []string
	)
	cmd := &cobra.Command{
		Use:   "add <task description>",
		Short: "Teach the agent a tool sequence for a site",
		Long: `Record a tool sequence by hand. It is offered to the agent whenever it
works on the given domain.

Example:
  tabpilot memory add --domain github.com --steps browser_navigate,browser_click,browser_type "search a repository"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			entry, err := store.Save(cmd.Context(), memory.Record{
				Domain:          domain,
				TaskDescription: strings.Join(args, " "),
				ToolSequence:    steps,
			}, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s for %s\n", entry.ID, entry.Domain)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "domain or URL the sequence applies to")
	cmd.Flags().StringSliceVar(&steps, "steps", nil, "comma-separated tool names in order")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

func newMemoryForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete a remembered tool sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, memorystore.ErrNotFound) {
					return fmt.Errorf("no memory with id %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
			return nil
		},
	}
}
