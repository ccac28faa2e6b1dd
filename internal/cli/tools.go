package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llamachat/toolchat/internal/commands"
	"github.com/llamachat/toolchat/internal/config"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List registered tools in match order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			registry, store, err := buildToolRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), commands.FormatTools(registry))
			return err
		},
	}
}
