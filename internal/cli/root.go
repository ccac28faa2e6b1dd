// Package cli wires Cobra subcommands to application dependencies; it is a thin controller with no business logic.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/llamachat/toolchat/internal/logging"
	"github.com/llamachat/toolchat/internal/provider"
)

var providerFactory = provider.NewFromConfig

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	var (
		verbose bool
		debug   bool
	)

	root := &cobra.Command{
		Use:   "toolchat",
		Short: "Chat with an OpenAI-compatible model that can call local tools",
		// Let main handle fatal error rendering through structured logs.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			switch {
			case debug:
				logging.SetLevel(slog.LevelDebug)
			case verbose:
				logging.SetLevel(slog.LevelInfo)
			default:
				logging.SetLevel(slog.LevelWarn)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to `toolchat chat` when no subcommand is provided.
			chatCmd, _, err := cmd.Find([]string{"chat"})
			if err != nil {
				return err
			}
			chatCmd.SetContext(cmd.Context())
			return chatCmd.RunE(chatCmd, args)
		},
	}

	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (info level)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return root
}
