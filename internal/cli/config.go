package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llamachat/toolchat/internal/bootstrap"
	"github.com/llamachat/toolchat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print merged configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Write(cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			homeDir, err := config.HomeDir()
			if err != nil {
				return err
			}
			cfg := &config.Config{HomeDir: homeDir}

			created, err := bootstrap.Initialize(cfg)
			if err != nil {
				return err
			}
			if !created {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", cfg.ConfigPath())
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote config file: %s\n", cfg.ConfigPath())
			return err
		},
	}
}
