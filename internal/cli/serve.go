package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/llamachat/toolchat/internal/logging"
	"github.com/llamachat/toolchat/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(strategy)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(a.router)
			if err != nil {
				return err
			}

			logging.Logger().Info(
				"starting server",
				"addr", cfg.Server.Addr,
				"backend", cfg.LLM.Backend,
				"model", cfg.LLM.Model,
				"strategy", a.router.Strategy(),
				"tools", a.registry.Len(),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(runCtx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Routing strategy: pattern or model (overrides router.strategy)")
	return cmd
}
