package cli

import (
	"net"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/server"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the MCP endpoint",
		Long: `Serve prompts over HTTP until interrupted. Clarification questions raised
while a prompt is processed are listed on GET /clarifications and answered
with POST /clarifications/{id}. Scheduled jobs run while the server is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()
			slog := log.With().Str("state", "init").Logger()

			broker := server.NewBroker(config.MustDuration(cfg.Server.ClarifyAfter))
			app, err := NewApp(ctx, cfg, AppOptions{Clarifier: broker, Sinks: true})
			if err != nil {
				return err
			}
			defer app.Close()

			slog.Info().Msg("performing initial reflection on core memory")
			app.Reflect(ctx)
			app.RunScheduler(ctx)

			s, err := server.New(ctx, server.Options{
				Agent:      app.Loop,
				Tools:      app.Invoker,
				Scheduler:  app.Scheduler,
				Broker:     broker,
				HandleCORS: cfg.Server.HandleCORS,
				APISecret:  cfg.Server.APISecret,
				EnableMCP:  cfg.MCP.Enabled,
			})
			if err != nil {
				return err
			}
			s.MountHandlers()
			if cfg.Server.APISecret == "" {
				slog.Warn().Msg("FRANCINE_API_SECRET is not set, the API accepts unauthenticated requests")
			}
			return s.ListenAndServe(ctx, net.JoinHostPort(cfg.Server.HostName, cfg.Server.Port))
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on")
	return cmd
}
