package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/server"
	"github.com/tansive/francine/pkg/api"
)

func newAskCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "ask PROMPT...",
		Short: "Ask Francine a single question",
		Long: `Process one prompt and print the answer. With --server the prompt is sent
to a running francine server instead of being handled in this process.

Examples:
  francine ask "look up the domain example.com"
  francine ask --server http://127.0.0.1:8627 "list my files"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			ctx := cmd.Context()
			console := NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())

			if serverURL != "" {
				client, err := newAPIClient(cfg, serverURL)
				if err != nil {
					return err
				}
				rsp, err := client.Ask(ctx, prompt)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(cmd.OutOrStdout(), rsp)
				} else {
					console.Deliver(ctx, rsp.Text)
				}
				return nil
			}

			opts := AppOptions{Clarifier: console, Sinks: true}
			if !jsonOutput {
				opts.Responder = console
			}
			app, err := NewApp(ctx, cfg, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			res := app.Loop.Handle(ctx, prompt)
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), toAskResponse(res))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&serverURL, "server", "s", "", "URL of a running francine server")
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback PROMPT...",
		Short: "Compare two answers to a prompt and record the one you prefer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			console := NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
			app, err := NewApp(ctx, cfg, AppOptions{Chooser: console})
			if err != nil {
				return err
			}
			defer app.Close()
			console.Info("--- Entering Feedback Mode ---")
			res, err := app.Loop.Feedback(ctx, strings.Join(args, " "))
			return reportFeedback(console, res, err)
		},
	}
}

// newAPIClient signs a short-lived token when an API secret is configured.
func newAPIClient(cfg *config.ConfigParam, serverURL string) (*api.Client, error) {
	var opts []api.ClientOption
	if cfg.Server.APISecret != "" {
		token, err := server.IssueToken(cfg.Server.APISecret, "cli", config.MustDuration(cfg.Server.TokenExpiry))
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithToken(token))
	}
	return api.NewClient(MorphServer(serverURL), opts...)
}

func toAskResponse(res agent.Result) api.AskResponse {
	return api.AskResponse{
		Text:      res.Text,
		Terminal:  string(res.Terminal),
		Attempts:  res.Attempts,
		SessionID: res.SessionID,
	}
}
