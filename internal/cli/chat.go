package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/memory"
)

const feedbackCommand = "/feedback"

// chatAgent is the part of the agent loop the chat session drives.
type chatAgent interface {
	Handle(ctx context.Context, prompt string) agent.Result
	Feedback(ctx context.Context, prompt string) (agent.FeedbackResult, error)
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a text chat with Francine",
		Long: `Start an interactive chat. Type exit, quit or bye to leave.
Prefix a prompt with /feedback to compare two styles of answer and record
which one you prefer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			console := NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
			app, err := NewApp(ctx, cfg, AppOptions{
				Clarifier: console,
				Responder: console,
				Chooser:   console,
				Sinks:     true,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			console.Info("Performing initial reflection on startup to update core memory...")
			app.Reflect(ctx)

			schedCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			app.RunScheduler(schedCtx)

			return runChat(ctx, app.Loop, app.Store, console)
		},
	}
}

// runChat reads prompts until exit, quit, bye or end of input. Each handled
// prompt is saved as the profile's last_message.
func runChat(ctx context.Context, loop chatAgent, store *memory.Store, console *Console) error {
	profile := store.LoadProfile()
	console.Info("Starting Francine in text chat mode.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := console.ReadLine("You")
		if errors.Is(err, io.EOF) {
			console.Deliver(ctx, "Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "exit", "quit", "bye":
			console.Deliver(ctx, "Goodbye!")
			return nil
		}

		if rest, ok := strings.CutPrefix(input, feedbackCommand); ok && (rest == "" || rest[0] == ' ') {
			prompt := strings.TrimSpace(rest)
			if prompt == "" {
				console.Info("Usage: %s <prompt>", feedbackCommand)
				continue
			}
			console.Info("--- Entering Feedback Mode ---")
			res, err := loop.Feedback(ctx, prompt)
			if err := reportFeedback(console, res, err); err != nil {
				console.Info("An error occurred during feedback mode: %v.", err)
			}
			continue
		}

		loop.Handle(ctx, input)
		profile["last_message"] = input
		if err := store.SaveProfile(profile); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("unable to save user profile")
		}
	}
}
