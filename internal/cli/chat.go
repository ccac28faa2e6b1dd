package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llamachat/toolchat/internal/bootstrap"
	"github.com/llamachat/toolchat/internal/channels"
	"github.com/llamachat/toolchat/internal/commands"
	"github.com/llamachat/toolchat/internal/runtime"
	"github.com/llamachat/toolchat/internal/session"
	"github.com/llamachat/toolchat/internal/usage"
)

func newChatCmd() *cobra.Command {
	var (
		prompt         string
		strategy       string
		transcriptPath string
		resume         bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a message (or start interactive chat without -p)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(strategy)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			trimmedPrompt := strings.TrimSpace(prompt)
			if trimmedPrompt != "" {
				if strings.HasPrefix(trimmedPrompt, "/") {
					return fmt.Errorf("slash commands are not supported in one-shot -p mode")
				}
				conversation, err := session.New(a.router, nil)
				if err != nil {
					return err
				}
				writer := &singleShotWriter{out: cmd.OutOrStdout()}
				return conversation.Send(cmd.Context(), writer, &runtime.Message{Text: trimmedPrompt})
			}

			if _, err := bootstrap.Initialize(cfg); err != nil {
				return err
			}
			if transcriptPath == "" {
				transcriptPath = cfg.TranscriptPath()
			}
			conversation, err := session.New(a.router, session.NewTranscript(transcriptPath))
			if err != nil {
				return err
			}
			tracker := usage.New(cfg.UsagePath())
			conversation.ConfigureUsage(tracker, cfg.LLM.Model)
			if err := startConversation(cmd.Context(), conversation, resume, cmd.ErrOrStderr()); err != nil {
				return err
			}

			listener := channels.NewCLI(cmd.InOrStdin(), cmd.OutOrStdout(), channels.CLIOptions{
				HistoryFile:       cfg.ReplHistoryPath(),
				// Each turn makes at most two completion calls.
				TurnTimeout:       2 * cfg.LLM.RequestTimeout,
				CancelOnInterrupt: true,
			})
			handler := commands.Router{
				Commands: commands.New(conversation, tracker),
				Next:     conversation,
			}
			return listener.Listen(cmd.Context(), handler)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt message")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Routing strategy: pattern or model (overrides router.strategy)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Transcript file (default $TOOLCHAT_HOME/transcripts/cli.jsonl)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume the conversation stored in the transcript")

	return cmd
}

func startConversation(ctx context.Context, conversation *session.Conversation, resume bool, out io.Writer) error {
	if !resume {
		return conversation.Reset(ctx)
	}
	n, err := conversation.Resume(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		_, err = fmt.Fprintf(out, "Resumed %d messages.\n", n)
	}
	return err
}

type singleShotWriter struct {
	out io.Writer
}

// WriteMessage writes one response message for one-shot prompt mode.
func (w *singleShotWriter) WriteMessage(_ context.Context, text string) error {
	_, err := fmt.Fprintln(w.out, text)
	return err
}
