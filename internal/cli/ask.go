package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/pipeline"
)

func newAskCmd() *cobra.Command {
	var (
		model          string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message through the safety checks to a model",
		Long: `Send a message to a model. The message is checked by content moderation
and scanned for sensitive information first. If it may be sensitive you are
asked to confirm before anything is sent.

Examples:
  askai ask "What is the capital of Spain?"
  askai ask "And of France?" --conversation <id>
  askai ask "Summarise this" --model claude-3-haiku-20240307`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			text := strings.Join(args, " ")
			_, err = a.submit(contextOf(cmd), bufio.NewReader(os.Stdin), os.Stdout, conversationID, text, a.model(model), interactive())
			return err
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (default from config)")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	return cmd
}

func newConfirmCmd() *cobra.Command {
	var sensitive bool

	cmd := &cobra.Command{
		Use:   "confirm <turn-id>",
		Short: "Answer a sensitive-information check for a pending message",
		Long: `Confirm whether a message that is waiting on the sensitive-information
check really is sensitive. Without --sensitive the message is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := contextOf(cmd)
			if _, err := a.ownTurn(ctx, args[0]); err != nil {
				return err
			}
			out, err := withSpinner(ctx, "Waiting for the model", func(ctx context.Context) (pipeline.Outcome, error) {
				return a.pipeline.ConfirmTurn(ctx, args[0], sensitive)
			})
			if err != nil {
				return err
			}
			printOutcome(os.Stdout, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sensitive, "sensitive", false, "the message is sensitive: withhold it")
	return cmd
}

// submit runs one message through the pipeline and prints the result. When
// prompt is set a needs_confirmation outcome is answered on in; otherwise the
// user is told how to confirm later.
func (a *app) submit(ctx context.Context, in *bufio.Reader, w io.Writer, conversationID, text, model string, prompt bool) (pipeline.Outcome, error) {
	out, err := withSpinner(ctx, "Checking", func(ctx context.Context) (pipeline.Outcome, error) {
		return a.pipeline.SubmitTurn(ctx, conversationID, a.owner, text, model)
	})
	if err != nil {
		return out, err
	}
	printOutcome(w, out)
	if out.Kind != pipeline.KindNeedsConfirmation {
		return out, nil
	}

	if !prompt {
		fmt.Fprintf(w, "Run 'askai confirm %s' to send it, or 'askai confirm %s --sensitive' to withhold it.\n", out.TurnID, out.TurnID)
		return out, nil
	}
	sensitive, err := askSensitive(in, w)
	if err != nil {
		return out, fmt.Errorf("read confirmation: %w", err)
	}
	next, err := withSpinner(ctx, "Waiting for the model", func(ctx context.Context) (pipeline.Outcome, error) {
		return a.pipeline.ConfirmTurn(ctx, out.TurnID, sensitive)
	})
	if err != nil {
		return next, err
	}
	printOutcome(w, next)
	return next, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
