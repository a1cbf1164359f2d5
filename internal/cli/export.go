package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Export a conversation as markdown, JSON or CSV",
		Long: `Export a conversation with every turn, its state and its cost.

Formats:
  markdown   Transcript with state annotations and a cost footer
  json       Structured turns, eligibility and cost for scripts
  csv        One row per turn with moderation, sensitivity and cost columns

Examples:
  askai export <id>
  askai export <id> --format json -o chat.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, ok := export.Get(format)
			if !ok {
				return fmt.Errorf("unknown format %q; valid formats: %s", format, strings.Join(export.ValidFormats(), ", "))
			}

			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := contextOf(cmd)
			conv, err := a.ownConversation(ctx, args[0])
			if err != nil {
				return err
			}
			turns, err := a.store.ListTurns(ctx, conv.ID)
			if err != nil {
				return err
			}
			first := ""
			if len(turns) > 0 {
				first = turns[0].UserText
			}

			content, err := exp.Export(export.ExportData{
				Conversation:        conversation.Summary{Conversation: conv, Name: conversation.DisplayName(conv, first)},
				Turns:               turns,
				ShowModeratedOutput: a.cfg.Moderation.ShowModeratedOutput,
			})
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if output == "" {
				fmt.Print(content)
				return nil
			}
			if err := os.WriteFile(output, []byte(content), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Printf("Exported conversation %s to %s\n", conv.ID, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json, csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
