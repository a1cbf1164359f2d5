package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/conversation"
)

func newChatsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List your conversations, most recently modified first",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := dateRange(from, to)
			if err != nil {
				return err
			}

			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			convs, err := a.store.ListConversations(contextOf(cmd), a.owner, start, end)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("No conversations.")
				return nil
			}
			for _, c := range convs {
				fmt.Printf("%s  %s  %s\n", c.ID, c.ModifiedAt.Local().Format("2006-01-02 15:04"), c.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "only conversations modified on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "only conversations modified on or before this date (YYYY-MM-DD)")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			summary := conversation.Summary{Conversation: conv, Name: conversation.DisplayName(conv, first)}
			fmt.Print(a.formatter.FormatTranscript(summary, turns))
			return nil
		},
	}
}
