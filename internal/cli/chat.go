package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		model          string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Read messages from the terminal one line at a time and send each through
the safety checks as the next turn of the same conversation.

Type /new to start a fresh conversation, /quit or Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := contextOf(cmd)
			in := bufio.NewReader(os.Stdin)
			prompt := interactive()
			m := a.model(model)

			if prompt {
				fmt.Printf("askai chat with %s. /new starts over, /quit leaves.\n", m)
			}
			for {
				if prompt {
					fmt.Print("> ")
				}
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read input: %w", err)
				}
				text := strings.TrimSpace(line)
				switch text {
				case "/quit", "/exit":
					return nil
				case "/new":
					conversationID = ""
					fmt.Println("(new conversation)")
					continue
				case "":
					if errors.Is(err, io.EOF) {
						return nil
					}
					continue
				}

				out, serr := a.submit(ctx, in, os.Stdout, conversationID, text, m, prompt)
				if serr != nil {
					return serr
				}
				if out.ConversationID != "" {
					conversationID = out.ConversationID
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				fmt.Println()
			}
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (default from config)")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	return cmd
}
