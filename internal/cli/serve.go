package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve askai as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout. Tools:
submit_turn, confirm_turn, list_conversations, get_conversation, total_spend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(os.Stderr, "askai MCP server for %s on stdio\n", a.owner)
			s := mcp.NewServer(a.pipeline, a.store, a.formatter, a.owner, a.cfg.DefaultModel, version)
			return s.ServeStdio()
		},
	}
}
