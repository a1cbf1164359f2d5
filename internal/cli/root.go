// Package cli defines the Cobra command tree for the askai CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "askai",
	Short: "Policy-gated conversations with large language models",
	Long: `askai sends your messages to a language model only after they pass
content moderation and a scan for sensitive information such as names,
email addresses, phone numbers and postcodes.

Every call is priced and recorded, and turns that were blocked, withheld
or failed are never sent to the model as conversation history.

Run 'askai init' to write a default configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/askai/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline state transitions to stderr")

	rootCmd.AddCommand(
		newInitCmd(),
		newAskCmd(),
		newConfirmCmd(),
		newChatCmd(),
		newChatsCmd(),
		newShowCmd(),
		newExportCmd(),
		newSpendCmd(),
		newPruneCmd(),
		newModelsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("askai %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
