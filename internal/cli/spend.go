package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/ledger"
)

func newSpendCmd() *cobra.Command {
	var (
		all            bool
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Show how much model calls have cost",
		Long: `Show the dollar cost of every recorded model call, including calls whose
turns were later excluded from conversation history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := contextOf(cmd)
			if conversationID != "" {
				if _, err := a.ownConversation(ctx, conversationID); err != nil {
					return err
				}
				turns, err := a.store.ListTurns(ctx, conversationID)
				if err != nil {
					return err
				}
				c := ledger.Sum(turns)
				fmt.Printf("Conversation %s: $%.6f (input $%.6f, output $%.6f)\n", conversationID, c.Total(), c.InputDollars, c.OutputDollars)
				return nil
			}

			owner := a.owner
			if all {
				owner = ""
			}
			total, err := a.store.TotalSpend(ctx, owner)
			if err != nil {
				return err
			}
			if all {
				fmt.Printf("All owners: $%.6f\n", total)
			} else {
				fmt.Printf("%s: $%.6f\n", owner, total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "total across every owner")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "cost of one conversation")
	return cmd
}
