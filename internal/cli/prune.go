package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	var (
		olderThanDays  int
		conversationID string
		emptyOnly      bool
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete whole conversations",
		Long: `Delete conversations and every turn in them. Turns are never removed one
at a time.

  askai prune --conversation <id>   # delete one conversation
  askai prune --older-than 90     # delete conversations untouched for 90 days
  askai prune --empty             # delete conversations with no turns
  askai prune --older-than 90 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{conversationID != "", olderThanDays > 0, emptyOnly} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("pass exactly one of --conversation, --older-than or --empty")
			}

			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := contextOf(cmd)
			var ids []string
			if conversationID != "" {
				if _, err := a.ownConversation(ctx, conversationID); err != nil {
					return err
				}
				ids = []string{conversationID}
			} else {
				var cutoff time.Time
				if olderThanDays > 0 {
					cutoff = time.Now().AddDate(0, 0, -olderThanDays)
				}
				convs, err := a.store.ListConversations(ctx, a.owner, time.Time{}, cutoff)
				if err != nil {
					return err
				}
				for _, c := range convs {
					if emptyOnly {
						turns, err := a.store.ListTurns(ctx, c.ID)
						if err != nil {
							return err
						}
						if len(turns) > 0 {
							continue
						}
					}
					ids = append(ids, c.ID)
				}
			}

			if dryRun {
				fmt.Printf("Would delete %d conversation(s)\n", len(ids))
				return nil
			}
			for _, id := range ids {
				if err := a.store.DeleteConversation(ctx, id); err != nil {
					return err
				}
			}
			fmt.Printf("Deleted %d conversation(s)\n", len(ids))
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than", 0, "delete conversations not modified for this many days")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "delete this conversation")
	cmd.Flags().BoolVar(&emptyOnly, "empty", false, "delete conversations that have no turns")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show how many would be deleted")
	return cmd
}
