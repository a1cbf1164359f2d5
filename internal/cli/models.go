package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models askai can use, with context limits and prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cat, err := cfg.Catalog()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tINPUT $/1K\tOUTPUT $/1K\t")
			for _, m := range cat.Models() {
				name := m.Name
				if name == cfg.DefaultModel {
					name += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\t\n", name, m.Provider, m.ContextLimit, m.InputCostPer1K, m.OutputCostPer1K)
			}
			return tw.Flush()
		},
	}
}
