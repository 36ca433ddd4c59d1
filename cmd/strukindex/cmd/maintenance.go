package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMaintenanceCmd() *cobra.Command {
	var backfillPrefix bool

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Compact the index database",
		Long: `Checkpoints, re-analyzes and vacuums the index database. Run during
quiet hours; builds should be idle.

--backfill-prefix fills the key prefix column on rows written by older
versions that predate it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if backfillPrefix {
				n, err := app.store.BackfillKeyPrefix(cmd.Context())
				if err != nil {
					return err
				}
				app.render.Text(fmt.Sprintf("backfilled %d row(s)", n))
			}

			if err := app.store.Maintain(cmd.Context()); err != nil {
				return err
			}
			app.render.Text("maintenance done")
			return nil
		},
	}

	cmd.Flags().BoolVar(&backfillPrefix, "backfill-prefix", false, "Backfill the key prefix column")
	return cmd
}
