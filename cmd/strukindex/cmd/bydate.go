package cmd

import (
	"github.com/spf13/cobra"
)

func newByDateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bydate <ddMMyyyy> <register>",
		Short: "List one register's receipts for a calendar day",
		Long: `Lists the receipts a register produced on one day, oldest first.
The day is matched on file modification time and crosses year
partitions, so New Year receipts filed under the old year still appear.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			eng, err := app.engine()
			if err != nil {
				return err
			}

			summaries, err := eng.FindByDateAndRegister(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return app.render.Summaries(summaries)
		},
	}
	return cmd
}
