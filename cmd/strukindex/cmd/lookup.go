package cmd

import (
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	var year string

	cmd := &cobra.Command{
		Use:   "lookup <register> <sequence>",
		Short: "Fetch one receipt by register and sequence",
		Long: `Looks up a single receipt by its register and sequence numbers.
Inputs are zero-padded to canonical form, so "3 45" and "03 000045"
name the same receipt. Defaults to the current year.`,
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

			if year == "" {
				year = app.resolver.CurrentYear()
			}
			summary, err := eng.FindByKey(cmd.Context(), year, args[0], args[1])
			if err != nil {
				return err
			}
			return app.render.Summary(summary)
		},
	}

	cmd.Flags().StringVarP(&year, "year", "y", "", "Year partition (default: current year)")
	return cmd
}
