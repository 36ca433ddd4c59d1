package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/query"
)

func newSearchCmd() *cobra.Command {
	var year string
	var date string
	var register string

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search receipt content",
		Long: `Finds receipts whose text contains the keyword, newest first.
Keywords shorter than three characters return nothing. Only receipts
already processed by 'normalize' are searchable.

The search covers one year partition: --year if given, else the year
of --date, else the current year.`,
		Args: cobra.ExactArgs(1),
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

			summaries, err := eng.SearchByContent(cmd.Context(), args[0], query.SearchFilter{
				Year:     year,
				Date:     date,
				Register: register,
			})
			if err != nil {
				return err
			}
			return app.render.Summaries(summaries)
		},
	}

	cmd.Flags().StringVarP(&year, "year", "y", "", "Year partition (default: from --date, else current year)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Restrict to one day (ddMMyyyy)")
	cmd.Flags().StringVarP(&register, "register", "r", "", "Restrict to one register")
	return cmd
}
