package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var year string

	cmd := &cobra.Command{
		Use:   "preview <key>",
		Short: "Stream a receipt file's raw content",
		Long: `Resolves a receipt key (e.g. 03.000045) to its file and writes the
raw bytes to stdout. Defaults to the current year.`,
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

			if year == "" {
				year = app.resolver.CurrentYear()
			}
			path, err := eng.ResolveStreamPath(cmd.Context(), year, args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = io.Copy(cmd.OutOrStdout(), f)
			return err
		},
	}

	cmd.Flags().StringVarP(&year, "year", "y", "", "Year partition (default: current year)")
	return cmd
}
