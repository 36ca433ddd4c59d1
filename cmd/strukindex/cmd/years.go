package cmd

import (
	"github.com/spf13/cobra"
)

func newYearsCmd() *cobra.Command {
	var indexed bool

	cmd := &cobra.Command{
		Use:   "years",
		Short: "List available year partitions",
		Long: `Lists the years that have a receipt directory on disk, newest first.
--indexed lists the years present in the index instead, which may lag
the filesystem until the next build.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			var years []string
			if indexed {
				years, err = app.store.Years(cmd.Context())
			} else {
				years, err = app.resolver.Years()
			}
			if err != nil {
				return err
			}
			return app.render.Years(years)
		},
	}

	cmd.Flags().BoolVar(&indexed, "indexed", false, "List years present in the index")
	return cmd
}
