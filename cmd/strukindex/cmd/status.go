package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/index"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [year]",
		Short: "Show build state and index statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			var years []string
			if len(args) == 1 {
				years = args
			} else {
				years, err = app.resolver.Years()
				if err != nil {
					return err
				}
			}
			for _, year := range years {
				st, ok := index.NewMetaFile(app.cfg.Storage.DataDir, year).LoadStatus()
				if err := app.render.BuildStatus(year, st, ok); err != nil {
					return err
				}
			}

			stats, err := app.store.CollectStats(cmd.Context())
			if err != nil {
				return err
			}
			return app.render.Stats(stats)
		},
	}
	return cmd
}
