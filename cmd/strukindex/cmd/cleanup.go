package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/index"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop index partitions older than the previous year",
		Long: `Removes index rows and watermark files for years before last year.
Receipt files on disk are never touched; re-running 'index --force' on
an archive directory restores its partition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			removed, err := index.Cleanup(cmd.Context(), app.store, app.resolver,
				app.cfg.Storage.DataDir, app.log)
			if err != nil {
				return err
			}
			app.render.Text(fmt.Sprintf("removed %d row(s)", removed))
			return nil
		},
	}
	return cmd
}
