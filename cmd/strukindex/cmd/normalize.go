package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/index"
)

func newNormalizeCmd() *cobra.Command {
	var batch int
	var max int

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Derive searchable content for unprocessed receipts",
		Long: `Reads receipt files whose rows lack normalized content and fills the
search column in batches. Run after index builds, or from cron; the
backlog drains incrementally and the command is safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			size := app.cfg.Normalize.BatchSize
			if batch > 0 {
				size = batch
			}
			norm := index.NewNormalizer(app.store, size, app.log)
			res, err := norm.Run(cmd.Context(), max)
			if err != nil {
				return err
			}

			app.render.Text(fmt.Sprintf("normalized=%d missing=%d", res.Normalized, res.Missing))
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "Rows per chunk (default from config)")
	cmd.Flags().IntVar(&max, "max", 0, "Stop after this many rows (0 = drain the backlog)")
	return cmd
}
