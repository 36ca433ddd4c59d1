package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/index"
	"github.com/sa-retail/strukindex/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the live directory and index continuously",
		Long: `Watches the current year's live directory and runs an incremental
build whenever receipt files settle. A polling fallback covers mounts
that drop filesystem notifications. Runs until interrupted.

The cooldown still applies: bursts trigger at most one build per
cooldown window. Lower index.cooldown in the config for snappier
indexing on a dedicated watch host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			year := app.resolver.CurrentYear()
			dir, err := app.resolver.Resolve(year)
			if err != nil {
				return err
			}

			b := app.builder()
			norm := index.NewNormalizer(app.store, app.cfg.Normalize.BatchSize, app.log)
			trigger := func(ctx context.Context) error {
				res, err := b.Build(ctx, app.resolver.CurrentYear(), index.Options{})
				if err != nil {
					return err
				}
				if !res.Ran {
					return nil
				}
				_, err = norm.Run(ctx, 0)
				return err
			}

			w := watcher.New(dir,
				app.cfg.DebounceDuration(),
				app.cfg.PollIntervalDuration(),
				trigger, app.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.render.Text("watching " + dir + " (ctrl-c to stop)")
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	return cmd
}
