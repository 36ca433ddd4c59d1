package cmd

import (
	"context"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sa-retail/strukindex/internal/index"
)

func newIndexCmd() *cobra.Command {
	var all bool
	var force bool

	cmd := &cobra.Command{
		Use:   "index [year]",
		Short: "Run an incremental index build",
		Long: `Scans a year partition and upserts new or modified receipt files
into the index. Without a year argument the current year is built.

--all builds every year partition found on disk; --force ignores the
cooldown and the mtime watermark, reprocessing the whole partition.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closer, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closer()

			years := []string{app.resolver.CurrentYear()}
			if len(args) == 1 {
				years = []string{args[0]}
			}
			if all {
				years, err = app.resolver.Years()
				if err != nil {
					return err
				}
			}

			return runBuilds(cmd, app, years, all, force)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Build every year partition on disk")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore cooldown and watermark, reprocess everything")
	return cmd
}

// runBuilds executes builds for the given years. The store serializes
// writes on a single connection, so parallelism only overlaps the
// directory scans; two workers cover that.
func runBuilds(cmd *cobra.Command, app *app, years []string, bootstrap, force bool) error {
	b := app.builder()
	ctx := cmd.Context()

	// In bootstrap mode an archive year with no rows yet gets one full
	// build; already indexed years stay incremental.
	optsFor := func(ctx context.Context, year string) (index.Options, error) {
		opts := index.Options{Force: force}
		if !bootstrap || force || year == app.resolver.CurrentYear() {
			return opts, nil
		}
		n, err := app.store.CountByYear(ctx, year)
		if err != nil {
			return opts, err
		}
		opts.Force = n == 0
		return opts, nil
	}

	if len(years) == 1 {
		opts, err := optsFor(ctx, years[0])
		if err != nil {
			return err
		}
		res, err := b.Build(ctx, years[0], opts)
		if err != nil {
			return err
		}
		return app.render.BuildResult(res)
	}

	var mu sync.Mutex
	results := make([]index.Result, 0, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, year := range years {
		year := year
		g.Go(func() error {
			opts, err := optsFor(gctx, year)
			if err != nil {
				return err
			}
			res, err := b.Build(gctx, year, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Year > results[j].Year })
	for _, res := range results {
		if err := app.render.BuildResult(res); err != nil {
			return err
		}
	}
	return nil
}
