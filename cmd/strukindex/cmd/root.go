// Package cmd provides the CLI commands for strukindex.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sa-retail/strukindex/internal/config"
	"github.com/sa-retail/strukindex/internal/index"
	"github.com/sa-retail/strukindex/internal/logging"
	"github.com/sa-retail/strukindex/internal/query"
	"github.com/sa-retail/strukindex/internal/store"
	"github.com/sa-retail/strukindex/internal/ui"
	"github.com/sa-retail/strukindex/pkg/version"
)

var (
	configPath string
	debugMode  bool
	jsonOutput bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the strukindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strukindex",
		Short: "Incremental index and query engine for flat-file receipts",
		Long: `strukindex maintains a searchable index over per-year directories of
point-of-sale receipt files. The index is a rebuildable cache: receipt
files on disk stay the source of truth.

Point it at the receipt root via --config or STRUKINDEX_BASE_PATH.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("strukindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(
		newIndexCmd(),
		newNormalizeCmd(),
		newLookupCmd(),
		newByDateCmd(),
		newSearchCmd(),
		newPreviewCmd(),
		newYearsCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newCleanupCmd(),
		newMaintenanceCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	// Command output goes to stdout; logs stay out of the way.
	logCfg.WriteToStderr = false

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// app bundles the wiring shared by every command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *store.Store
	resolver *index.Resolver
	render   *ui.Renderer
}

// openApp loads configuration and opens the index database. The
// returned closer must be called before the command exits.
func openApp(cmd *cobra.Command) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}

	st, err := store.Open(cfg.IndexDBPath())
	if err != nil {
		return nil, nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      slog.Default(),
		store:    st,
		resolver: index.NewResolver(cfg.Storage.BasePath),
		render:   ui.NewRenderer(cmd.OutOrStdout(), jsonOutput),
	}
	closer := func() { _ = st.Close() }
	return a, closer, nil
}

// builder constructs the incremental builder with the app's tuning.
func (a *app) builder() *index.Builder {
	return index.NewBuilder(
		a.store,
		a.resolver,
		a.cfg.Storage.DataDir,
		a.cfg.CooldownDuration(),
		a.cfg.Index.BatchSize,
		a.cfg.Index.ProgressEvery,
		a.log,
	)
}

// engine constructs the query engine.
func (a *app) engine() (*query.Engine, error) {
	return query.New(a.store, a.log)
}

