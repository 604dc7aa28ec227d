// Package cmd wires the query engine to a command line interface.
package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ev-ad-insights/cache"
	"ev-ad-insights/config"
	"ev-ad-insights/metrics"
	"ev-ad-insights/services"
	"ev-ad-insights/storage"
	"ev-ad-insights/utils"
)

// options are the flags shared by every subcommand.
type options struct {
	dataPath    string
	schema      string
	catalogPath string
	markets     []string
	vehicles    []string
	platforms   []string
	allTargets  bool
	color       bool
}

// app is the state a subcommand runs with once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	catalog *config.Catalog
	engine  *services.Engine
	opts    *options
}

// RootCommand creates the root command with all subcommands attached.
func RootCommand(cfg *config.Config, logger *utils.Logger) *cobra.Command {
	opts := &options{
		dataPath:    cfg.DataPath,
		schema:      cfg.DataSchema,
		catalogPath: cfg.CatalogPath,
	}
	a := &app{cfg: cfg, logger: logger, opts: opts}

	rootCmd := &cobra.Command{
		Use:           "evads",
		Short:         "EV advertisement insights",
		Long:          "Normalize EV ad exports, extract feature mentions and report on them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	setupFlags(rootCmd, opts)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize()
	}

	rootCmd.AddCommand(
		summaryCommand(a),
		featuresCommand(a),
		styleCommand(a),
		detailCommand(a),
		exportCommand(a),
		storeCommand(a),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command, opts *options) {
	f := cmd.PersistentFlags()
	f.StringVarP(&opts.dataPath, "data", "d", opts.dataPath, "CSV file or directory of CSV chunks")
	f.StringVarP(&opts.schema, "schema", "s", opts.schema, "Source schema: google, facebook, merged")
	f.StringVar(&opts.catalogPath, "catalog", opts.catalogPath, "Catalog YAML (default: built-in)")
	f.StringSliceVarP(&opts.markets, "market", "m", nil, "Market filter (repeatable)")
	f.StringSliceVarP(&opts.vehicles, "vehicle", "v", nil, "Vehicle filter (repeatable)")
	f.StringSliceVarP(&opts.platforms, "platform", "p", nil, "Platform filter (repeatable)")
	f.BoolVar(&opts.allTargets, "all", false, "Ignore the catalog target markets and vehicles")
	f.BoolVar(&opts.color, "color", false, "Colorize report output")
}

func (a *app) initialize() error {
	catalog, err := config.LoadCatalog(a.opts.catalogPath)
	if err != nil {
		return err
	}

	m, err := metrics.NewCacheMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	a.catalog = catalog
	a.engine = services.NewEngine(catalog, cache.New(a.logger, m), a.logger)
	return nil
}

// load reads the configured data source into a dataset.
func (a *app) load() (*services.Dataset, error) {
	if a.opts.dataPath == "" {
		return nil, fmt.Errorf("no data source: pass --data or set DATA_PATH")
	}
	src := storage.NewCSVSource(a.opts.dataPath, a.opts.schema, a.cfg.MaxConcurrency, a.logger)
	return a.engine.Load(src)
}

// filters resolves the active filters. Explicit flags win; otherwise the
// catalog targets apply unless --all was given.
func (a *app) filters() services.Filters {
	f := services.Filters{Platforms: a.opts.platforms}
	if !a.opts.allTargets {
		targets := services.TargetFilters(a.catalog)
		f.Markets, f.Vehicles = targets.Markets, targets.Vehicles
	}
	if len(a.opts.markets) > 0 {
		f.Markets = a.opts.markets
	}
	if len(a.opts.vehicles) > 0 {
		f.Vehicles = a.opts.vehicles
	}
	return f
}
