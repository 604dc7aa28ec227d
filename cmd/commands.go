package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ev-ad-insights/services"
	"ev-ad-insights/storage"
	"ev-ad-insights/utils"
)

func summaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print headline counts, markets and vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.load()
			if err != nil {
				return err
			}
			f := a.filters()

			s, err := a.engine.Summary(ds, f)
			if err != nil {
				return err
			}
			markets, err := a.engine.MarketSummary(ds, f)
			if err != nil {
				return err
			}
			vehicles, err := a.engine.VehicleAnalysis(ds, f)
			if err != nil {
				return err
			}

			services.NewReporter(cmd.OutOrStdout(), a.opts.color).PrintSummary(s, markets, vehicles)
			return nil
		},
	}
}

func featuresCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print feature mention counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.load()
			if err != nil {
				return err
			}
			counts, err := a.engine.FeatureBreakdown(ds, a.filters())
			if err != nil {
				return err
			}
			services.NewReporter(cmd.OutOrStdout(), a.opts.color).PrintBreakdown(counts)
			return nil
		},
	}
}

func styleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "style",
		Short: "Print ad tones and image themes per vehicle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.load()
			if err != nil {
				return err
			}
			f := a.filters()

			tones, err := a.engine.ToneBreakdown(ds, f)
			if err != nil {
				return err
			}
			themes, err := a.engine.ThemeBreakdown(ds, f)
			if err != nil {
				return err
			}

			r := services.NewReporter(cmd.OutOrStdout(), a.opts.color)
			r.PrintLabels("Tone and Style", tones)
			r.PrintLabels("Image Themes", themes)
			return nil
		},
	}
}

func detailCommand(a *app) *cobra.Command {
	var vehicle string
	var limit int

	cmd := &cobra.Command{
		Use:   "detail [category]",
		Short: "Print the mentions of one feature category grouped by vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := args[0]
			if !a.engine.Taxonomy().HasCategory(category) {
				return fmt.Errorf("unknown category %q (known: %s)",
					category, strings.Join(a.engine.Taxonomy().Categories(), ", "))
			}

			ds, err := a.load()
			if err != nil {
				return err
			}
			groups, err := a.engine.FeatureDetail(ds, services.DetailQuery{
				Filters:  a.filters(),
				Category: category,
				Vehicle:  vehicle,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			services.NewReporter(cmd.OutOrStdout(), a.opts.color).PrintDetail(category, groups)
			return nil
		},
	}

	cmd.Flags().StringVar(&vehicle, "for", "All", "Vehicle to show, or All")
	cmd.Flags().IntVar(&limit, "limit", a.cfg.DetailLimit, "Maximum mentions per vehicle (0 = no cap)")
	return cmd
}

func exportCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [kind]",
		Short: "Write an export table as CSV (" + strings.Join(services.ExportKinds(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.load()
			if err != nil {
				return err
			}
			table, err := a.engine.ExportTable(ds, args[0], a.filters())
			if err != nil {
				return err
			}

			if out == "-" {
				return storage.WriteTable(cmd.OutOrStdout(), table)
			}
			if out == "" {
				out = filepath.Join(a.cfg.ExportDir, args[0]+".csv")
			}

			var w storage.TableWriter
			w, err = storage.NewCSVWriter(out)
			if err != nil {
				return err
			}
			if err := w.WriteTable(table); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			a.logger.Info("[export] Wrote %d rows to %s", len(table.Rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, or - for stdout (default: EXPORT_DIR/<kind>.csv)")
	return cmd
}

func storeCommand(a *app) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Persist the filtered records and their mentions to SQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.load()
			if err != nil {
				return err
			}
			f := a.filters()
			records, err := a.engine.Filtered(ds, f)
			if err != nil {
				return err
			}
			mentions, err := a.engine.Mentions(ds, f)
			if err != nil {
				return err
			}

			store, err := a.openStore(backend)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Write(records, mentions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d records and %d mentions (%s)\n",
				len(records), len(mentions), backend)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", a.cfg.StoreBackend, "Snapshot backend: sqlite or postgres")
	return cmd
}

func (a *app) openStore(backend string) (storage.SnapshotWriter, error) {
	switch strings.ToLower(backend) {
	case "postgres":
		return storage.NewPostgresStore(a.cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: a.cfg.MaxRetries,
			BaseDelay:   defaultRetryDelay,
			Logger:      a.logger,
		})
	case "sqlite":
		if err := ensureDir(a.cfg.SQLitePath); err != nil {
			return nil, err
		}
		return storage.NewSQLiteStore(a.cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite or postgres)", backend)
	}
}

const defaultRetryDelay = 2 * time.Second

// ensureDir creates the parent directory of a file path.
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
