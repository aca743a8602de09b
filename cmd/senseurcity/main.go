// Command senseurcity downloads the SensEURCity dataset archive and loads it
// into a relational database. Runs are idempotent: derived identity hashes
// make duplicate inserts conflict-skip, and fully loaded files are recorded
// so a rerun picks up where the last one stopped.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpadapter "github.com/caderidris/senseurcity-etl/internal/adapter/http"
	"github.com/caderidris/senseurcity-etl/internal/config"
	"github.com/caderidris/senseurcity-etl/internal/observability"
	"github.com/caderidris/senseurcity-etl/internal/pipeline"
	"github.com/caderidris/senseurcity-etl/internal/store"
	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "senseurcity",
		Short: "Load the SensEURCity air quality dataset into a relational database",
		Long: `Downloads the published dataset archive, walks the per-device CSV files
of the selected cities and loads measurements, quality flags, reference
readings and co-location spans. Selecting no city loads all three.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("zip-url", config.DefaultZipURL, "archive URL; empty skips the download")
	flags.String("zip-path", "senseurcity.zip", "local archive path")
	flags.String("db-url", "sqlite:senseurcity.db", "database URL (sqlite:<path> or postgres://...)")
	flags.String("schema", "measurement", "PostgreSQL schema for the tables")
	flags.BoolP("antwerp", "a", false, "process Antwerp devices")
	flags.BoolP("oslo", "o", false, "process Oslo devices")
	flags.BoolP("zagreb", "z", false, "process Zagreb devices")
	flags.BoolP("force", "f", false, "re-download the archive and reload already processed files")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Int("batch-size", 1000, "records per insert statement")
	flags.String("http-addr", ":8080", "address for health and metrics endpoints")
	flags.String("log-format", "json", "log output format (json or text)")
	flags.Duration("shutdown-timeout", 10*time.Second, "grace period for draining the HTTP server")
	cobra.CheckErr(v.BindPFlags(flags))

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(os.Stderr, cfg.Verbose, cfg.LogFormat)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.DBURL, store.Options{Schema: cfg.Schema, BatchSize: cfg.BatchSize}, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		return err
	}
	if err := st.SyncCatalogs(ctx); err != nil {
		logger.Error("failed to sync catalogs", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ZipURL != "" {
		if err := zenodo.Download(ctx, http.DefaultClient, cfg.ZipURL, cfg.ZipPath, cfg.Force, logger); err != nil {
			logger.Error("failed to download archive", "error", err)
			return err
		}
	}

	ds, err := zenodo.OpenDataset(cfg.ZipPath)
	if err != nil {
		logger.Error("failed to open archive", "error", err)
		return err
	}
	defer ds.Close() //nolint:errcheck

	p := pipeline.New(st, logger, metrics, clockwork.NewRealClock(), pipeline.Options{Force: cfg.Force})
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	summary, runErr := p.Run(ctx, ds.Files(cfg.Cities(), logger))
	if runErr != nil {
		logger.Error("load aborted", "error", runErr,
			"processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return runErr
}
