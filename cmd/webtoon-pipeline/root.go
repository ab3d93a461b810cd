package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"webtoon-pipeline/lib/configutil"
	"webtoon-pipeline/lib/configutil/dbfile"
	"webtoon-pipeline/lib/telemetry"
	"webtoon-pipeline/services/chart/store"
	"webtoon-pipeline/services/quality"

	"github.com/spf13/cobra"
)

// Config is the pipeline's file configuration, read from config.json5 with
// an optional config.local.json5 override.
type Config struct {
	// DataDir roots the ndjson store and the raw artifact archive.
	DataDir string `json:"data_dir"`
	// Warehouse locates the relational warehouse, a local sqlite file or a
	// libsql url.
	Warehouse dbfile.Struct      `json:"warehouse"`
	Quality   quality.Thresholds `json:"quality"`
	Smtp      quality.SmtpConfig `json:"smtp"`
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "webtoon-pipeline",
	Short:        "Scheduled webtoon chart collection pipeline",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() (Config, error) {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("no config file found, using defaults")
		return Config{DataDir: "data"}, nil
	}
	if err != nil {
		return Config{}, err
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}
	return config, nil
}

func (c Config) store() store.Store {
	return store.New(store.Config{DataDir: c.DataDir})
}

func setupTelemetry(ctx context.Context) func() {
	t, err := telemetry.SetupFromEnv(ctx, "webtoon-pipeline")
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without it", "err", err)
		return func() {}
	}
	return func() {
		if err := t.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}
}
