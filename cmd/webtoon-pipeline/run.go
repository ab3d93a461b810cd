package main

import (
	"fmt"

	"webtoon-pipeline/lib/scrapers/webtoon"
	"webtoon-pipeline/lib/telemetry"
	"webtoon-pipeline/services/chart"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/objstore"

	"github.com/spf13/cobra"
)

var runFlags struct {
	date           string
	axes           []string
	limit          int
	noPace         bool
	deleteExisting bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect today's charts and per-title stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		shutdown := setupTelemetry(ctx)
		defer shutdown()
		telemetry.InstrumentPerfStats(ctx)

		config, err := loadConfig()
		if err != nil {
			return err
		}

		opts := chart.Options{TitleLimit: runFlags.limit, DeleteExisting: runFlags.deleteExisting}
		if runFlags.date != "" {
			opts.Date, err = records.ParseDate(runFlags.date)
			if err != nil {
				return err
			}
		}
		for _, axis := range runFlags.axes {
			opts.Axes = append(opts.Axes, webtoon.SortAxis(axis))
		}

		var pacer webtoon.Pacer
		if runFlags.noPace {
			pacer = webtoon.NopPacer{}
		}

		pipeline := chart.NewPipeline(
			webtoon.NewClient(webtoon.ClientOptions{Pacer: pacer}),
			chart.NewEngine(config.store()),
			objstore.NewFilesystem(config.DataDir),
			pacer,
		)
		result := pipeline.Run(ctx, opts)

		fmt.Printf("status: %s (date %s, %d titles visited, %d detail failures)\n",
			result.Status, result.Date, result.TitlesVisited, result.DetailFailures)
		if result.Status != chart.StatusSuccess {
			return fmt.Errorf("pipeline finished with status %s", result.Status)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.date, "date", "", "chart date to label the run with, YYYY-MM-DD (default today)")
	runCmd.Flags().StringSliceVar(&runFlags.axes, "sort", nil, "sort axes to collect (default popular,view)")
	runCmd.Flags().IntVar(&runFlags.limit, "limit", 0, "cap the detail pass at this many titles")
	runCmd.Flags().BoolVar(&runFlags.noPace, "no-pace", false, "skip politeness delays, local testing only")
	runCmd.Flags().BoolVar(&runFlags.deleteExisting, "delete-existing", false, "drop the date's chart partitions and raw artifacts before collecting")
	rootCmd.AddCommand(runCmd)
}
