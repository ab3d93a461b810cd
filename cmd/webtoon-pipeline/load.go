package main

import (
	"fmt"

	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/warehouse"

	"github.com/spf13/cobra"
)

var loadFlags struct {
	date           string
	deleteExisting bool
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Push processed records into the warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		shutdown := setupTelemetry(ctx)
		defer shutdown()

		config, err := loadConfig()
		if err != nil {
			return err
		}

		date := records.DateOf(timezone.Now())
		if loadFlags.date != "" {
			date, err = records.ParseDate(loadFlags.date)
			if err != nil {
				return err
			}
		}

		db, err := config.Warehouse.OpenDB(warehouse.Schema)
		if err != nil {
			return fmt.Errorf("open warehouse: %w", err)
		}
		defer db.Close()
		var loader warehouse.Loader = warehouse.NewLoader(db)

		if loadFlags.deleteExisting {
			if err := loader.DeleteChartFacts(ctx, date.String()); err != nil {
				return err
			}
		}

		s := config.store()
		titles, err := s.LoadTitles(ctx)
		if err != nil {
			return err
		}
		if err := loader.LoadTitles(ctx, titles); err != nil {
			return err
		}

		axes, err := s.ChartPartitions(date)
		if err != nil {
			return err
		}
		chartRows := 0
		for _, axis := range axes {
			facts, err := s.LoadChartFacts(ctx, date, axis)
			if err != nil {
				return err
			}
			if err := loader.LoadChartFacts(ctx, facts); err != nil {
				return err
			}
			chartRows += len(facts)
		}

		stats, err := s.LoadStatsFacts(ctx)
		if err != nil {
			return err
		}
		if err := loader.LoadStatsFacts(ctx, stats); err != nil {
			return err
		}

		fmt.Printf("loaded %d titles, %d chart facts (%d partitions), %d stats facts for %s\n",
			len(titles), chartRows, len(axes), len(stats), date)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadFlags.date, "date", "", "chart date to load, YYYY-MM-DD (default today)")
	loadCmd.Flags().BoolVar(&loadFlags.deleteExisting, "delete-existing", false, "clear the date's warehouse chart rows before loading")
	rootCmd.AddCommand(loadCmd)
}
