package main

import (
	"fmt"
	"log/slog"
	"os"

	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/quality"
	"webtoon-pipeline/services/warehouse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var checkFlags struct {
	date    string
	noAlert bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the warehouse quality check for a collection day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		shutdown := setupTelemetry(ctx)
		defer shutdown()

		config, err := loadConfig()
		if err != nil {
			return err
		}

		date := records.DateOf(timezone.Now())
		if checkFlags.date != "" {
			date, err = records.ParseDate(checkFlags.date)
			if err != nil {
				return err
			}
		}

		db, err := config.Warehouse.OpenDB(warehouse.Schema)
		if err != nil {
			return fmt.Errorf("open warehouse: %w", err)
		}
		defer db.Close()

		result, err := quality.Check(ctx, db, date.String(), config.Quality)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"metric", "value"})
		t.AppendRows([]table.Row{
			{"date", result.Date},
			{"chart rows", result.ChartRows},
			{"distinct titles", result.DistinctItems},
			{"stats rows", result.StatsRows},
			{"newest stats at", result.NewestStatsAt},
			{"passed", result.Passed()},
		})
		t.Render()

		if result.Passed() {
			return nil
		}
		for _, problem := range result.Problems {
			fmt.Println("problem:", problem)
		}
		if config.Smtp.Enabled() && !checkFlags.noAlert {
			if err := quality.SendAlert(config.Smtp, result); err != nil {
				slog.Warn("quality alert not sent", "err", err)
			}
		}
		return fmt.Errorf("quality check failed for %s", date)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.date, "date", "", "chart date to check, YYYY-MM-DD (default today)")
	checkCmd.Flags().BoolVar(&checkFlags.noAlert, "no-alert", false, "print failures without sending mail")
	rootCmd.AddCommand(checkCmd)
}
