package quality

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"webtoon-pipeline/lib/configutil/dbfile"
	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/warehouse"

	"github.com/stretchr/testify/require"
)

func seededDB(t *testing.T, chartRows int, statsAge time.Duration) *sql.DB {
	t.Helper()
	db, err := dbfile.Struct{File: ":memory:"}.OpenDB(warehouse.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	loader := warehouse.NewLoader(db)
	ctx := context.Background()
	date := records.NewDate(2025, time.March, 9)

	facts := make([]records.WeeklyChartRecord, 0, chartRows)
	for i := 0; i < chartRows; i++ {
		fact, err := records.NewWeeklyChart(records.WeeklyChartParams{
			ChartDate: date,
			TitleID:   string(rune('A'+i%26)) + string(rune('0'+i/26)),
			Rank:      i + 1,
			Weekday:   "MONDAY",
		})
		require.NoError(t, err)
		facts = append(facts, fact)
	}
	require.NoError(t, loader.LoadChartFacts(ctx, facts))

	stats, err := records.NewStats(records.StatsParams{
		TitleID:     "A0",
		CollectedAt: timezone.Now().Add(-statsAge),
	})
	require.NoError(t, err)
	require.NoError(t, loader.LoadStatsFacts(ctx, []records.StatsRecord{stats}))
	return db
}

func TestCheckPasses(t *testing.T) {
	db := seededDB(t, 5, time.Hour)

	result, err := Check(context.Background(), db, "2025-03-09",
		Thresholds{MinChartRows: 5, MaxStalenessHours: 36})
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.Equal(t, 5, result.ChartRows)
	require.Equal(t, 5, result.DistinctItems)
	require.Equal(t, 1, result.StatsRows)
}

func TestCheckFailsOnThinChart(t *testing.T) {
	db := seededDB(t, 3, time.Hour)

	result, err := Check(context.Background(), db, "2025-03-09",
		Thresholds{MinChartRows: 100, MaxStalenessHours: 36})
	require.NoError(t, err)
	require.False(t, result.Passed())
	require.Len(t, result.Problems, 1)
	require.Contains(t, result.Problems[0], "expected at least 100")
}

func TestCheckFailsOnStaleStats(t *testing.T) {
	db := seededDB(t, 5, time.Hour*72)

	result, err := Check(context.Background(), db, "2025-03-09",
		Thresholds{MinChartRows: 5, MaxStalenessHours: 36})
	require.NoError(t, err)
	require.False(t, result.Passed())
	require.Len(t, result.Problems, 1)
	require.Contains(t, result.Problems[0], "hours old")
}

func TestCheckEmptyWarehouse(t *testing.T) {
	db, err := dbfile.Struct{File: ":memory:"}.OpenDB(warehouse.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	result, err := Check(context.Background(), db, "2025-03-09", Thresholds{})
	require.NoError(t, err)
	require.False(t, result.Passed())
	require.Contains(t, result.Problems, "no stats facts in the warehouse")
}

func TestSendAlertRequiresConfig(t *testing.T) {
	err := SendAlert(SmtpConfig{}, Result{Date: "2025-03-09"})
	require.Error(t, err)
}

func TestAlertBody(t *testing.T) {
	body := alertBody(Result{
		Date:      "2025-03-09",
		ChartRows: 12, DistinctItems: 12, StatsRows: 3,
		Problems: []string{"chart has 12 rows for 2025-03-09, expected at least 100"},
	})
	require.Contains(t, body, "2025-03-09")
	require.Contains(t, body, "expected at least 100")
	require.Contains(t, body, "chart rows: 12")
}
