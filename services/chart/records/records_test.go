package records

import (
	"encoding/json"
	"testing"
	"time"

	"webtoon-pipeline/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	date := NewDate(2025, time.March, 9)
	require.Equal(t, "2025-03-09", date.String())

	encoded, err := json.Marshal(date)
	require.NoError(t, err)
	require.Equal(t, `"2025-03-09"`, string(encoded))

	var decoded Date
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, date, decoded)
}

func TestNewTitle(t *testing.T) {
	record, err := NewTitle(TitleParams{
		TitleID: "100",
		Title:   "Alpha",
		Author:  "Kim",
		Tags:    []string{"action", "", "action", "drama"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"action", "drama"}, record.Tags)
	require.False(t, record.CreatedAt.IsZero())
	require.Equal(t, record.CreatedAt, record.UpdatedAt)

	_, err = NewTitle(TitleParams{Title: "no id"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewTitle(TitleParams{TitleID: "100"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewWeeklyChart(t *testing.T) {
	date := NewDate(2025, time.January, 15)
	collected := time.Date(2025, time.January, 15, 21, 30, 0, 0, timezone.Location)
	record, err := NewWeeklyChart(WeeklyChartParams{
		ChartDate:   date,
		TitleID:     "100",
		Rank:        3,
		Weekday:     "MONDAY",
		CollectedAt: collected,
	})
	require.NoError(t, err)
	require.Equal(t, 2025, record.Year)
	require.Equal(t, 1, record.Month)
	// the 15th falls in the third seven-day block of the month
	require.Equal(t, 3, record.WeekOfMonth)
	require.Equal(t, "2025-01-15|100|MONDAY", record.IdentityKey())

	_, err = NewWeeklyChart(WeeklyChartParams{ChartDate: date, TitleID: "100", Rank: 0})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewWeeklyChart(WeeklyChartParams{TitleID: "100", Rank: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewWeeklyChart(WeeklyChartParams{ChartDate: date, Rank: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewWeeklyChartBackfillDerivesFromCollectedAt(t *testing.T) {
	// a backfill run labels the chart with an old date but collects now;
	// year/month/week follow the collection time
	record, err := NewWeeklyChart(WeeklyChartParams{
		ChartDate:   NewDate(2026, time.January, 5),
		TitleID:     "100",
		Rank:        1,
		CollectedAt: time.Date(2026, time.February, 20, 10, 0, 0, 0, timezone.Location),
	})
	require.NoError(t, err)
	require.Equal(t, 2026, record.Year)
	require.Equal(t, 2, record.Month)
	require.Equal(t, 3, record.WeekOfMonth)
	// the chart date still labels the row and its identity
	require.Equal(t, "2026-01-05|100|", record.IdentityKey())
}

func TestNewStats(t *testing.T) {
	count := int64(12345)
	record, err := NewStats(StatsParams{
		TitleID:             "100",
		FavoriteCount:       &count,
		FavoriteCountSource: "api",
	})
	require.NoError(t, err)
	require.False(t, record.CollectedAt.IsZero())
	require.NotZero(t, record.Year)
	require.NotZero(t, record.WeekOfMonth)

	_, err = NewStats(StatsParams{FavoriteCount: &count, FavoriteCountSource: "api"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewStats(StatsParams{TitleID: "100", FavoriteCount: &count})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestValidateWeeklyChart(t *testing.T) {
	record, err := NewWeeklyChart(WeeklyChartParams{
		ChartDate: NewDate(2025, time.June, 1),
		TitleID:   "100",
		Rank:      1,
	})
	require.NoError(t, err)
	require.True(t, ValidateWeeklyChart(record))

	bad := record
	bad.Year = 1999
	require.False(t, ValidateWeeklyChart(bad))

	bad = record
	bad.Month = 13
	require.False(t, ValidateWeeklyChart(bad))

	bad = record
	bad.WeekOfMonth = 7
	require.False(t, ValidateWeeklyChart(bad))

	bad = record
	bad.Rank = -1
	require.False(t, ValidateWeeklyChart(bad))
}

func TestValidateStats(t *testing.T) {
	count := int64(5)
	record, err := NewStats(StatsParams{
		TitleID:             "100",
		FavoriteCount:       &count,
		FavoriteCountSource: "html",
	})
	require.NoError(t, err)
	require.True(t, ValidateStats(record))

	bad := record
	bad.FavoriteCountSource = "guess"
	require.False(t, ValidateStats(bad))
}

func TestCheckForeignKey(t *testing.T) {
	known := map[string]struct{}{"100": {}}
	require.True(t, CheckForeignKey("fact_weekly_chart", "100", known))
	require.False(t, CheckForeignKey("fact_weekly_chart", "200", known))
}
