package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webtoon-pipeline/services/chart/records"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) Store {
	t.Helper()
	return New(Config{DataDir: t.TempDir()})
}

func TestTitlesRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	loaded, err := s.LoadTitles(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)

	title, err := records.NewTitle(records.TitleParams{
		TitleID: "100", Title: "Alpha", Author: "Kim",
		Tags: []string{"action"},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveTitles(ctx, []records.TitleRecord{title}))

	loaded, err = s.LoadTitles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "100", loaded[0].TitleID)
	require.Equal(t, []string{"action"}, loaded[0].Tags)
	require.True(t, title.CreatedAt.Equal(loaded[0].CreatedAt))
}

func TestChartFactsPartitionedByDateAndAxis(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	date := records.NewDate(2025, time.February, 3)

	fact, err := records.NewWeeklyChart(records.WeeklyChartParams{
		ChartDate: date, TitleID: "100", Rank: 1, Weekday: "MONDAY",
	})
	require.NoError(t, err)

	require.NoError(t, s.SaveChartFacts(ctx, date, "popular", []records.WeeklyChartRecord{fact}))
	require.NoError(t, s.SaveChartFacts(ctx, date, "view", nil))

	popular, err := s.LoadChartFacts(ctx, date, "popular")
	require.NoError(t, err)
	require.Len(t, popular, 1)
	require.Equal(t, fact.IdentityKey(), popular[0].IdentityKey())

	view, err := s.LoadChartFacts(ctx, date, "view")
	require.NoError(t, err)
	require.Empty(t, view)

	other, err := s.LoadChartFacts(ctx, records.NewDate(2025, time.February, 4), "popular")
	require.NoError(t, err)
	require.Empty(t, other)

	axes, err := s.ChartPartitions(date)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"popular", "view"}, axes)
}

func TestDeleteChartFactsClearsEveryAxis(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	date := records.NewDate(2025, time.February, 3)
	other := records.NewDate(2025, time.February, 10)

	fact, err := records.NewWeeklyChart(records.WeeklyChartParams{
		ChartDate: date, TitleID: "100", Rank: 1, Weekday: "MONDAY",
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveChartFacts(ctx, date, "popular", []records.WeeklyChartRecord{fact}))
	require.NoError(t, s.SaveChartFacts(ctx, date, "view", []records.WeeklyChartRecord{fact}))
	kept := fact
	kept.ChartDate = other
	require.NoError(t, s.SaveChartFacts(ctx, other, "popular", []records.WeeklyChartRecord{kept}))

	require.NoError(t, s.DeleteChartFacts(ctx, date))

	axes, err := s.ChartPartitions(date)
	require.NoError(t, err)
	require.Empty(t, axes)

	// other dates are untouched
	remaining, err := s.LoadChartFacts(ctx, other, "popular")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestStatsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	count := int64(54321)
	fact, err := records.NewStats(records.StatsParams{
		TitleID: "100", FavoriteCount: &count, FavoriteCountSource: "api",
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveStatsFacts(ctx, []records.StatsRecord{fact}))

	loaded, err := s.LoadStatsFacts(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, int64(54321), *loaded[0].FavoriteCount)
	require.Equal(t, "api", loaded[0].FavoriteCountSource)
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(s.dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "dim_title.jsonl"), []byte(
		`{"title_id":"100","title":"Alpha","created_at":"2025-01-01T00:00:00+09:00","updated_at":"2025-01-01T00:00:00+09:00"}
not json at all
{"title_id":"200","title":"Beta","created_at":"2025-01-01T00:00:00+09:00","updated_at":"2025-01-01T00:00:00+09:00"}
`), 0o644))

	loaded, err := s.LoadTitles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "200", loaded[1].TitleID)
}
