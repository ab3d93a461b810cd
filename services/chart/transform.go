package chart

import (
	"context"
	"fmt"
	"log/slog"

	"webtoon-pipeline/lib/scrapers/webtoon"
	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/chart/store"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/chart")

// Engine converts scraped entries into records, validates them, merges them
// into the store and persists the result. It holds no scraping state; one
// engine serves any number of runs.
type Engine struct {
	store store.Store
}

func NewEngine(s store.Store) Engine {
	return Engine{store: s}
}

func (e Engine) Store() store.Store {
	return e.store
}

// KnownTitleIDs lists every title currently in the dimension, in stored
// order.
func (e Engine) KnownTitleIDs(ctx context.Context) ([]string, error) {
	titles, err := e.store.LoadTitles(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		ids = append(ids, title.TitleID)
	}
	return ids, nil
}

// TransformChart turns one axis's chart entries into dimension and fact
// rows and merges them into the store. Entries that fail conversion or
// validation are dropped with a warning; the rest of the batch lands.
func (e Engine) TransformChart(
	ctx context.Context,
	entries []webtoon.ChartEntry,
	chartDate records.Date,
	axis webtoon.SortAxis,
) error {
	ctx, span := tracer.Start(ctx, "TransformChart")
	defer span.End()

	collectedAt := timezone.Now()
	titles := make([]records.TitleRecord, 0, len(entries))
	facts := make([]records.WeeklyChartRecord, 0, len(entries))
	for _, entry := range entries {
		title, err := records.NewTitle(records.TitleParams{
			TitleID: entry.TitleID,
			Title:   entry.Title,
			Author:  entry.Author,
		})
		if err != nil {
			slog.WarnContext(ctx, "dropped chart entry", "rank", entry.Rank, "err", err)
			continue
		}
		fact, err := records.NewWeeklyChart(records.WeeklyChartParams{
			ChartDate:   chartDate,
			TitleID:     entry.TitleID,
			Rank:        entry.Rank,
			Weekday:     entry.Weekday,
			ViewCount:   entry.ViewCount,
			CollectedAt: collectedAt,
		})
		if err != nil {
			slog.WarnContext(ctx, "dropped chart entry", "rank", entry.Rank, "err", err)
			continue
		}
		if !records.ValidateTitle(title) || !records.ValidateWeeklyChart(fact) {
			continue
		}
		titles = append(titles, title)
		facts = append(facts, fact)
	}

	existingTitles, err := e.store.LoadTitles(ctx)
	if err != nil {
		return fmt.Errorf("load title dimension: %w", err)
	}
	existingFacts, err := e.store.LoadChartFacts(ctx, chartDate, string(axis))
	if err != nil {
		return fmt.Errorf("load chart facts: %w", err)
	}

	mergedTitles := MergeTitles(existingTitles, titles)

	known := make(map[string]struct{}, len(mergedTitles))
	for _, title := range mergedTitles {
		known[title.TitleID] = struct{}{}
	}
	for _, fact := range facts {
		records.CheckForeignKey("fact_weekly_chart", fact.TitleID, known)
	}

	mergedFacts, added := MergeChartFacts(existingFacts, facts)

	if err := e.store.SaveTitles(ctx, mergedTitles); err != nil {
		return fmt.Errorf("save title dimension: %w", err)
	}
	if err := e.store.SaveChartFacts(ctx, chartDate, string(axis), mergedFacts); err != nil {
		return fmt.Errorf("save chart facts: %w", err)
	}

	slog.InfoContext(ctx, "chart batch persisted",
		"axis", axis, "date", chartDate.String(),
		"entries", len(entries), "factsAdded", added, "titles", len(mergedTitles))
	return nil
}

// TransformStats flushes a batch of title details: stats facts are merged
// append-only, and any newly learned genre or tags flow back into the
// dimension rows.
func (e Engine) TransformStats(ctx context.Context, details []*webtoon.TitleDetail) error {
	ctx, span := tracer.Start(ctx, "TransformStats")
	defer span.End()

	if len(details) == 0 {
		return nil
	}

	existingTitles, err := e.store.LoadTitles(ctx)
	if err != nil {
		return fmt.Errorf("load title dimension: %w", err)
	}
	existingStats, err := e.store.LoadStatsFacts(ctx)
	if err != nil {
		return fmt.Errorf("load stats facts: %w", err)
	}

	known := make(map[string]struct{}, len(existingTitles))
	byID := make(map[string]records.TitleRecord, len(existingTitles))
	for _, title := range existingTitles {
		known[title.TitleID] = struct{}{}
		byID[title.TitleID] = title
	}

	now := timezone.Now()
	facts := make([]records.StatsRecord, 0, len(details))
	var updates []records.TitleRecord
	for _, detail := range details {
		if detail == nil {
			continue
		}
		fact, err := records.NewStats(records.StatsParams{
			TitleID:             detail.TitleID,
			FavoriteCount:       detail.FavoriteCount,
			FavoriteCountSource: detail.FavoriteCountSource,
			Finished:            detail.Finished,
			OnHiatus:            detail.OnHiatus,
			TotalEpisodeCount:   episodeCount(detail.TotalEpisodeCount),
			CollectedAt:         now,
		})
		if err != nil {
			slog.WarnContext(ctx, "dropped title detail", "titleId", detail.TitleID, "err", err)
			continue
		}
		if !records.ValidateStats(fact) {
			continue
		}
		records.CheckForeignKey("fact_title_stats", fact.TitleID, known)
		facts = append(facts, fact)

		if detail.Genre == "" && len(detail.Tags) == 0 {
			continue
		}
		existing, ok := byID[detail.TitleID]
		if !ok {
			continue
		}
		updates = append(updates, ApplyDetail(existing, detail.Genre, detail.Tags, now))
	}

	mergedStats, added := MergeStatsFacts(existingStats, facts)
	if err := e.store.SaveStatsFacts(ctx, mergedStats); err != nil {
		return fmt.Errorf("save stats facts: %w", err)
	}

	if len(updates) > 0 {
		if err := e.store.SaveTitles(ctx, MergeTitles(existingTitles, updates)); err != nil {
			return fmt.Errorf("save title dimension: %w", err)
		}
	}

	slog.InfoContext(ctx, "stats batch persisted",
		"details", len(details), "factsAdded", added, "titlesEnriched", len(updates))
	return nil
}

// episodeCount coerces the float count the episode api reports into the
// integer column, nil for nil.
func episodeCount(v *float64) *int64 {
	if v == nil {
		return nil
	}
	count := int64(*v)
	return &count
}
