package records

import "log/slog"

// Temporal sanity bounds. A year outside this window means a parsing bug,
// not a time traveler.
const (
	minYear = 2000
	maxYear = 2100
)

func temporalOK(kind, id string, year, month, week int) bool {
	if year < minYear || year > maxYear {
		slog.Warn("record has an implausible year", "kind", kind, "id", id, "year", year)
		return false
	}
	if month < 1 || month > 12 {
		slog.Warn("record has an invalid month", "kind", kind, "id", id, "month", month)
		return false
	}
	if week < 1 || week > 6 {
		slog.Warn("record has an invalid week of month", "kind", kind, "id", id, "week", week)
		return false
	}
	return true
}

// ValidateTitle reports whether a dimension row is usable, logging why not.
func ValidateTitle(r TitleRecord) bool {
	if r.TitleID == "" {
		slog.Warn("title record has no title_id")
		return false
	}
	if r.Title == "" {
		slog.Warn("title record has no title", "titleId", r.TitleID)
		return false
	}
	return true
}

// ValidateWeeklyChart reports whether a chart fact is usable, logging why
// not.
func ValidateWeeklyChart(r WeeklyChartRecord) bool {
	if r.TitleID == "" {
		slog.Warn("chart fact has no title_id")
		return false
	}
	if r.ChartDate.IsZero() {
		slog.Warn("chart fact has no chart_date", "titleId", r.TitleID)
		return false
	}
	if r.Rank < 1 {
		slog.Warn("chart fact has an invalid rank", "titleId", r.TitleID, "rank", r.Rank)
		return false
	}
	return temporalOK("fact_weekly_chart", r.TitleID, r.Year, r.Month, r.WeekOfMonth)
}

// ValidateStats reports whether a stats fact is usable, logging why not.
func ValidateStats(r StatsRecord) bool {
	if r.TitleID == "" {
		slog.Warn("stats fact has no title_id")
		return false
	}
	if r.CollectedAt.IsZero() {
		slog.Warn("stats fact has no collected_at", "titleId", r.TitleID)
		return false
	}
	if r.FavoriteCount != nil && r.FavoriteCountSource != "api" && r.FavoriteCountSource != "html" {
		slog.Warn("stats fact has a favorite_count with an unknown source",
			"titleId", r.TitleID, "source", r.FavoriteCountSource)
		return false
	}
	return temporalOK("fact_title_stats", r.TitleID, r.Year, r.Month, r.WeekOfMonth)
}

// CheckForeignKey reports whether titleID exists in the dimension. Failures
// are advisory: the fact still lands, the gap is an enrichment problem.
func CheckForeignKey(kind, titleID string, knownTitles map[string]struct{}) bool {
	if _, ok := knownTitles[titleID]; ok {
		return true
	}
	slog.Warn("fact references a title missing from the dimension",
		"kind", kind, "titleId", titleID)
	return false
}
