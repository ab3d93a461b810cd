// Package chart turns scraped chart entries and title details into
// warehouse records: pure merge functions, a transform engine that
// validates and persists batches, and the pipeline orchestrator.
package chart

import (
	"sort"
	"time"

	"webtoon-pipeline/services/chart/records"
)

// MergeTitles merges incoming dimension rows into existing ones. Per title
// the most recently updated row wins, but first-insertion timestamps are
// preserved, tags are unioned, and a winner missing author or genre keeps
// the loser's value. Pure: inputs are not mutated, order of surviving
// titles follows most-recent-update first.
func MergeTitles(existing, incoming []records.TitleRecord) []records.TitleRecord {
	combined := make([]records.TitleRecord, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, incoming...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].UpdatedAt.After(combined[j].UpdatedAt)
	})

	byID := make(map[string]int, len(combined))
	merged := make([]records.TitleRecord, 0, len(combined))
	for _, row := range combined {
		at, seen := byID[row.TitleID]
		if !seen {
			byID[row.TitleID] = len(merged)
			merged = append(merged, row)
			continue
		}

		winner := &merged[at]
		if row.CreatedAt.Before(winner.CreatedAt) {
			winner.CreatedAt = row.CreatedAt
		}
		if winner.Author == "" {
			winner.Author = row.Author
		}
		if winner.Genre == "" {
			winner.Genre = row.Genre
		}
		union := append(append([]string(nil), winner.Tags...), row.Tags...)
		winner.Tags = records.NormalizeTags(union)
	}
	return merged
}

// MergeChartFacts appends the incoming chart facts whose identity key is
// not already present. Facts are never updated in place. Returns the merged
// slice and how many rows were actually added.
func MergeChartFacts(existing, incoming []records.WeeklyChartRecord) ([]records.WeeklyChartRecord, int) {
	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		seen[row.IdentityKey()] = struct{}{}
	}

	merged := append([]records.WeeklyChartRecord(nil), existing...)
	added := 0
	for _, row := range incoming {
		key := row.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, row)
		added++
	}
	return merged, added
}

// MergeStatsFacts appends the incoming stats facts whose identity key is
// not already present, same append-only contract as MergeChartFacts.
func MergeStatsFacts(existing, incoming []records.StatsRecord) ([]records.StatsRecord, int) {
	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		seen[row.IdentityKey()] = struct{}{}
	}

	merged := append([]records.StatsRecord(nil), existing...)
	added := 0
	for _, row := range incoming {
		key := row.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, row)
		added++
	}
	return merged, added
}

// ApplyDetail folds newly learned per-title data into its dimension row:
// genre overwrites only when the detail actually carries one, tags are
// unioned, and UpdatedAt moves to now so the merge keeps this row.
func ApplyDetail(existing records.TitleRecord, genre string, tags []string, now time.Time) records.TitleRecord {
	updated := existing
	if genre != "" {
		updated.Genre = genre
	}
	updated.Tags = records.NormalizeTags(append(append([]string(nil), existing.Tags...), tags...))
	updated.UpdatedAt = now
	return updated
}
