package webtoon

import (
	"log/slog"
	"sort"

	"webtoon-pipeline/lib/textutil"
)

// ChartEntry is one ranked title as parsed from a chart document, before
// any conversion into warehouse records.
type ChartEntry struct {
	Rank    int
	TitleID string
	Title   string
	Author  string
	// Weekday is set only when the payload groups titles by weekday.
	Weekday   string
	ViewCount *int64
}

// rawChartItem is a payload item plus the weekday group it came from, if any.
type rawChartItem struct {
	fields  map[string]any
	weekday string
}

// weekdayOrder fixes the iteration order of weekday-keyed payloads so the
// running rank is deterministic.
var weekdayOrder = []string{
	"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY",
	"FRIDAY", "SATURDAY", "SUNDAY", "DAILY",
}

// chartShapes lists the known payload shapes, most common first. Each
// extractor is pure: it either recognizes the payload and flattens it into
// items, or reports no match.
var chartShapes = []struct {
	name    string
	extract func(payload map[string]any) ([]rawChartItem, bool)
}{
	{"titleListMap", shapeTitleListMap},
	{"result.titleList", shapeResultTitleList},
	{"result.list", shapeResultList},
	{"titleList", shapeTitleList},
	{"data", shapeDataList},
}

func shapeTitleListMap(payload map[string]any) ([]rawChartItem, bool) {
	byWeekday, ok := payload["titleListMap"].(map[string]any)
	if !ok {
		return nil, false
	}

	keys := make([]string, 0, len(byWeekday))
	for key := range byWeekday {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return weekdayRank(keys[i]) < weekdayRank(keys[j])
	})

	var items []rawChartItem
	for _, weekday := range keys {
		list, ok := byWeekday[weekday].([]any)
		if !ok {
			continue
		}
		for _, entry := range list {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, rawChartItem{fields: fields, weekday: weekday})
		}
	}
	return items, true
}

func weekdayRank(key string) int {
	for i, known := range weekdayOrder {
		if key == known {
			return i
		}
	}
	return len(weekdayOrder)
}

func shapeResultTitleList(payload map[string]any) ([]rawChartItem, bool) {
	result, ok := payload["result"].(map[string]any)
	if !ok {
		return nil, false
	}
	return flatList(result["titleList"])
}

func shapeResultList(payload map[string]any) ([]rawChartItem, bool) {
	result, ok := payload["result"].(map[string]any)
	if !ok {
		return nil, false
	}
	return flatList(result["list"])
}

func shapeTitleList(payload map[string]any) ([]rawChartItem, bool) {
	return flatList(payload["titleList"])
}

func shapeDataList(payload map[string]any) ([]rawChartItem, bool) {
	return flatList(payload["data"])
}

func flatList(value any) ([]rawChartItem, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	items := make([]rawChartItem, 0, len(list))
	for _, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, rawChartItem{fields: fields})
	}
	return items, true
}

// ParseAPIPayload flattens a chart api payload into ranked entries. Ranks
// run from 1 in encounter order across weekday groups and only advance for
// entries that parse, so the output is always 1..len with no holes.
func ParseAPIPayload(payload map[string]any) []ChartEntry {
	var items []rawChartItem
	for _, shape := range chartShapes {
		extracted, ok := shape.extract(payload)
		if !ok || len(extracted) == 0 {
			continue
		}
		slog.Debug("matched chart payload shape",
			"shape", shape.name, "items", len(extracted))
		items = extracted
		break
	}
	if items == nil {
		slog.Warn("chart payload matched no known shape")
		return nil
	}

	entries := make([]ChartEntry, 0, len(items))
	rank := 0
	for _, item := range items {
		entry, ok := parseChartItem(item)
		if !ok {
			slog.Warn("dropped unparseable chart item", "weekday", item.weekday)
			continue
		}
		rank++
		entry.Rank = rank
		entries = append(entries, entry)
	}
	return entries
}

func parseChartItem(item rawChartItem) (ChartEntry, bool) {
	titleID := textutil.CoerceString(item.fields["titleId"])
	if titleID == "" {
		return ChartEntry{}, false
	}

	title := firstString(item.fields, "titleName", "title", "name", "webtoonTitle")
	if title == "" {
		return ChartEntry{}, false
	}

	entry := ChartEntry{
		TitleID: titleID,
		Title:   textutil.CleanText(title),
		Author:  textutil.CleanText(firstString(item.fields, "author", "displayAuthor", "writer")),
		Weekday: item.weekday,
	}
	if views, ok := textutil.CoerceInt(item.fields["viewCount"]); ok {
		entry.ViewCount = &views
	}
	return entry, true
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := textutil.CoerceString(fields[key]); value != "" {
			return value
		}
	}
	return ""
}
