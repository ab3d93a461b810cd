package webtoon

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"webtoon-pipeline/lib/htmlutil"
	"webtoon-pipeline/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// chartItemSelectors is tried in order; the first selector that matches a
// plausible number of elements wins. Fewer than a dozen matches means we
// hit a nav bar or a redesigned page, not the chart.
var chartItemSelectors = []string{
	`li.item a.link[href*="titleId"]`,
	`li a[href*="titleId"]`,
	`div.area_toon a[href*="titleId"]`,
	`ul.list_toon li`,
}

const minPlausibleChartItems = 10

var titleSelectors = []string{
	"div.info div.title_box",
	"div.title_box",
	"span.title",
	".title",
	"strong.title",
}

var authorSelectors = []string{
	"div.info .author",
	"span.author",
	".writer",
	".author",
}

var dataScriptPattern = regexp.MustCompile(
	`(?s)<script[^>]*id=['"]` + DataScriptID + `['"][^>]*>(.*?)</script>`)

// ParseDocument parses a chart document body into ranked entries: an
// embedded api payload when present, page markup otherwise.
func ParseDocument(body string) []ChartEntry {
	if match := dataScriptPattern.FindStringSubmatch(body); match != nil {
		var payload map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &payload); err == nil {
			return ParseAPIPayload(payload)
		}
		slog.Warn("embedded chart payload did not decode, falling back to markup")
	}
	return ParseHTMLDocument(body)
}

// ParseHTMLDocument scrapes ranked entries out of chart page markup. Rank
// is the element's position in the matched list, so entries dropped for
// missing fields leave holes rather than shifting everyone up.
func ParseHTMLDocument(body string) []ChartEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		slog.Warn("chart markup did not parse", "err", err)
		return nil
	}

	var items *goquery.Selection
	for _, selector := range chartItemSelectors {
		found := doc.Find(selector)
		if found.Length() > minPlausibleChartItems {
			slog.Debug("matched chart markup selector",
				"selector", selector, "items", found.Length())
			items = found
			break
		}
	}
	if items == nil {
		slog.Warn("chart markup matched no known selector")
		return nil
	}

	var entries []ChartEntry
	items.Each(func(i int, item *goquery.Selection) {
		entry, ok := parseChartElement(item)
		if !ok {
			return
		}
		entry.Rank = i + 1
		entries = append(entries, entry)
	})
	return entries
}

func parseChartElement(item *goquery.Selection) (ChartEntry, bool) {
	anchor := item
	if goquery.NodeName(item) != "a" {
		anchor = item.Find(`a[href*="titleId"]`).First()
		if anchor.Length() == 0 {
			return ChartEntry{}, false
		}
	}
	href, _ := anchor.Attr("href")
	titleID := htmlutil.QueryParam(href, "titleId")
	if titleID == "" {
		return ChartEntry{}, false
	}

	// anchors usually sit inside the list item that carries the text
	scope := item
	if goquery.NodeName(item) == "a" && item.Parent().Length() > 0 {
		scope = item.Parent()
	}

	title := ""
	for _, selector := range titleSelectors {
		candidate := textutil.CleanText(textutil.FirstLine(scope.Find(selector).First().Text()))
		if utf8.RuneCountInString(candidate) > 2 {
			title = candidate
			break
		}
	}
	if title == "" {
		title = textutil.CleanText(textutil.FirstLine(anchor.Text()))
	}
	if utf8.RuneCountInString(title) < 2 {
		return ChartEntry{}, false
	}

	author := ""
	for _, selector := range authorSelectors {
		candidate := textutil.CleanText(scope.Find(selector).First().Text())
		if candidate != "" {
			author = candidate
			break
		}
	}

	return ChartEntry{TitleID: titleID, Title: title, Author: author}, true
}
